package api

import (
	"context"
	"fmt"
	"net/url"
)

// CreateWorkspace creates a workspace and returns it.
func (c *Client) CreateWorkspace(ctx context.Context, name string) (*Workspace, error) {
	var ws Workspace
	if err := c.post(ctx, "/workspaces", map[string]string{"name": name}, &ws); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	return &ws, nil
}

// GetWorkspace fetches a workspace by id.
func (c *Client) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	if err := c.get(ctx, "/workspaces/"+url.PathEscape(id), &ws); err != nil {
		return nil, fmt.Errorf("fetching workspace: %w", err)
	}

	return &ws, nil
}
