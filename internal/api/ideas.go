package api

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// ListIdeas returns the workspace's ideas, optionally filtered.
func (c *Client) ListIdeas(ctx context.Context, workspaceID string, filters IdeaFilters) ([]Idea, error) {
	params := url.Values{}
	if filters.Status != "" {
		params.Set("status", filters.Status)
	}

	if filters.Category != "" {
		params.Set("category", filters.Category)
	}

	if filters.Priority != "" {
		params.Set("priority", filters.Priority)
	}

	endpoint := "/workspaces/" + url.PathEscape(workspaceID) + "/ideas"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var ideas []Idea
	if err := c.get(ctx, endpoint, &ideas); err != nil {
		return nil, fmt.Errorf("listing ideas: %w", err)
	}

	return ideas, nil
}

// UpdateIdea applies a partial update to an idea.
func (c *Client) UpdateIdea(ctx context.Context, ideaID string, patch IdeaPatch) (*Idea, error) {
	var idea Idea
	if err := c.patch(ctx, "/ideas/"+url.PathEscape(ideaID), patch, &idea); err != nil {
		return nil, fmt.Errorf("updating idea: %w", err)
	}

	return &idea, nil
}

// DeleteIdea removes an idea. Destructive; callers gate this behind
// explicit confirmation.
func (c *Client) DeleteIdea(ctx context.Context, ideaID string) error {
	if err := c.delete(ctx, "/ideas/"+url.PathEscape(ideaID)); err != nil {
		return fmt.Errorf("deleting idea: %w", err)
	}

	return nil
}

// ListEvents returns the workspace calendar events in [start, end].
// Zero times are omitted so the backend applies its defaults.
func (c *Client) ListEvents(ctx context.Context, workspaceID string, start, end time.Time) ([]CalendarEvent, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start_date", start.Format(time.RFC3339))
	}

	if !end.IsZero() {
		params.Set("end_date", end.Format(time.RFC3339))
	}

	endpoint := "/workspaces/" + url.PathEscape(workspaceID) + "/calendar"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var events []CalendarEvent
	if err := c.get(ctx, endpoint, &events); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	return events, nil
}

// CreateEvent adds a calendar event to the workspace.
func (c *Client) CreateEvent(ctx context.Context, workspaceID string, event CalendarEvent) (*CalendarEvent, error) {
	var created CalendarEvent
	if err := c.post(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/calendar", event, &created); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	return &created, nil
}
