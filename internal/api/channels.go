package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	cherrors "github.com/alexjbarnes/teamchat/internal/errors"
	"golang.org/x/text/unicode/norm"
)

// ChannelCreate is the create-channel request body.
type ChannelCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// CreateChannel creates a channel in the workspace.
func (c *Client) CreateChannel(ctx context.Context, workspaceID string, req ChannelCreate) (*Channel, error) {
	var ch Channel
	if err := c.post(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/channels", req, &ch); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}

	return &ch, nil
}

// ListChannels returns the channels of a workspace the user can see.
func (c *Client) ListChannels(ctx context.Context, workspaceID string) ([]Channel, error) {
	var channels []Channel
	if err := c.get(ctx, "/workspaces/"+url.PathEscape(workspaceID)+"/channels", &channels); err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}

	return channels, nil
}

// DeleteChannel deletes a channel and everything in it. Destructive;
// callers gate this behind explicit confirmation.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	err := c.delete(ctx, "/channels/"+url.PathEscape(channelID))
	if err != nil {
		if HasStatus(err, http.StatusNotFound) {
			return cherrors.ErrChannelNotFound
		}

		return fmt.Errorf("deleting channel: %w", err)
	}

	return nil
}

// ClearMessages removes all messages from a channel. Destructive;
// callers gate this behind explicit confirmation.
func (c *Client) ClearMessages(ctx context.Context, channelID string) error {
	if err := c.post(ctx, "/channels/"+url.PathEscape(channelID)+"/clear", nil, nil); err != nil {
		return fmt.Errorf("clearing channel: %w", err)
	}

	return nil
}

// DiscoverChannels lists public channels matching the search term.
// The term is NFC-normalized so composed and decomposed spellings of
// the same name match the server's stored form.
func (c *Client) DiscoverChannels(ctx context.Context, search string) ([]Channel, error) {
	endpoint := "/channels/discover"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(norm.NFC.String(search))
	}

	var channels []Channel
	if err := c.get(ctx, endpoint, &channels); err != nil {
		return nil, fmt.Errorf("discovering channels: %w", err)
	}

	return channels, nil
}

// JoinChannel adds the current user to a channel.
func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	if err := c.post(ctx, "/channels/"+url.PathEscape(channelID)+"/join", nil, nil); err != nil {
		return fmt.Errorf("joining channel: %w", err)
	}

	return nil
}

// LeaveChannel removes the current user from a channel.
func (c *Client) LeaveChannel(ctx context.Context, channelID string) error {
	if err := c.post(ctx, "/channels/"+url.PathEscape(channelID)+"/leave", nil, nil); err != nil {
		return fmt.Errorf("leaving channel: %w", err)
	}

	return nil
}

// ChannelMembers lists a channel's members.
func (c *Client) ChannelMembers(ctx context.Context, channelID string) ([]ChannelMember, error) {
	var members []ChannelMember
	if err := c.get(ctx, "/channels/"+url.PathEscape(channelID)+"/members", &members); err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	return members, nil
}
