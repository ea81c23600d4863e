package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// CreateMessage posts a new message to a channel and returns the
// server-acknowledged message, id included.
func (c *Client) CreateMessage(ctx context.Context, channelID string, req MessageCreate) (*Message, error) {
	var msg Message
	if err := c.post(ctx, "/channels/"+url.PathEscape(channelID)+"/messages", req, &msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	return &msg, nil
}

// ListMessages returns a page of a channel's messages.
func (c *Client) ListMessages(ctx context.Context, channelID string, skip, limit int) ([]Message, error) {
	endpoint := "/channels/" + url.PathEscape(channelID) + "/messages" +
		"?skip=" + strconv.Itoa(skip) + "&limit=" + strconv.Itoa(limit)

	var messages []Message
	if err := c.get(ctx, endpoint, &messages); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	return messages, nil
}

// MessageThread returns a message's replies.
func (c *Client) MessageThread(ctx context.Context, messageID string) ([]Message, error) {
	var messages []Message
	if err := c.get(ctx, "/messages/"+url.PathEscape(messageID)+"/thread", &messages); err != nil {
		return nil, fmt.Errorf("fetching thread: %w", err)
	}

	return messages, nil
}

// PinMessage toggles a message's pinned state.
func (c *Client) PinMessage(ctx context.Context, messageID string) (*Message, error) {
	var msg Message
	if err := c.patch(ctx, "/messages/"+url.PathEscape(messageID)+"/pin", nil, &msg); err != nil {
		return nil, fmt.Errorf("pinning message: %w", err)
	}

	return &msg, nil
}

// AddReaction attaches an emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) error {
	req := map[string]string{"emoji": emoji}
	if err := c.post(ctx, "/messages/"+url.PathEscape(messageID)+"/reactions", req, nil); err != nil {
		return fmt.Errorf("adding reaction: %w", err)
	}

	return nil
}

// ConvertToIdea promotes a message into the workspace ideas hub.
func (c *Client) ConvertToIdea(ctx context.Context, messageID string) (*Idea, error) {
	var idea Idea
	if err := c.post(ctx, "/messages/"+url.PathEscape(messageID)+"/convert-to-idea", nil, &idea); err != nil {
		return nil, fmt.Errorf("converting to idea: %w", err)
	}

	return &idea, nil
}

// DeleteForEveryone removes a message for all members. Destructive;
// callers gate this behind explicit confirmation.
func (c *Client) DeleteForEveryone(ctx context.Context, messageID string) error {
	if err := c.delete(ctx, "/messages/"+url.PathEscape(messageID)); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	return nil
}

// DeleteForMe hides a message from the current user only.
func (c *Client) DeleteForMe(ctx context.Context, messageID string) error {
	if err := c.delete(ctx, "/messages/"+url.PathEscape(messageID)+"/me"); err != nil {
		return fmt.Errorf("deleting message for me: %w", err)
	}

	return nil
}

// ForwardMessage copies a message into another channel.
func (c *Client) ForwardMessage(ctx context.Context, messageID, targetChannelID string) error {
	req := map[string]string{"target_channel_id": targetChannelID}
	if err := c.post(ctx, "/messages/"+url.PathEscape(messageID)+"/forward", req, nil); err != nil {
		return fmt.Errorf("forwarding message: %w", err)
	}

	return nil
}

// Search finds messages matching the query, optionally scoped to one
// channel.
func (c *Client) Search(ctx context.Context, query, channelID string) ([]Message, error) {
	endpoint := "/search?q=" + url.QueryEscape(query)
	if channelID != "" {
		endpoint += "&channel_id=" + url.QueryEscape(channelID)
	}

	var messages []Message
	if err := c.get(ctx, endpoint, &messages); err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	return messages, nil
}
