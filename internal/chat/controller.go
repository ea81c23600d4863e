package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexjbarnes/teamchat/internal/api"
	cherrors "github.com/alexjbarnes/teamchat/internal/errors"
	"github.com/alexjbarnes/teamchat/internal/realtime"
	"golang.org/x/text/unicode/norm"
)

// realtimeLink is the slice of the realtime manager the controller
// needs: best-effort frame broadcast.
type realtimeLink interface {
	Send(ctx context.Context, f realtime.Frame) error
}

// messageAPI is the slice of the REST client the controller uses.
// *api.Client satisfies it.
type messageAPI interface {
	CreateMessage(ctx context.Context, channelID string, req api.MessageCreate) (*api.Message, error)
	ListMessages(ctx context.Context, channelID string, skip, limit int) ([]api.Message, error)
	Upload(ctx context.Context, fileName string, content []byte, onProgress func(pct int)) (*api.UploadResult, error)
	DeleteForEveryone(ctx context.Context, messageID string) error
	DeleteForMe(ctx context.Context, messageID string) error
	ForwardMessage(ctx context.Context, messageID, targetChannelID string) error
	ClearMessages(ctx context.Context, channelID string) error
}

const messagePageSize = 100

// Controller drives the open channel: loading history, sending, and
// folding push-channel frames into the window.
type Controller struct {
	client messageAPI
	link   realtimeLink
	window *Window
	logger *slog.Logger

	// OnProgress, if non-nil, receives upload progress as a percentage
	// while an attachment send is in flight.
	OnProgress func(pct int)

	// OnMessage, if non-nil, is called for every message newly merged
	// into the window, whether sent locally or received over push.
	OnMessage func(msg api.Message)

	// inFlight tracks channels with an outstanding send. One send per
	// channel: a second Send while the first awaits its acknowledgement
	// is rejected outright rather than queued, so a slow upload cannot
	// silently reorder the user's messages.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewController wires a controller over a window. link may be nil when
// realtime is disabled.
func NewController(client messageAPI, link realtimeLink, window *Window, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		client:   client,
		link:     link,
		window:   window,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Window returns the window this controller drives.
func (c *Controller) Window() *Window {
	return c.window
}

// LoadMessages fetches the first page of the selected channel's history
// into the window. A load that finishes after the user switched
// channels is discarded.
func (c *Controller) LoadMessages(ctx context.Context) error {
	channelID, epoch := c.window.Snapshot()
	if channelID == "" {
		return cherrors.ErrNoChannel
	}

	messages, err := c.client.ListMessages(ctx, channelID, 0, messagePageSize)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	if !c.window.SetMessages(epoch, messages) {
		c.logger.Debug("discarding stale message load", slog.String("channel", channelID))
	}

	return nil
}

// Send pushes the composer's current draft through the send pipeline:
// upload the staged attachment if any, create the message, merge the
// acknowledged message into the window, then broadcast it best-effort.
//
// On success the composer is cleared. On failure the draft text is
// restored and the attachment stays staged, so the user retries with
// one keypress instead of reconstructing the message.
func (c *Controller) Send(ctx context.Context) error {
	channelID, epoch := c.window.Snapshot()
	if channelID == "" {
		return cherrors.ErrNoChannel
	}

	text := c.window.Input()
	attachment := c.window.Attachment()

	if !hasDraft(text, attachment) {
		return cherrors.ErrNothingToSend
	}

	if !c.acquire(channelID) {
		return cherrors.ErrSendInFlight
	}
	defer c.release(channelID)

	// The draft leaves the composer immediately, matching what the user
	// sees in any messenger. It comes back on failure.
	c.window.SetInput("")

	msg, err := c.deliver(ctx, channelID, text, attachment)
	if err != nil {
		c.window.restoreInput(epoch, text)
		return err
	}

	if c.window.Append(epoch, *msg) && c.OnMessage != nil {
		c.OnMessage(*msg)
	}

	c.window.resetComposer(epoch)
	c.broadcast(ctx, msg)

	return nil
}

// deliver uploads the attachment when present and creates the message.
func (c *Controller) deliver(ctx context.Context, channelID, text string, attachment *Attachment) (*api.Message, error) {
	content := norm.NFC.String(strings.TrimSpace(text))

	req := api.MessageCreate{Type: api.MessageTypeText}

	if tag := c.window.StatusTag(); tag != "" {
		req.StatusTag = &tag
	}

	if reply := c.window.ReplyTo(); reply != nil {
		req.ParentMessageID = &reply.ID
	}

	if attachment != nil {
		uploaded, err := c.client.Upload(ctx, attachment.Name, attachment.Content, c.OnProgress)
		if err != nil {
			return nil, fmt.Errorf("uploading attachment: %w", err)
		}

		if content == "" {
			// A file sent without a caption still needs visible content.
			content = "📎 " + attachment.Name
		}

		req.Type = api.MessageTypeFile
		req.FileURL = &uploaded.FileURL
		req.FileType = &uploaded.FileType
		req.FileName = &uploaded.FileName
	}

	req.Content = &content

	msg, err := c.client.CreateMessage(ctx, channelID, req)
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// broadcast pushes the acknowledged message over the realtime link so
// other members see it without polling. Best-effort: the message is
// already persisted, so a closed or absent link is not a send failure.
func (c *Controller) broadcast(ctx context.Context, msg *api.Message) {
	if c.link == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Warn("marshalling broadcast", slog.String("error", err.Error()))
		return
	}

	err = c.link.Send(ctx, realtime.Frame{Type: realtime.FrameMessage, Data: data})

	switch {
	case err == nil:
	case errors.Is(err, cherrors.ErrNotConnected):
		c.logger.Debug("skipping broadcast, realtime not connected")
	default:
		c.logger.Warn("broadcast failed", slog.String("error", err.Error()))
	}
}

// HandleFrame folds one push-channel frame into the window. Frames for
// a channel other than the selected one, and duplicates of messages
// already present, are dropped.
func (c *Controller) HandleFrame(f realtime.Frame) {
	if f.Type != realtime.FrameMessage {
		return
	}

	var msg api.Message
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		c.logger.Debug("dropping undecodable message frame", slog.String("error", err.Error()))
		return
	}

	if msg.ID == "" {
		c.logger.Debug("dropping message frame without id")
		return
	}

	if !c.window.AppendIfCurrent(msg.ChannelID, msg) {
		return
	}

	if c.OnMessage != nil {
		c.OnMessage(msg)
	}
}

// DeleteForEveryone removes a message for all members and drops it from
// the window.
func (c *Controller) DeleteForEveryone(ctx context.Context, messageID string) error {
	if err := c.client.DeleteForEveryone(ctx, messageID); err != nil {
		return err
	}

	_, epoch := c.window.Snapshot()
	c.window.RemoveMessage(epoch, messageID)

	return nil
}

// DeleteForMe hides a message locally for the current user.
func (c *Controller) DeleteForMe(ctx context.Context, messageID string) error {
	if err := c.client.DeleteForMe(ctx, messageID); err != nil {
		return err
	}

	_, epoch := c.window.Snapshot()
	c.window.RemoveMessage(epoch, messageID)

	return nil
}

// Forward copies a message into another channel.
func (c *Controller) Forward(ctx context.Context, messageID, targetChannelID string) error {
	return c.client.ForwardMessage(ctx, messageID, targetChannelID)
}

// ClearChannel wipes the selected channel's history, server-side and
// locally.
func (c *Controller) ClearChannel(ctx context.Context) error {
	channelID, epoch := c.window.Snapshot()
	if channelID == "" {
		return cherrors.ErrNoChannel
	}

	if err := c.client.ClearMessages(ctx, channelID); err != nil {
		return err
	}

	c.window.SetMessages(epoch, nil)

	return nil
}

func (c *Controller) acquire(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[channelID]; busy {
		return false
	}

	c.inFlight[channelID] = struct{}{}

	return true
}

func (c *Controller) release(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, channelID)
}
