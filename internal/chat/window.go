package chat

import (
	"strings"
	"sync"

	"github.com/alexjbarnes/teamchat/internal/api"
)

// Attachment is a file staged in the composer, held in memory until the
// send pipeline uploads it.
type Attachment struct {
	Name    string
	Content []byte
}

// Window is the state of the currently open channel: its message list
// plus the composer (draft text, staged attachment, reply target,
// status tag).
//
// Every channel switch bumps an epoch counter. Asynchronous work
// started against an earlier channel carries the epoch it was started
// under, and its results are rejected when the epoch has moved on. That
// is what keeps a slow message load or a late send acknowledgement for
// channel A from ever landing in channel B's list.
type Window struct {
	mu         sync.Mutex
	epoch      uint64
	channelID  string
	messages   []api.Message
	input      string
	statusTag  string
	replyTo    *api.Message
	attachment *Attachment
}

// NewWindow returns an empty window with no channel selected.
func NewWindow() *Window {
	return &Window{}
}

// Select switches the window to a channel. The message list, reply
// target, staged attachment and status tag are dropped; the draft text
// survives the switch. Returns the new epoch, which callers pass to the
// epoch-checked mutators below.
func (w *Window) Select(channelID string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.epoch++
	w.channelID = channelID
	w.messages = nil
	w.replyTo = nil
	w.attachment = nil
	w.statusTag = ""

	return w.epoch
}

// Epoch returns the current epoch.
func (w *Window) Epoch() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.epoch
}

// ChannelID returns the selected channel, or empty.
func (w *Window) ChannelID() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.channelID
}

// Snapshot returns the selected channel and the epoch it was selected
// under, for handing to asynchronous work.
func (w *Window) Snapshot() (channelID string, epoch uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.channelID, w.epoch
}

// SetMessages replaces the message list. Rejected (returns false) when
// the epoch is stale.
func (w *Window) SetMessages(epoch uint64, msgs []api.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch {
		return false
	}

	w.messages = msgs

	return true
}

// Append merges one message into the list, dropping duplicates by id.
// Returns false when the epoch is stale or the message was already
// present.
func (w *Window) Append(epoch uint64, msg api.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch {
		return false
	}

	var added bool
	w.messages, added = AppendIfNew(w.messages, msg)

	return added
}

// AppendIfCurrent merges a message addressed to a specific channel,
// dropping it when that channel is no longer the selected one. Used for
// push-channel frames, which carry their channel id inline.
func (w *Window) AppendIfCurrent(channelID string, msg api.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if channelID != w.channelID {
		return false
	}

	var added bool
	w.messages, added = AppendIfNew(w.messages, msg)

	return added
}

// RemoveMessage drops a message from the list by id.
func (w *Window) RemoveMessage(epoch uint64, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch {
		return false
	}

	before := len(w.messages)
	w.messages = RemoveByID(w.messages, id)

	return len(w.messages) != before
}

// Messages returns a copy of the message list.
func (w *Window) Messages() []api.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]api.Message, len(w.messages))
	copy(out, w.messages)

	return out
}

// Input returns the composer draft text.
func (w *Window) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.input
}

// SetInput replaces the composer draft text.
func (w *Window) SetInput(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.input = text
}

// StatusTag returns the tag the next message will carry, or empty.
func (w *Window) StatusTag() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.statusTag
}

// SetStatusTag sets the tag attached to the next sent message.
func (w *Window) SetStatusTag(tag string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.statusTag = tag
}

// Attachment returns the staged attachment, or nil.
func (w *Window) Attachment() *Attachment {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.attachment
}

// StageAttachment stages a file for the next send, replacing any
// previously staged one.
func (w *Window) StageAttachment(a *Attachment) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.attachment = a
}

// ReplyTo returns the message being replied to, or nil.
func (w *Window) ReplyTo() *api.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.replyTo
}

// SetReplyTarget marks a message as the reply target by id. A miss is
// not an error: the message may have been deleted or scrolled out of
// the loaded page, in which case the reply target is simply cleared.
func (w *Window) SetReplyTarget(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.replyTo = FindByID(w.messages, id)

	return w.replyTo != nil
}

// ClearReplyTarget drops the reply target without sending.
func (w *Window) ClearReplyTarget() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.replyTo = nil
}

// resetComposer clears the draft, staged attachment and reply target
// after a successful send. Epoch-checked: if the user switched channels
// while the send was in flight, the new channel's composer is left
// alone.
func (w *Window) resetComposer(epoch uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch {
		return
	}

	w.input = ""
	w.attachment = nil
	w.replyTo = nil
}

// restoreInput puts the draft text back after a failed send, unless the
// user already typed something new or switched channels.
func (w *Window) restoreInput(epoch uint64, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch || w.input != "" {
		return
	}

	w.input = text
}

// hasDraft reports whether there is anything to send.
func hasDraft(text string, attachment *Attachment) bool {
	return strings.TrimSpace(text) != "" || attachment != nil
}
