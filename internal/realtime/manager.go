package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	cherrors "github.com/alexjbarnes/teamchat/internal/errors"
	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
)

const (
	// reconnectDelay is the fixed pause before each reconnection
	// attempt. Deliberately not exponential: the ceiling below bounds
	// total retry time, and a chat client that cannot reach its server
	// within seconds should give up visibly rather than linger.
	reconnectDelay = 3 * time.Second

	// maxReconnectAttempts is the retry ceiling. Once exhausted the
	// connection settles in StateFailed and stays there until the user
	// reopens the channel.
	maxReconnectAttempts = 5
)

// State is the lifecycle state of a channel's push connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// wsConn abstracts the WebSocket connection so the Manager can be
// tested without a real server. *websocket.Conn satisfies this
// interface via the conn wrapper below.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

type dialFunc func(ctx context.Context, url string) (wsConn, error)

func defaultDial(ctx context.Context, u string) (wsConn, error) {
	c, _, err := websocket.Dial(ctx, u, nil) //nolint:bodyclose // websocket.Dial closes the response body internally
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Config holds the parameters needed to build a Manager.
type Config struct {
	// BaseURL is the websocket origin, e.g. "ws://localhost:8000".
	BaseURL string

	Logger *slog.Logger

	// OnState, if non-nil, is called on every state transition. The
	// error is non-nil only for StateFailed, where it explains why
	// automatic reconnection gave up.
	OnState func(channelID string, state State, err error)
}

// Manager owns at most one live push connection, bound to the currently
// open channel. Opening a new channel tears down the previous
// connection, including any pending reconnection timer, so a retry can
// never resurrect a connection for a channel the user already left.
//
// Architecture: Open starts one goroutine (run) per connection
// lifetime. run dials, reads frames until the connection drops, and
// applies the reconnect policy in-line. All frame delivery happens from
// that goroutine; Send is the only cross-goroutine entry and touches
// the connection under the mutex-published snapshot.
type Manager struct {
	logger  *slog.Logger
	baseURL string
	dial    dialFunc
	onState func(channelID string, state State, err error)

	mu        sync.Mutex
	channelID string
	conn      wsConn
	state     State
	attempts  int
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewManager creates a Manager from the given config.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		logger:  logger,
		baseURL: cfg.BaseURL,
		dial:    defaultDial,
		onState: cfg.OnState,
		state:   StateDisconnected,
	}
}

func (m *Manager) channelURL(channelID string) string {
	return m.baseURL + "/ws/channel/" + url.PathEscape(channelID)
}

// Open subscribes to a channel's push stream, tearing down any previous
// subscription first. The connection is established asynchronously;
// progress is reported through OnState. onFrame receives every
// well-formed frame, from the goroutine owned by this Manager.
func (m *Manager) Open(ctx context.Context, channelID string, onFrame func(Frame)) {
	m.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	m.channelID = channelID
	m.cancel = cancel
	m.done = done
	m.attempts = 0
	m.state = StateConnecting
	m.mu.Unlock()

	m.notify(channelID, StateConnecting, nil)

	go m.run(runCtx, channelID, onFrame, done)
}

// Send writes a frame to the live connection. Returns ErrNotConnected
// when no connection is up, so callers can decide to retry, queue, or
// warn instead of losing the frame silently.
func (m *Manager) Send(ctx context.Context, f Frame) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		return cherrors.ErrNotConnected
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshalling frame: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	return nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// ChannelID returns the channel the manager is bound to, or empty.
func (m *Manager) ChannelID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.channelID
}

// Close tears down the active connection: the run goroutine is
// cancelled (which also cancels a pending reconnection timer), the
// socket is closed with the normal-closure code, and all counters
// reset. Safe to call when nothing is open.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	done := m.done
	m.cancel = nil
	m.conn = nil
	m.done = nil
	m.channelID = ""
	m.attempts = 0
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "switching channel")
	}

	if cancel != nil {
		cancel()
	}

	if done != nil {
		<-done
	}
}

// run is the per-subscription connect/read/reconnect loop.
func (m *Manager) run(ctx context.Context, channelID string, onFrame func(Frame), done chan struct{}) {
	defer close(done)

	for {
		conn, err := m.dial(ctx, m.channelURL(channelID))
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			m.logger.Warn("realtime dial failed",
				slog.String("channel", channelID),
				slog.String("error", err.Error()),
			)

			if !m.scheduleRetry(ctx, channelID, err) {
				return
			}

			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.state = StateConnected
		m.attempts = 0
		m.mu.Unlock()

		m.notify(channelID, StateConnected, nil)
		m.logger.Info("realtime connected", slog.String("channel", channelID))

		err = m.readLoop(ctx, conn, onFrame)

		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()

		if ctx.Err() != nil {
			// Intentional teardown via Close; state was already reset.
			return
		}

		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			m.setState(StateDisconnected)
			m.notify(channelID, StateDisconnected, nil)

			return
		}

		m.logger.Warn("realtime connection lost",
			slog.String("channel", channelID),
			slog.String("error", err.Error()),
		)

		if !m.scheduleRetry(ctx, channelID, err) {
			return
		}
	}
}

// scheduleRetry applies the reconnect policy: fixed delay, hard attempt
// ceiling. Returns false when the loop should stop, either because the
// ceiling was hit (state -> failed, surfaced via OnState) or because
// the subscription was torn down during the wait.
func (m *Manager) scheduleRetry(ctx context.Context, channelID string, cause error) bool {
	m.mu.Lock()
	if m.attempts >= maxReconnectAttempts {
		m.state = StateFailed
		m.mu.Unlock()

		err := fmt.Errorf("%w: %d attempts, last error: %v", cherrors.ErrReconnectFailed, maxReconnectAttempts, cause)
		m.logger.Error("realtime reconnect ceiling reached",
			slog.String("channel", channelID),
			slog.Int("attempts", maxReconnectAttempts),
		)
		m.notify(channelID, StateFailed, err)

		return false
	}

	m.attempts++
	attempt := m.attempts
	m.state = StateReconnecting
	m.mu.Unlock()

	m.notify(channelID, StateReconnecting, nil)
	m.logger.Info("realtime reconnecting",
		slog.String("channel", channelID),
		slog.Int("attempt", attempt),
		slog.Int("max", maxReconnectAttempts),
		slog.Duration("delay", reconnectDelay),
	)

	timer := time.NewTimer(reconnectDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

// readLoop reads frames until the connection drops. Malformed or
// unrecognized frames are logged and dropped; they must never take the
// manager down.
func (m *Manager) readLoop(ctx context.Context, conn wsConn, onFrame func(Frame)) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageText {
			m.logger.Debug("dropping non-text frame", slog.Int("bytes", len(data)))
			continue
		}

		if gjson.GetBytes(data, "type").Str == "" {
			m.logger.Debug("dropping untagged frame", slog.Int("bytes", len(data)))
			continue
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.logger.Debug("dropping malformed frame",
				slog.Int("bytes", len(data)),
				slog.String("error", err.Error()),
			)

			continue
		}

		switch f.Type {
		case FrameConnected:
			m.logger.Debug("subscription confirmed", slog.String("message", f.Message))
			onFrame(f)

		case FrameMessage:
			onFrame(f)

		default:
			m.logger.Debug("dropping unrecognized frame", slog.String("type", f.Type))
		}
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) notify(channelID string, s State, err error) {
	if m.onState != nil {
		m.onState(channelID, s, err)
	}
}
