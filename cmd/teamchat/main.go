// Command teamchat is a terminal client for a teamchat workspace: it
// authenticates, opens a channel, follows it over the push channel and
// sends whatever is typed on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alexjbarnes/teamchat/internal/api"
	"github.com/alexjbarnes/teamchat/internal/chat"
	"github.com/alexjbarnes/teamchat/internal/config"
	cherrors "github.com/alexjbarnes/teamchat/internal/errors"
	"github.com/alexjbarnes/teamchat/internal/logging"
	"github.com/alexjbarnes/teamchat/internal/realtime"
	"github.com/alexjbarnes/teamchat/internal/session"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "teamchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	store, err := session.Load()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.ServerURL, store.Token)

	login, err := ensureLogin(ctx, client, store, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("logged in",
		slog.String("user", login.UserName),
		slog.String("workspace", login.WorkspaceID),
		slog.String("device", cfg.DeviceName),
	)

	channel, err := pickChannel(ctx, client, login.WorkspaceID, cfg.Channel)
	if err != nil {
		return err
	}

	app := newApp(client, store, cfg, logger)
	defer app.close()

	if err := app.open(ctx, channel); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.inputLoop(ctx, stop)
	})

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// ensureLogin returns a valid login, reusing the cached token when it
// has not expired and authenticating with the configured credentials
// otherwise.
func ensureLogin(ctx context.Context, client *api.Client, store *session.Store, cfg *config.Config, logger *slog.Logger) (session.Login, error) {
	if !session.TokenExpired(store.Token()) {
		login, err := store.Login()
		if err == nil && login.WorkspaceID != "" {
			logger.Debug("reusing cached session", slog.String("user", login.UserName))
			return login, nil
		}
	}

	token, err := client.Login(ctx, cfg.Email, cfg.Password)
	if err != nil {
		return session.Login{}, err
	}

	// The token has to be persisted before Me so the client's token
	// source picks it up for the profile request.
	if err := store.SetLogin(session.Login{Token: token}); err != nil {
		return session.Login{}, err
	}

	user, err := client.Me(ctx)
	if err != nil {
		return session.Login{}, err
	}

	login := session.Login{
		Token:       token,
		UserID:      user.ID,
		UserName:    user.Name,
		UserEmail:   user.Email,
		WorkspaceID: user.WorkspaceID,
	}
	if err := store.SetLogin(login); err != nil {
		return session.Login{}, err
	}

	return login, nil
}

// pickChannel resolves the configured channel name, or falls back to
// the first channel in the workspace.
func pickChannel(ctx context.Context, client *api.Client, workspaceID, name string) (*api.Channel, error) {
	channels, err := client.ListChannels(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("workspace has no channels")
	}

	if name == "" {
		return &channels[0], nil
	}

	for i := range channels {
		if channels[i].Name == name {
			return &channels[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q", cherrors.ErrChannelNotFound, name)
}

// app ties the window, controller and realtime manager together for the
// interactive session.
type app struct {
	client     *api.Client
	store      *session.Store
	cfg        *config.Config
	logger     *slog.Logger
	window     *chat.Window
	controller *chat.Controller
	manager    *realtime.Manager
}

func newApp(client *api.Client, store *session.Store, cfg *config.Config, logger *slog.Logger) *app {
	a := &app{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger,
		window: chat.NewWindow(),
	}

	if cfg.RealtimeEnabled && store.RealtimeEnabled() {
		a.manager = realtime.NewManager(realtime.Config{
			BaseURL: cfg.RealtimeURL(),
			Logger:  logger,
			OnState: a.onRealtimeState,
		})
		a.controller = chat.NewController(client, a.manager, a.window, logger)
	} else {
		a.controller = chat.NewController(client, nil, a.window, logger)
	}

	a.controller.OnMessage = printMessage
	a.controller.OnProgress = func(pct int) {
		fmt.Fprintf(os.Stderr, "\ruploading... %d%%", pct)

		if pct >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	}

	return a
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
}

// open switches to a channel: new window epoch, fresh history, and a
// resubscribed push connection.
func (a *app) open(ctx context.Context, channel *api.Channel) error {
	a.window.Select(channel.ID)

	if err := a.controller.LoadMessages(ctx); err != nil {
		return err
	}

	for _, msg := range a.window.Messages() {
		printMessage(msg)
	}

	if a.manager != nil {
		a.manager.Open(ctx, channel.ID, a.controller.HandleFrame)
	}

	fmt.Printf("-- %s --\n", channel.Name)

	return nil
}

func (a *app) onRealtimeState(channelID string, state realtime.State, err error) {
	if state == realtime.StateFailed {
		a.logger.Error("realtime gave up, messages from others will not appear until /switch",
			slog.String("channel", channelID),
			slog.String("error", err.Error()),
		)

		return
	}

	a.logger.Debug("realtime state",
		slog.String("channel", channelID),
		slog.String("state", state.String()),
	)
}

// inputLoop reads stdin lines and turns them into sends or commands
// until EOF or /quit.
func (a *app) inputLoop(ctx context.Context, stop context.CancelFunc) error {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "/") {
			if quit := a.command(ctx, line); quit {
				stop()
				return nil
			}

			continue
		}

		a.window.SetInput(line)
		a.send(ctx)
	}

	stop()

	return scanner.Err()
}

func (a *app) send(ctx context.Context) {
	err := a.controller.Send(ctx)

	switch {
	case err == nil:
	case errors.Is(err, cherrors.ErrNothingToSend):
	case errors.Is(err, cherrors.ErrSendInFlight):
		fmt.Println("still sending the previous message, try again in a moment")
	default:
		fmt.Printf("send failed: %v (draft kept)\n", err)
	}
}

// command dispatches a slash command. Returns true when the session
// should end.
func (a *app) command(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return true

	case "/channels":
		a.listChannels(ctx)

	case "/switch":
		if arg == "" {
			fmt.Println("usage: /switch <channel name>")
			break
		}

		a.switchChannel(ctx, arg)

	case "/attach":
		if arg == "" {
			fmt.Println("usage: /attach <path>")
			break
		}

		a.stageAttachment(arg)

	case "/reply":
		if arg == "" {
			a.window.ClearReplyTarget()
			break
		}

		if !a.window.SetReplyTarget(arg) {
			fmt.Println("no such message in this channel")
		}

	case "/tag":
		a.window.SetStatusTag(arg)

	case "/clear":
		if err := a.controller.ClearChannel(ctx); err != nil {
			fmt.Printf("clear failed: %v\n", err)
		}

	default:
		fmt.Printf("unknown command %s\n", cmd)
	}

	return false
}

func (a *app) listChannels(ctx context.Context) {
	login, err := a.store.Login()
	if err != nil {
		fmt.Printf("listing channels failed: %v\n", err)
		return
	}

	channels, err := a.client.ListChannels(ctx, login.WorkspaceID)
	if err != nil {
		fmt.Printf("listing channels failed: %v\n", err)
		return
	}

	for _, ch := range channels {
		marker := " "
		if ch.ID == a.window.ChannelID() {
			marker = "*"
		}

		fmt.Printf("%s %s (%d members)\n", marker, ch.Name, ch.MemberCount)
	}
}

func (a *app) switchChannel(ctx context.Context, name string) {
	login, err := a.store.Login()
	if err != nil {
		fmt.Printf("switch failed: %v\n", err)
		return
	}

	channel, err := pickChannel(ctx, a.client, login.WorkspaceID, name)
	if err != nil {
		fmt.Printf("switch failed: %v\n", err)
		return
	}

	if err := a.open(ctx, channel); err != nil {
		fmt.Printf("switch failed: %v\n", err)
	}
}

func (a *app) stageAttachment(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("attach failed: %v\n", err)
		return
	}

	a.window.StageAttachment(&chat.Attachment{
		Name:    filepath.Base(path),
		Content: content,
	})
	fmt.Printf("staged %s (%d bytes), next message sends it\n", path, len(content))
}

func printMessage(msg api.Message) {
	name := msg.UserName
	if name == "" {
		name = msg.UserID
	}

	line := fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.Local().Format("15:04"), name, msg.Content)
	if msg.StatusTag != "" {
		line += " #" + msg.StatusTag
	}

	fmt.Println(line)
}
