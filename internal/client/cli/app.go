package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/storysync/internal/agent/httpapi"
	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/agent/push"
	"github.com/dmitrijs2005/storysync/internal/client/agentclient"
	"github.com/dmitrijs2005/storysync/internal/client/api"
	"github.com/dmitrijs2005/storysync/internal/client/config"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/client/services"
	"github.com/dmitrijs2005/storysync/internal/client/store"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/filex"
	"github.com/dmitrijs2005/storysync/internal/logging"
	"github.com/dmitrijs2005/storysync/internal/netx"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// agentControl is the part of the agent API the REPL drives.
type agentControl interface {
	Drain(ctx context.Context) (httpapi.DrainResponse, error)
	RegisterSync(ctx context.Context, tag string) error
	Pending(ctx context.Context) ([]httpapi.PendingItem, error)
	PushSubscribe(ctx context.Context) (*models.PushSubscription, error)
	PushUnsubscribe(ctx context.Context) error
	PushState(ctx context.Context) (push.Status, error)
	Notifications(ctx context.Context, tag string) ([]notify.Notification, error)
	TestNotification(ctx context.Context) (notify.Notification, error)
	Click(ctx context.Context, id, action string) error
}

// bridgeLink is the part of the agent bridge the REPL uses.
type bridgeLink interface {
	Run(ctx context.Context)
	Connected() bool
	RequestSync(ctx context.Context, tag string) error
	SetLocation(ctx context.Context, url string) error
	Close() error
}

type App struct {
	config          *config.Config
	logger          logging.Logger
	store           *store.Store
	authService     services.AuthService
	storyService    services.StoryService
	favoriteService services.FavoriteService
	agent           agentControl
	bridge          bridgeLink
	probe           *http.Client
	reader          *bufio.Reader
	out             io.Writer

	mu          sync.Mutex
	Mode        Mode
	location    string
	lastStories []models.Story
	grantNext   bool
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewText(os.Stderr, c.LogLevel)

	dbPath, err := filex.DataFile(c.DataDir, common.DatabaseFile)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	tr, err := agentclient.NewTransport(c.AgentURL, http.DefaultTransport, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	apiClient, err := api.New(c.APIBaseURL, &http.Client{Transport: tr, Timeout: 30 * time.Second})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	ag, err := agentclient.NewAgent(c.AgentURL, &http.Client{Timeout: 2 * time.Minute})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	app := &App{
		config:   c,
		logger:   logger,
		store:    st,
		agent:    ag,
		probe:    &http.Client{},
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		Mode:     ModeOnline,
		location: common.DefaultTargetURL,
	}

	br, err := agentclient.NewBridge(c.AgentURL, common.DefaultTargetURL, app, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	app.bridge = br

	app.authService = services.NewAuthService(apiClient, st.Metadata())
	app.storyService = services.NewStoryService(apiClient, st, services.SyncRequesterFunc(app.requestSync), app.authService, app.isOnline, logger)
	app.favoriteService = services.NewFavoriteService(st)

	return app, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()
	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) isOnline() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode != ModeOffline
}

func (a *App) isLoggedIn() bool {
	return a.authService != nil && a.authService.Token() != ""
}

// requestSync arms the drain over the bridge, or over HTTP when the bridge
// is down.
func (a *App) requestSync(ctx context.Context, tag string) error {
	if a.bridge != nil && a.bridge.Connected() {
		if err := a.bridge.RequestSync(ctx, tag); err == nil {
			return nil
		}
	}
	return a.agent.RegisterSync(ctx, tag)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.store.Close()

	fmt.Fprintln(a.out, "Welcome to storysync (type 'help' for commands)")

	go a.bridge.Run(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	if s, err := a.authService.Restore(ctx); err == nil {
		fmt.Fprintf(a.out, "Session restored%s\n", sessionName(s))
	} else if !errors.Is(err, common.ErrNoCredential) {
		a.logger.Warn(ctx, "session restore failed", "error", err)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
	return a.bridge.Close()
}

func sessionName(s *services.Session) string {
	if s == nil || s.Name == "" {
		return ""
	}
	return " for " + s.Name
}

func (a *App) getStatus() string {
	s := ""
	if sess := a.authService.Session(); sess != nil {
		if sess.Name != "" {
			s = sess.Name + " "
		} else {
			s = "session "
		}
	}
	a.mu.Lock()
	s += string(a.Mode)
	a.mu.Unlock()
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher probes the story API every interval and switches
// between online and offline mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := netx.Probe(pctx, a.probe, a.config.APIBaseURL)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
