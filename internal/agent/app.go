// Package agent wires the background worker: cache router, credential
// bridge, sync engine, push manager and notifications behind one HTTP API.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/storysync/internal/agent/bridge"
	"github.com/dmitrijs2005/storysync/internal/agent/cache"
	"github.com/dmitrijs2005/storysync/internal/agent/config"
	"github.com/dmitrijs2005/storysync/internal/agent/httpapi"
	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/agent/push"
	"github.com/dmitrijs2005/storysync/internal/agent/syncer"
	"github.com/dmitrijs2005/storysync/internal/agent/worker"
	"github.com/dmitrijs2005/storysync/internal/client/api"
	"github.com/dmitrijs2005/storysync/internal/client/store"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/filex"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

// CacheFile holds the sqlite cache backend, apart from the shared database.
const CacheFile = "cache.db"

type App struct {
	config *config.Config
	logger logging.Logger

	store      *store.Store
	closeCache func() error
	life       *worker.Lifetime
	hub        *bridge.Hub
	engine     *syncer.Engine
	push       *push.Manager
	syncs      *worker.SyncManager
	watcher    *worker.ConnectivityWatcher
	dispatcher *worker.Dispatcher
	echo       *echo.Echo
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	dbPath, err := filex.DataFile(c.DataDir, common.DatabaseFile)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	backend, closeCache, err := openCache(ctx, c)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	apiBase, err := url.Parse(c.APIBaseURL)
	if err != nil {
		_ = st.Close()
		_ = closeCache()
		return nil, fmt.Errorf("api base url: %w", err)
	}

	app := &App{config: c, logger: logger, store: st, closeCache: closeCache}
	app.life = worker.NewLifetime(context.Background(), logger)

	router := cache.NewRouter(http.DefaultTransport, backend, cache.DefaultRules(apiBase), logger, cache.WithBackground(app.life))
	apiClient, err := api.New(c.APIBaseURL, &http.Client{Transport: router, Timeout: 30 * time.Second})
	if err != nil {
		_ = st.Close()
		_ = closeCache()
		return nil, err
	}

	meta := st.Metadata()
	app.hub = bridge.NewHub(logger, newOpener(c.OpenCommand, logger))
	resolver := bridge.NewResolver(app.hub, meta, c.TokenTimeout, logger)

	sinks := []notify.Sink{notify.NewLogSink(logger)}
	if c.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlackSink(c.SlackWebhookURL, c.SlackChannel))
	}
	center := notify.NewCenter(logger, sinks...)

	app.engine = syncer.NewEngine(st, resolver, apiClient, center, logger)

	platform := push.NewLocalPlatform(meta, c.PublicURL)
	app.push = push.NewManager(push.Deps{
		Platform:    platform,
		Permissions: push.NewPermissions(app.hub, meta, c.PermissionTimeout, logger),
		Registrar:   apiClient,
		Tokens:      resolver,
		Meta:        meta,
		Center:      center,
		Clients:     app.hub,
		ServerKey:   c.VAPIDPublicKey,
	}, logger)

	app.watcher = worker.NewConnectivityWatcher(&http.Client{}, c.APIBaseURL, c.OnlineCheckInterval, logger)
	app.dispatcher = worker.NewDispatcher(app.life, map[worker.EventKind]worker.Handler{
		worker.EventSync:              app.onSync,
		worker.EventPush:              app.onPush,
		worker.EventNotificationClick: app.onNotificationClick,
		worker.EventMessage:           app.onMessage,
	})
	app.syncs = worker.NewSyncManager(app.dispatcher, app.watcher.Online, logger)

	app.watcher.OnOnline(func(ctx context.Context) { app.syncs.FireAll(ctx, "online") })
	app.hub.OnMessage(func(_ context.Context, from string, m bridge.Message) {
		app.dispatcher.Dispatch(worker.Event{Kind: worker.EventMessage, Source: from, Message: m})
	})

	app.echo = httpapi.New(httpapi.Deps{
		Bridge:       app.hub,
		Fetch:        router,
		Drainer:      app.engine,
		Sync:         app.syncs,
		Queue:        st,
		Push:         app.push,
		Receiver:     platform,
		Dispatcher:   app.dispatcher,
		Center:       center,
		Connectivity: app.watcher,
	}, logger)

	return app, nil
}

func openCache(ctx context.Context, c *config.Config) (cache.Backend, func() error, error) {
	noop := func() error { return nil }

	switch c.Cache.Backend {
	case "memory":
		return cache.NewMemoryBackend(), noop, nil
	case "s3":
		client, err := cache.NewS3Client(ctx, cache.S3Config{
			Bucket:    c.Cache.S3Bucket,
			Region:    c.Cache.S3Region,
			Prefix:    c.Cache.S3Prefix,
			Endpoint:  c.Cache.S3Endpoint,
			AccessKey: c.Cache.S3AccessKey,
			SecretKey: c.Cache.S3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		b, err := cache.NewS3Backend(client, c.Cache.S3Bucket, c.Cache.S3Prefix)
		if err != nil {
			return nil, nil, err
		}
		return b, noop, nil
	case "", "sqlite":
		path, err := filex.DataFile(c.DataDir, CacheFile)
		if err != nil {
			return nil, nil, err
		}
		b, err := cache.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
}

func (app *App) onSync(ctx context.Context, ev worker.Event) error {
	if ev.Tag != common.SyncStoriesTag {
		app.logger.Warn(ctx, "unknown sync tag", "tag", ev.Tag)
		return nil
	}
	_, err := app.engine.Drain(ctx)
	return err
}

func (app *App) onPush(ctx context.Context, ev worker.Event) error {
	app.push.HandlePush(ctx, ev.Payload)
	return nil
}

func (app *App) onNotificationClick(ctx context.Context, ev worker.Event) error {
	return app.push.HandleActivation(ctx, ev.NotificationID, ev.Action)
}

func (app *App) onMessage(ctx context.Context, ev worker.Event) error {
	m, ok := ev.Message.(bridge.Message)
	if !ok {
		return fmt.Errorf("unexpected message type %T", ev.Message)
	}

	switch m.Kind {
	case bridge.KindSync:
		tag := m.Tag
		if tag == "" {
			tag = common.SyncStoriesTag
		}
		app.syncs.Register(ctx, tag)
	case bridge.KindSkipWaiting:
		// The client wants the agent active now: flush armed tags instead
		// of waiting for the next connectivity or periodic trigger.
		app.logger.Info(ctx, "skip waiting requested", "client", ev.Source)
		app.syncs.FireAll(ctx, "skip-waiting")
	default:
		app.logger.Debug(ctx, "ignored message", "client", ev.Source, "kind", m.Kind)
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// armPending registers the drain on startup when the queue is not empty.
func (app *App) armPending(ctx context.Context) {
	n, err := app.store.CountSubmissions(ctx)
	if err != nil {
		app.logger.Error(ctx, "failed to count pending submissions", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info(ctx, "pending submissions found", "count", n)
		app.syncs.Register(ctx, common.SyncStoriesTag)
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting agent...", "addr", app.config.ListenAddr, "api", app.config.APIBaseURL)
	app.initSignalHandler(cancelFunc)

	stopPeriodic, err := app.syncs.StartPeriodic(app.config.PeriodicSync)
	if err != nil {
		return fmt.Errorf("periodic sync %q: %w", app.config.PeriodicSync, err)
	}

	app.armPending(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.watcher.Run(ctx)
	}()

	srvErr := make(chan error, 1)
	go func() {
		if err := app.echo.Start(app.config.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-srvErr:
		if err != nil {
			app.logger.Error(ctx, "http server failed", "error", err)
		}
	}
	cancelFunc()

	sctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	if serr := app.echo.Shutdown(sctx); serr != nil {
		app.logger.Warn(sctx, "http shutdown", "error", serr)
	}
	stopPeriodic()
	if lerr := app.life.Shutdown(sctx); lerr != nil {
		app.logger.Warn(sctx, "pending work abandoned", "error", lerr)
	}
	wg.Wait()

	app.close(sctx)
	app.logger.Info(sctx, "agent stopped")
	return err
}

func (app *App) close(ctx context.Context) {
	for name, c := range map[string]io.Closer{"store": app.store, "cache": closerFunc(app.closeCache)} {
		if err := c.Close(); err != nil {
			app.logger.Warn(ctx, "close failed", "resource", name, "error", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
