package worker

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/storysync/internal/logging"
	"github.com/dmitrijs2005/storysync/internal/netx"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// ConnectivityWatcher probes target periodically and reports transitions.
type ConnectivityWatcher struct {
	client   *http.Client
	target   string
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	online atomic.Bool

	mu       sync.Mutex
	known    bool
	onOnline []func(ctx context.Context)
}

func NewConnectivityWatcher(client *http.Client, target string, interval time.Duration, log logging.Logger) *ConnectivityWatcher {
	return &ConnectivityWatcher{
		client:   client,
		target:   target,
		interval: interval,
		timeout:  3 * time.Second,
		log:      log.With("module", "connectivity"),
	}
}

// OnOnline registers fn to run on every offline to online transition,
// including the first successful probe.
func (w *ConnectivityWatcher) OnOnline(fn func(ctx context.Context)) {
	w.mu.Lock()
	w.onOnline = append(w.onOnline, fn)
	w.mu.Unlock()
}

func (w *ConnectivityWatcher) Online() bool { return w.online.Load() }

func (w *ConnectivityWatcher) Mode() Mode {
	if w.Online() {
		return ModeOnline
	}
	return ModeOffline
}

// Check probes once and applies the result.
func (w *ConnectivityWatcher) Check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := netx.Probe(pctx, w.client, w.target)
	cancel()

	w.set(ctx, err == nil)
}

// SetOnline overrides the current state, as when a foreground reports it.
func (w *ConnectivityWatcher) SetOnline(ctx context.Context, online bool) {
	w.set(ctx, online)
}

func (w *ConnectivityWatcher) set(ctx context.Context, online bool) {
	w.mu.Lock()
	was := w.online.Load()
	first := !w.known
	w.known = true
	w.online.Store(online)
	handlers := append([]func(context.Context){}, w.onOnline...)
	w.mu.Unlock()

	if was == online && !first {
		return
	}
	w.log.Info(ctx, "switched mode", "mode", w.Mode())

	if online {
		for _, fn := range handlers {
			fn(ctx)
		}
	}
}

// Run checks immediately, then every interval until ctx ends.
func (w *ConnectivityWatcher) Run(ctx context.Context) {
	w.Check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
