package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/storysync/internal/agent/bridge"
	"github.com/dmitrijs2005/storysync/internal/agent/worker"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

type syncRuns struct {
	mu    sync.Mutex
	tags  []string
	fails int
	ran   chan struct{}
}

func (r *syncRuns) handle(ctx context.Context, ev worker.Event) error {
	r.mu.Lock()
	r.tags = append(r.tags, ev.Tag)
	fail := r.fails > 0
	if fail {
		r.fails--
	}
	r.mu.Unlock()
	defer func() { r.ran <- struct{}{} }()
	if fail {
		return errors.New("upload failed")
	}
	return nil
}

func (r *syncRuns) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ran:
	case <-time.After(time.Second):
		t.Fatal("sync did not run")
	}
}

func newMessageApp(t *testing.T, runs *syncRuns) *App {
	t.Helper()
	life := worker.NewLifetime(context.Background(), logging.NewNop())
	t.Cleanup(func() { _ = life.Shutdown(context.Background()) })
	d := worker.NewDispatcher(life, map[worker.EventKind]worker.Handler{worker.EventSync: runs.handle})
	return &App{logger: logging.NewNop(), syncs: worker.NewSyncManager(d, nil, logging.NewNop())}
}

func message(m bridge.Message) worker.Event {
	return worker.Event{Kind: worker.EventMessage, Source: "c1", Message: m}
}

func TestOnMessage_SyncDefaultsTag(t *testing.T) {
	runs := &syncRuns{ran: make(chan struct{}, 4)}
	app := newMessageApp(t, runs)

	require.NoError(t, app.onMessage(context.Background(), message(bridge.Message{Kind: bridge.KindSync})))
	runs.wait(t)

	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Equal(t, []string{common.SyncStoriesTag}, runs.tags)
}

func TestOnMessage_SkipWaitingFlushesArmedTags(t *testing.T) {
	runs := &syncRuns{ran: make(chan struct{}, 4), fails: 1}
	app := newMessageApp(t, runs)
	ctx := context.Background()

	require.NoError(t, app.onMessage(ctx, message(bridge.Message{Kind: bridge.KindSync, Tag: "sync-stories"})))
	runs.wait(t)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"sync-stories"}, app.syncs.Tags())
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, app.onMessage(ctx, message(bridge.Message{Kind: bridge.KindSkipWaiting})))
	runs.wait(t)

	assert.Eventually(t, func() bool { return len(app.syncs.Tags()) == 0 }, time.Second, 5*time.Millisecond)
	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Equal(t, []string{"sync-stories", "sync-stories"}, runs.tags)
}

func TestOnMessage_SkipWaitingWithNothingArmed(t *testing.T) {
	runs := &syncRuns{ran: make(chan struct{}, 4)}
	app := newMessageApp(t, runs)

	require.NoError(t, app.onMessage(context.Background(), message(bridge.Message{Kind: bridge.KindSkipWaiting})))
	assert.Empty(t, app.syncs.Tags())

	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Empty(t, runs.tags)
}

func TestOnMessage_RejectsForeignPayload(t *testing.T) {
	app := newMessageApp(t, &syncRuns{ran: make(chan struct{}, 1)})
	err := app.onMessage(context.Background(), worker.Event{Kind: worker.EventMessage, Message: "raw"})
	assert.Error(t, err)
}
