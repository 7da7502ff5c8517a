package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/storysync/internal/logging"
)

func TestLifetime_ShutdownWaitsForWork(t *testing.T) {
	l := NewLifetime(context.Background(), logging.NewNop())

	release := make(chan struct{})
	var finished atomic.Bool
	l.Go("slow", func(ctx context.Context) {
		<-release
		finished.Store(true)
	})

	shut := make(chan error, 1)
	go func() { shut <- l.Shutdown(context.Background()) }()

	select {
	case <-shut:
		t.Fatal("shutdown returned before work finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-shut)
	assert.True(t, finished.Load())
}

func TestLifetime_RejectsAfterShutdown(t *testing.T) {
	l := NewLifetime(context.Background(), logging.NewNop())
	require.NoError(t, l.Shutdown(context.Background()))

	err := <-l.WaitUntil("late", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestLifetime_ShutdownDeadlineCancelsContext(t *testing.T) {
	l := NewLifetime(context.Background(), logging.NewNop())
	l.Go("blocked", func(ctx context.Context) { <-ctx.Done() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.Shutdown(ctx), context.DeadlineExceeded)
	require.Error(t, l.Context().Err())
}

func TestLifetime_PanicBecomesError(t *testing.T) {
	l := NewLifetime(context.Background(), logging.NewNop())
	err := <-l.WaitUntil("boom", func(context.Context) error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestDispatcher(t *testing.T) {
	l := NewLifetime(context.Background(), logging.NewNop())
	var got Event
	d := NewDispatcher(l, map[EventKind]Handler{
		EventPush: func(_ context.Context, ev Event) error {
			got = ev
			return nil
		},
	})

	require.NoError(t, d.DispatchWait(context.Background(), Event{Kind: EventPush, Payload: []byte("x")}))
	assert.Equal(t, []byte("x"), got.Payload)

	err := d.DispatchWait(context.Background(), Event{Kind: EventMessage})
	require.ErrorIs(t, err, ErrUnknownEvent)
}

type syncRecorder struct {
	mu    sync.Mutex
	calls int
	fail  bool
	block chan struct{}
	ran   chan struct{}
}

func (r *syncRecorder) handler(ctx context.Context, ev Event) error {
	r.mu.Lock()
	r.calls++
	fail := r.fail
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	defer func() { r.ran <- struct{}{} }()
	if fail {
		return errors.New("upload failed")
	}
	return nil
}

func newSyncManager(t *testing.T, rec *syncRecorder, online *atomic.Bool) *SyncManager {
	t.Helper()
	l := NewLifetime(context.Background(), logging.NewNop())
	t.Cleanup(func() { _ = l.Shutdown(context.Background()) })
	d := NewDispatcher(l, map[EventKind]Handler{EventSync: rec.handler})
	return NewSyncManager(d, online.Load, logging.NewNop())
}

func waitRun(t *testing.T, rec *syncRecorder) {
	t.Helper()
	select {
	case <-rec.ran:
	case <-time.After(time.Second):
		t.Fatal("sync handler did not run")
	}
}

func TestSyncManager_SuccessDisarms(t *testing.T) {
	var online atomic.Bool
	online.Store(true)
	rec := &syncRecorder{ran: make(chan struct{}, 4)}
	m := newSyncManager(t, rec, &online)

	m.Register(context.Background(), "sync-stories")
	waitRun(t, rec)

	assert.Eventually(t, func() bool { return len(m.Tags()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSyncManager_FailureStaysArmed(t *testing.T) {
	var online atomic.Bool
	online.Store(true)
	rec := &syncRecorder{fail: true, ran: make(chan struct{}, 4)}
	m := newSyncManager(t, rec, &online)

	m.Register(context.Background(), "sync-stories")
	waitRun(t, rec)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"sync-stories"}, m.Tags())

	rec.mu.Lock()
	rec.fail = false
	rec.mu.Unlock()

	m.FireAll(context.Background(), "retry")
	waitRun(t, rec)
	assert.Eventually(t, func() bool { return len(m.Tags()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSyncManager_OfflineDefersUntilFire(t *testing.T) {
	var online atomic.Bool
	rec := &syncRecorder{ran: make(chan struct{}, 4)}
	m := newSyncManager(t, rec, &online)

	m.Register(context.Background(), "sync-stories")
	time.Sleep(20 * time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, 0, rec.calls)
	rec.mu.Unlock()

	online.Store(true)
	m.FireAll(context.Background(), "online")
	waitRun(t, rec)
}

func TestSyncManager_OverlappingFireRerunsOnce(t *testing.T) {
	var online atomic.Bool
	online.Store(true)
	rec := &syncRecorder{block: make(chan struct{}), ran: make(chan struct{}, 4)}
	m := newSyncManager(t, rec, &online)

	m.Register(context.Background(), "sync-stories")
	m.FireAll(context.Background(), "again")
	m.FireAll(context.Background(), "again")

	rec.block <- struct{}{}
	waitRun(t, rec)
	rec.block <- struct{}{}
	waitRun(t, rec)

	assert.Eventually(t, func() bool { return len(m.Tags()) == 0 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, 2, rec.calls)
	rec.mu.Unlock()
}

func TestSyncManager_StartPeriodicRejectsBadSpec(t *testing.T) {
	var online atomic.Bool
	m := newSyncManager(t, &syncRecorder{ran: make(chan struct{}, 1)}, &online)
	_, err := m.StartPeriodic("not a schedule")
	require.Error(t, err)

	stop, err := m.StartPeriodic("@every 15m")
	require.NoError(t, err)
	stop()
}

func TestConnectivityWatcher_Transitions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	w := NewConnectivityWatcher(ts.Client(), ts.URL, time.Hour, logging.NewNop())
	var fired atomic.Int32
	w.OnOnline(func(context.Context) { fired.Add(1) })

	w.Check(context.Background())
	assert.True(t, w.Online())
	assert.Equal(t, ModeOnline, w.Mode())
	w.Check(context.Background())
	assert.Equal(t, int32(1), fired.Load())

	w.SetOnline(context.Background(), false)
	assert.Equal(t, ModeOffline, w.Mode())
	w.SetOnline(context.Background(), true)
	assert.Equal(t, int32(2), fired.Load())
}

func TestConnectivityWatcher_UnreachableIsOffline(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	w := NewConnectivityWatcher(nil, url, time.Hour, logging.NewNop())
	var fired atomic.Int32
	w.OnOnline(func(context.Context) { fired.Add(1) })
	w.Check(context.Background())

	assert.False(t, w.Online())
	assert.Equal(t, int32(0), fired.Load())
}
