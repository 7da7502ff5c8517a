package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

type memMeta struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemMeta() *memMeta { return &memMeta{m: map[string][]byte{}} }

func (r *memMeta) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[key], nil
}

func (r *memMeta) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key] = value
	return nil
}

func (r *memMeta) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key)
	return nil
}

func (r *memMeta) List(context.Context) (map[string][]byte, error) { return r.m, nil }
func (r *memMeta) Clear(context.Context) error                       { r.m = map[string][]byte{}; return nil }

var _ metadata.Repository = (*memMeta)(nil)

// foreground answers GET_TOKEN with token after delay. An empty token means
// the context is logged out.
func foreground(t *testing.T, h *Hub, id, url, token string, delay time.Duration) *ChanPort {
	t.Helper()
	p := NewChanPort(8)
	h.Attach(context.Background(), id, url, p)
	go func() {
		for m := range p.C() {
			if m.Kind != KindGetToken {
				continue
			}
			time.Sleep(delay)
			reply := m.Reply(KindToken)
			reply.Token = token
			h.Receive(context.Background(), id, reply)
		}
	}()
	return p
}

func jwtWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestResolveToken_FirstNonEmptyWins(t *testing.T) {
	h := NewHub(logging.NewNop(), nil)
	foreground(t, h, "a", "/#/", "", 0)
	foreground(t, h, "b", "/#/", "slow-token", 100*time.Millisecond)
	foreground(t, h, "c", "/#/", "fast-token", 0)

	r := NewResolver(h, newMemMeta(), time.Second, logging.NewNop())
	tok, err := r.ResolveToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fast-token", tok)
}

func TestResolveToken_FallsBackToSnapshot(t *testing.T) {
	meta := newMemMeta()
	require.NoError(t, meta.Set(context.Background(), metadata.KeyTokenSnapshot, []byte("opaque-token")))

	r := NewResolver(NewHub(logging.NewNop(), nil), meta, 50*time.Millisecond, logging.NewNop())
	tok, err := r.ResolveToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", tok)
}

func TestResolveToken_SilentForegroundTimesOut(t *testing.T) {
	h := NewHub(logging.NewNop(), nil)
	h.Attach(context.Background(), "mute", "/#/", NewChanPort(8))
	meta := newMemMeta()
	require.NoError(t, meta.Set(context.Background(), metadata.KeyTokenSnapshot, []byte("snap")))

	r := NewResolver(h, meta, 30*time.Millisecond, logging.NewNop())
	tok, err := r.ResolveToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap", tok)
}

func TestResolveToken_NoCredential(t *testing.T) {
	r := NewResolver(NewHub(logging.NewNop(), nil), newMemMeta(), 10*time.Millisecond, logging.NewNop())
	_, err := r.ResolveToken(context.Background())
	require.ErrorIs(t, err, common.ErrNoCredential)
}

func TestResolveToken_ExpiredSnapshotIgnored(t *testing.T) {
	meta := newMemMeta()
	require.NoError(t, meta.Set(context.Background(), metadata.KeyTokenSnapshot, []byte(jwtWithExp(t, time.Now().Add(-time.Hour)))))

	r := NewResolver(nil, meta, 10*time.Millisecond, logging.NewNop())
	_, err := r.ResolveToken(context.Background())
	require.ErrorIs(t, err, common.ErrNoCredential)

	valid := jwtWithExp(t, time.Now().Add(time.Hour))
	require.NoError(t, meta.Set(context.Background(), metadata.KeyTokenSnapshot, []byte(valid)))
	tok, err := r.ResolveToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, valid, tok)
}

func TestOpenWindow_NoDuplicateUntilHello(t *testing.T) {
	var opened atomic.Int32
	h := NewHub(logging.NewNop(), OpenerFunc(func(context.Context, string) error {
		opened.Add(1)
		return nil
	}))
	ctx := context.Background()

	require.NoError(t, h.OpenWindow(ctx, "/#/stories/42"))
	require.NoError(t, h.OpenWindow(ctx, "/#/stories/42"))
	assert.Equal(t, int32(1), opened.Load())

	h.Attach(ctx, "new", "/#/stories/42", NewChanPort(1))
	h.Detach("new")
	require.NoError(t, h.OpenWindow(ctx, "/#/stories/42"))
	assert.Equal(t, int32(2), opened.Load())
}

func TestOpenWindow_FailureCanRetry(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(logging.NewNop(), OpenerFunc(func(context.Context, string) error {
		if calls.Add(1) == 1 {
			return errors.New("no display")
		}
		return nil
	}))

	require.Error(t, h.OpenWindow(context.Background(), "/#/"))
	require.NoError(t, h.OpenWindow(context.Background(), "/#/"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestReceive_UnsolicitedGoesToHandler(t *testing.T) {
	h := NewHub(logging.NewNop(), nil)
	var got Message
	var from string
	h.OnMessage(func(_ context.Context, f string, m Message) { from, got = f, m })

	h.Attach(context.Background(), "a", "/#/", NewChanPort(1))
	h.Receive(context.Background(), "a", Message{Kind: KindSync, Tag: "sync-stories"})
	assert.Equal(t, "a", from)
	assert.Equal(t, "sync-stories", got.Tag)

	h.Receive(context.Background(), "a", Message{Kind: KindNavigate, URL: "/#/add"})
	assert.Equal(t, "/#/add", h.MatchAll()[0].URL)
}

func TestFocusAndNavigate(t *testing.T) {
	h := NewHub(logging.NewNop(), nil)
	p := NewChanPort(4)
	h.Attach(context.Background(), "a", "/#/", p)

	require.NoError(t, h.Focus(context.Background(), "a"))
	require.NoError(t, h.Navigate(context.Background(), "a", "/#/stories/1"))
	assert.Equal(t, KindFocus, (<-p.C()).Kind)
	nav := <-p.C()
	assert.Equal(t, KindNavigate, nav.Kind)
	assert.Equal(t, "/#/stories/1", nav.URL)

	require.ErrorIs(t, h.Focus(context.Background(), "missing"), ErrUnknownClient)
}

func TestServeWS(t *testing.T) {
	h := NewHub(logging.NewNop(), nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, Message{Kind: KindHello, ID: "cli-1", URL: "/#/"}))
	var ack Message
	require.NoError(t, wsjson.Read(ctx, conn, &ack))
	assert.Equal(t, KindHello, ack.Kind)
	assert.Equal(t, "cli-1", ack.ID)

	go func() {
		var req Message
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}
		reply := req.Reply(KindToken)
		reply.Token = "ws-token"
		_ = wsjson.Write(ctx, conn, reply)
	}()

	r := NewResolver(h, newMemMeta(), 2*time.Second, logging.NewNop())
	tok, err := r.ResolveToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ws-token", tok)
}

func TestServeWS_RequiresHello(t *testing.T) {
	h := NewHub(logging.NewNop(), nil)
	errs := make(chan error, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs <- h.ServeWS(w, r)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, Message{Kind: KindSync}))
	require.Error(t, <-errs)
	assert.Empty(t, h.MatchAll())
}
