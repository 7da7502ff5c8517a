package agentclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dmitrijs2005/storysync/internal/agent/bridge"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

// Handler answers the agent's requests on behalf of the foreground process.
type Handler interface {
	// Token returns the session token, or "" when logged out.
	Token(ctx context.Context) string
	// Permission answers a notification permission prompt. ok false means
	// the prompt was dismissed without a decision.
	Permission(ctx context.Context) (granted, ok bool)
	Focus(ctx context.Context)
	Navigate(ctx context.Context, url string)
}

var ErrNotConnected = errors.New("bridge not connected")

// Bridge is the foreground end of the agent's websocket bridge.
type Bridge struct {
	endpoint string
	handler  Handler
	log      logging.Logger

	baseDelay time.Duration
	maxDelay  time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	id       string
	location string
}

func NewBridge(agentURL, location string, h Handler, log logging.Logger) (*Bridge, error) {
	endpoint, err := wsEndpoint(agentURL)
	if err != nil {
		return nil, err
	}
	return &Bridge{
		endpoint:  endpoint,
		handler:   h,
		log:       log.With("module", "bridge"),
		baseDelay: 500 * time.Millisecond,
		maxDelay:  30 * time.Second,
		location:  location,
	}, nil
}

func wsEndpoint(agentURL string) (string, error) {
	switch {
	case strings.HasPrefix(agentURL, "http://"):
		agentURL = "ws://" + strings.TrimPrefix(agentURL, "http://")
	case strings.HasPrefix(agentURL, "https://"):
		agentURL = "wss://" + strings.TrimPrefix(agentURL, "https://")
	default:
		return "", fmt.Errorf("invalid agent url %q", agentURL)
	}
	return strings.TrimRight(agentURL, "/") + "/bridge", nil
}

// ID is the name the agent assigned to this context.
func (b *Bridge) ID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Connect dials the agent and introduces this context with HELLO. A
// reconnect reuses the previously assigned ID.
func (b *Bridge) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, b.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: websocket dial: %v", ErrAgentUnavailable, err)
	}

	b.mu.Lock()
	hello := bridge.Message{Kind: bridge.KindHello, ID: b.id, URL: b.location}
	b.mu.Unlock()

	if err := wsjson.Write(ctx, conn, hello); err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("send hello: %w", err)
	}

	var ack bridge.Message
	if err := wsjson.Read(ctx, conn, &ack); err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("read hello: %w", err)
	}
	if ack.Kind != bridge.KindHello {
		conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("expected %s, got %s", bridge.KindHello, ack.Kind)
	}

	b.mu.Lock()
	b.conn = conn
	b.id = ack.ID
	b.mu.Unlock()

	b.log.Debug(ctx, "bridge connected", "id", ack.ID)
	return nil
}

// Serve answers agent requests until the connection drops or ctx ends.
func (b *Bridge) Serve(ctx context.Context) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	defer func() {
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
	}()

	for {
		var m bridge.Message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			conn.Close(websocket.StatusGoingAway, "")
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		b.handle(ctx, m)
	}
}

func (b *Bridge) handle(ctx context.Context, m bridge.Message) {
	switch m.Kind {
	case bridge.KindGetToken:
		reply := m.Reply(bridge.KindToken)
		reply.Token = b.handler.Token(ctx)
		b.reply(ctx, reply)
	case bridge.KindRequestPermission:
		go func() {
			reply := m.Reply(bridge.KindPermission)
			granted, ok := b.handler.Permission(ctx)
			if !ok {
				reply.Error = "dismissed"
			}
			reply.Granted = granted
			b.reply(ctx, reply)
		}()
	case bridge.KindFocus:
		b.handler.Focus(ctx)
	case bridge.KindNavigate:
		b.mu.Lock()
		b.location = m.URL
		b.mu.Unlock()
		b.handler.Navigate(ctx, m.URL)
	default:
		b.log.Debug(ctx, "ignored agent message", "kind", m.Kind)
	}
}

func (b *Bridge) reply(ctx context.Context, m bridge.Message) {
	if err := b.Send(ctx, m); err != nil {
		b.log.Debug(ctx, "reply failed", "kind", m.Kind, "error", err)
	}
}

// Send writes one message to the agent.
func (b *Bridge) Send(ctx context.Context, m bridge.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, b.conn, m)
}

// RequestSync asks the agent to arm tag.
func (b *Bridge) RequestSync(ctx context.Context, tag string) error {
	return b.Send(ctx, bridge.Message{Kind: bridge.KindSync, Tag: tag})
}

// SetLocation reports a navigation to the agent.
func (b *Bridge) SetLocation(ctx context.Context, url string) error {
	b.mu.Lock()
	b.location = url
	b.mu.Unlock()
	return b.Send(ctx, bridge.Message{Kind: bridge.KindNavigate, URL: url})
}

// Run keeps the bridge connected until ctx ends, reconnecting with
// exponential backoff and jitter.
func (b *Bridge) Run(ctx context.Context) {
	attempt := 0
	for ctx.Err() == nil {
		if err := b.Connect(ctx); err != nil {
			delay := b.nextDelay(attempt)
			attempt++
			b.log.Debug(ctx, "bridge connect failed", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		if err := b.Serve(ctx); err != nil {
			b.log.Debug(ctx, "bridge disconnected", "error", err)
		}
	}
}

func (b *Bridge) nextDelay(attempt int) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(b.baseDelay) * 0.5)
	return time.Duration(math.Min(
		float64(b.baseDelay)*math.Pow(2, float64(attempt))+float64(jitter),
		float64(b.maxDelay),
	))
}

// Close disconnects from the agent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client disconnect")
}
