package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/storysync/internal/logging"
)

var ErrUnknownClient = errors.New("unknown client")

// ClientInfo describes an attached foreground context.
type ClientInfo struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	AttachedAt time.Time `json:"attachedAt"`
}

// Opener opens a new foreground context at url (a browser, a new terminal
// client, a deep link). The context is expected to attach with HELLO.
type Opener interface {
	Open(ctx context.Context, url string) error
}

type OpenerFunc func(ctx context.Context, url string) error

func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// MessageHandler receives every message that is not a reply or a HELLO.
type MessageHandler func(ctx context.Context, from string, m Message)

type client struct {
	info ClientInfo
	port Port
}

type Hub struct {
	log     logging.Logger
	opener  Opener
	openTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	waiters   map[string]chan Message
	opening   map[string]time.Time
	onMessage MessageHandler
}

func NewHub(log logging.Logger, opener Opener) *Hub {
	return &Hub{
		log:     log.With("module", "bridge"),
		opener:  opener,
		openTTL: 30 * time.Second,
		now:     time.Now,
		clients: make(map[string]*client),
		waiters: make(map[string]chan Message),
		opening: make(map[string]time.Time),
	}
}

// OnMessage sets the handler for unsolicited messages.
func (h *Hub) OnMessage(fn MessageHandler) {
	h.mu.Lock()
	h.onMessage = fn
	h.mu.Unlock()
}

// Attach registers a context and returns its id. An existing context with
// the same id is replaced.
func (h *Hub) Attach(ctx context.Context, id, url string, port Port) string {
	if id == "" {
		id = uuid.NewString()
	}

	h.mu.Lock()
	old := h.clients[id]
	h.clients[id] = &client{info: ClientInfo{ID: id, URL: url, AttachedAt: h.now()}, port: port}
	delete(h.opening, url)
	h.mu.Unlock()

	if old != nil && old.port != port {
		_ = old.port.Close()
	}
	h.log.Debug(ctx, "client attached", "id", id, "url", url)
	return id
}

func (h *Hub) Detach(id string) {
	h.mu.Lock()
	c := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if c != nil {
		_ = c.port.Close()
	}
}

// MatchAll lists the attached contexts, oldest first.
func (h *Hub) MatchAll() []ClientInfo {
	h.mu.Lock()
	out := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c.info)
	}
	h.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AttachedAt.Equal(out[j].AttachedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AttachedAt.Before(out[j].AttachedAt)
	})
	return out
}

// Send delivers m to one context.
func (h *Hub) Send(ctx context.Context, id string, m Message) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, id)
	}
	if err := c.port.Send(ctx, m); err != nil {
		return fmt.Errorf("send %s to %s: %w", m.Kind, id, err)
	}
	return nil
}

// Request sends m to one context and waits for the message replying to it.
func (h *Hub) Request(ctx context.Context, id string, m Message) (Message, error) {
	m.ID = uuid.NewString()
	ch := make(chan Message, 1)

	h.mu.Lock()
	h.waiters[m.ID] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.waiters, m.ID)
		h.mu.Unlock()
	}()

	if err := h.Send(ctx, id, m); err != nil {
		return Message{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Reply is one answer collected by Broadcast.
type Reply struct {
	From    string
	Message Message
	Err     error
}

// Broadcast sends m to every attached context as a separate request. The
// returned channel yields one Reply per context and is closed when all
// have answered or ctx ends.
func (h *Hub) Broadcast(ctx context.Context, m Message) <-chan Reply {
	clients := h.MatchAll()
	out := make(chan Reply, len(clients))

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			reply, err := h.Request(ctx, id, m)
			out <- Reply{From: id, Message: reply, Err: err}
		}(c.ID)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Focus asks a context to bring itself to the front.
func (h *Hub) Focus(ctx context.Context, id string) error {
	return h.Send(ctx, id, Message{Kind: KindFocus})
}

// Navigate asks a context to move to url.
func (h *Hub) Navigate(ctx context.Context, id, url string) error {
	if err := h.Send(ctx, id, Message{Kind: KindNavigate, URL: url}); err != nil {
		return err
	}
	h.mu.Lock()
	if c, ok := h.clients[id]; ok {
		c.info.URL = url
	}
	h.mu.Unlock()
	return nil
}

// OpenWindow opens a new context at url. A url already being opened is not
// opened again until its context attaches or the open expires.
func (h *Hub) OpenWindow(ctx context.Context, url string) error {
	if h.opener == nil {
		return errors.New("no opener configured")
	}

	h.mu.Lock()
	if at, ok := h.opening[url]; ok && h.now().Sub(at) < h.openTTL {
		h.mu.Unlock()
		h.log.Debug(ctx, "window already opening", "url", url)
		return nil
	}
	h.opening[url] = h.now()
	h.mu.Unlock()

	if err := h.opener.Open(ctx, url); err != nil {
		h.mu.Lock()
		delete(h.opening, url)
		h.mu.Unlock()
		return fmt.Errorf("open window %s: %w", url, err)
	}
	return nil
}

// Receive is the dispatcher for every message arriving from a context.
func (h *Hub) Receive(ctx context.Context, from string, m Message) {
	if m.ReplyTo != "" {
		h.mu.Lock()
		ch, ok := h.waiters[m.ReplyTo]
		h.mu.Unlock()
		if ok {
			select {
			case ch <- m:
			default:
			}
		} else {
			h.log.Debug(ctx, "late reply dropped", "from", from, "kind", m.Kind)
		}
		return
	}

	switch m.Kind {
	case KindHello, KindNavigate:
		h.mu.Lock()
		if c, ok := h.clients[from]; ok {
			c.info.URL = m.URL
		}
		delete(h.opening, m.URL)
		h.mu.Unlock()
		return
	}

	h.mu.Lock()
	fn := h.onMessage
	h.mu.Unlock()
	if fn == nil {
		h.log.Debug(ctx, "unhandled message", "from", from, "kind", m.Kind)
		return
	}
	fn(ctx, from, m)
}
