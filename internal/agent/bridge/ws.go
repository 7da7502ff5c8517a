package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const helloTimeout = 10 * time.Second

type wsPort struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *wsPort) Send(ctx context.Context, m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return wsjson.Write(ctx, p.conn, m)
}

func (p *wsPort) Close() error {
	return p.conn.Close(websocket.StatusNormalClosure, "")
}

// ServeWS upgrades the request and serves one foreground context until it
// disconnects. The first message must be HELLO; its ID names the context
// (a fresh one is assigned when empty) and its URL is the context's location.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket accept: %w", err)
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx := r.Context()

	hctx, cancel := context.WithTimeout(ctx, helloTimeout)
	var hello Message
	err = wsjson.Read(hctx, conn, &hello)
	cancel()
	if err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Kind != KindHello {
		_ = conn.Close(websocket.StatusPolicyViolation, "expected HELLO")
		return fmt.Errorf("first message is %s, expected %s", hello.Kind, KindHello)
	}
	if hello.ID == "" {
		hello.ID = uuid.NewString()
	}

	port := &wsPort{conn: conn}
	id := h.Attach(ctx, hello.ID, hello.URL, port)
	defer h.Detach(id)

	if err := port.Send(ctx, Message{Kind: KindHello, ID: id}); err != nil {
		return err
	}

	for {
		var m Message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		h.Receive(ctx, id, m)
	}
}
