package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type EventKind string

const (
	EventSync              EventKind = "sync"
	EventPush              EventKind = "push"
	EventNotificationClick EventKind = "notificationclick"
	EventMessage           EventKind = "message"
)

var ErrUnknownEvent = errors.New("no handler for event")

// Event is the input of a handler. Only the fields of its Kind are set.
type Event struct {
	Kind EventKind

	// sync
	Tag string

	// push
	Payload []byte
	Header  http.Header

	// notificationclick
	NotificationID string
	Action         string

	// message
	Source  string
	Message any
}

type Handler func(ctx context.Context, ev Event) error

type Dispatcher struct {
	life     *Lifetime
	handlers map[EventKind]Handler
}

func NewDispatcher(life *Lifetime, handlers map[EventKind]Handler) *Dispatcher {
	h := make(map[EventKind]Handler, len(handlers))
	for k, v := range handlers {
		h[k] = v
	}
	return &Dispatcher{life: life, handlers: h}
}

// Dispatch runs the handler for ev.Kind under the lifetime.
func (d *Dispatcher) Dispatch(ev Event) <-chan error {
	h, ok := d.handlers[ev.Kind]
	if !ok {
		done := make(chan error, 1)
		done <- fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
		close(done)
		return done
	}
	return d.life.WaitUntil(string(ev.Kind), func(ctx context.Context) error {
		return h(ctx, ev)
	})
}

// DispatchWait dispatches ev and waits for the handler or ctx.
func (d *Dispatcher) DispatchWait(ctx context.Context, ev Event) error {
	select {
	case err := <-d.Dispatch(ev):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
