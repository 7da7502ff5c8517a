package bridge

import (
	"context"
	"sync"
)

// ChanPort is an in-process port backed by a buffered channel.
type ChanPort struct {
	mu     sync.Mutex
	ch     chan Message
	closed bool
}

func NewChanPort(buffer int) *ChanPort {
	return &ChanPort{ch: make(chan Message, buffer)}
}

// C is the receiving side, closed by Close.
func (p *ChanPort) C() <-chan Message { return p.ch }

func (p *ChanPort) Send(ctx context.Context, m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ChanPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
