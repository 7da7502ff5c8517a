package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/storysync/internal/logging"
)

var ErrShuttingDown = errors.New("worker is shutting down")

// Lifetime tracks every operation the agent has promised to finish.
type Lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logging.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewLifetime(parent context.Context, log logging.Logger) *Lifetime {
	ctx, cancel := context.WithCancel(parent)
	return &Lifetime{ctx: ctx, cancel: cancel, log: log.With("module", "worker")}
}

// Context is cancelled when Shutdown gives up waiting.
func (l *Lifetime) Context() context.Context { return l.ctx }

func (l *Lifetime) add() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return false
	}
	l.wg.Add(1)
	return true
}

// WaitUntil runs fn in its own goroutine and keeps the agent alive until it
// returns. The returned channel receives fn's result and is then closed.
func (l *Lifetime) WaitUntil(name string, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	if !l.add() {
		done <- ErrShuttingDown
		close(done)
		return done
	}

	go func() {
		defer l.wg.Done()
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				l.log.Error(l.ctx, "operation panicked", "name", name, "panic", r)
				done <- fmt.Errorf("%s: panic: %v", name, r)
			}
		}()

		err := fn(l.ctx)
		if err != nil {
			l.log.Debug(l.ctx, "operation finished with error", "name", name, "error", err)
		}
		done <- err
	}()
	return done
}

// Go is the fire-and-forget form of WaitUntil.
func (l *Lifetime) Go(name string, fn func(ctx context.Context)) {
	l.WaitUntil(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Shutdown refuses new work and waits for running operations. When ctx ends
// first, the lifetime context is cancelled and ctx's error is returned.
func (l *Lifetime) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.cancel()
		return nil
	case <-ctx.Done():
		l.cancel()
		<-done
		return ctx.Err()
	}
}
