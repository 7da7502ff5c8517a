package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrMiss is returned by Backend.Get when a region has no entry for a key.
var ErrMiss = errors.New("cache miss")

// Entry is one stored response.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Backend persists entries per region.
type Backend interface {
	Get(ctx context.Context, region, key string) (*Entry, error)
	Put(ctx context.Context, region, key string, e *Entry) error
	Delete(ctx context.Context, region, key string) error
}

// Key is the identity of a request inside a region.
func Key(r *http.Request) string {
	return r.Method + " " + r.URL.String()
}
