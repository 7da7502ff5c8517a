package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Tag       string    `json:"tag,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Icon      string    `json:"icon,omitempty"`
	Badge     string    `json:"badge,omitempty"`
	URL       string    `json:"url,omitempty"`
	StoryID   string    `json:"storyId,omitempty"`
	Actions   []Action  `json:"actions,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Target returns the URL activation should navigate to.
func (n Notification) Target() string {
	if n.URL == "" {
		return common.DefaultTargetURL
	}
	return n.URL
}

// Sink receives every shown notification. Sink errors are logged only.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type Center struct {
	mu    sync.Mutex
	items map[string]Notification
	sinks []Sink
	log   logging.Logger
	now   func() time.Time
}

func NewCenter(log logging.Logger, sinks ...Sink) *Center {
	return &Center{
		items: make(map[string]Notification),
		sinks: sinks,
		log:   log.With("module", "notify"),
		now:   time.Now,
	}
}

// Show displays n and returns it with ID and CreatedAt filled in.
func (c *Center) Show(ctx context.Context, n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = c.now()

	c.mu.Lock()
	if n.Tag != "" {
		for id, old := range c.items {
			if old.Tag == n.Tag {
				delete(c.items, id)
			}
		}
	}
	c.items[n.ID] = n
	sinks := c.sinks
	c.mu.Unlock()

	for _, s := range sinks {
		if err := s.Deliver(ctx, n); err != nil {
			c.log.Warn(ctx, "notification sink failed", "id", n.ID, "error", err)
		}
	}
	return n
}

func (c *Center) Get(id string) (Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[id]
	if !ok {
		return Notification{}, common.ErrNotFound
	}
	return n, nil
}

// Close dismisses a notification. Closing an unknown id is a no-op.
func (c *Center) Close(id string) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}

// List returns the visible notifications, newest first. A non-empty tag
// filters by tag.
func (c *Center) List(tag string) []Notification {
	c.mu.Lock()
	out := make([]Notification, 0, len(c.items))
	for _, n := range c.items {
		if tag == "" || n.Tag == tag {
			out = append(out, n)
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
