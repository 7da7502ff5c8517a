package worker

import (
	"context"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dmitrijs2005/storysync/internal/logging"
)

type tagState struct {
	running bool
	rerun   bool
}

// SyncManager holds the armed sync tags. A tag is disarmed only when its
// handler returns nil; a failed run leaves it armed for the next firing.
type SyncManager struct {
	d      *Dispatcher
	online func() bool
	log    logging.Logger

	mu   sync.Mutex
	tags map[string]*tagState
}

// NewSyncManager creates a manager firing through d. online gates firing;
// nil means always online.
func NewSyncManager(d *Dispatcher, online func() bool, log logging.Logger) *SyncManager {
	if online == nil {
		online = func() bool { return true }
	}
	return &SyncManager{
		d:      d,
		online: online,
		log:    log.With("module", "sync-manager"),
		tags:   make(map[string]*tagState),
	}
}

// Register arms tag and fires it right away when online.
func (m *SyncManager) Register(ctx context.Context, tag string) {
	m.mu.Lock()
	if _, ok := m.tags[tag]; !ok {
		m.tags[tag] = &tagState{}
	}
	m.mu.Unlock()

	m.log.Debug(ctx, "sync registered", "tag", tag)
	if m.online() {
		m.fire(ctx, tag, "register")
	}
}

// Tags returns the armed tags in name order.
func (m *SyncManager) Tags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.tags))
	for t := range m.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FireAll fires every armed tag when online.
func (m *SyncManager) FireAll(ctx context.Context, reason string) {
	if !m.online() {
		m.log.Debug(ctx, "sync skipped while offline", "reason", reason)
		return
	}
	for _, t := range m.Tags() {
		m.fire(ctx, t, reason)
	}
}

// fire starts a run of tag unless one is in progress, in which case the
// running one is told to go again once it finishes.
func (m *SyncManager) fire(ctx context.Context, tag, reason string) {
	m.mu.Lock()
	st, ok := m.tags[tag]
	if !ok {
		m.mu.Unlock()
		return
	}
	if st.running {
		st.rerun = true
		m.mu.Unlock()
		return
	}
	st.running = true
	m.mu.Unlock()

	m.log.Info(ctx, "sync fired", "tag", tag, "reason", reason)
	done := m.d.Dispatch(Event{Kind: EventSync, Tag: tag})

	go func() {
		err := <-done

		m.mu.Lock()
		st.running = false
		again := st.rerun
		st.rerun = false
		if err == nil && !again {
			delete(m.tags, tag)
		}
		m.mu.Unlock()

		if err != nil {
			m.log.Warn(context.Background(), "sync failed, tag stays armed", "tag", tag, "error", err)
		}
		if again && m.online() {
			m.fire(context.Background(), tag, "rerun")
		}
	}()
}

// StartPeriodic fires all armed tags on the cron schedule spec (for example
// "@every 15m"). The returned function stops the schedule.
func (m *SyncManager) StartPeriodic(spec string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { m.FireAll(context.Background(), "periodic") }); err != nil {
		return nil, err
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
