// Package notify keeps the on-device history of received pushes and
// locally published alerts.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/store"
)

// Center is the notification center. Mutations update the in-memory list
// synchronously; persistence happens behind them on a single writer
// goroutine and never blocks the caller.
type Center struct {
	mu      sync.Mutex
	hist    *history
	store   store.Store
	logger  zerolog.Logger
	now     func() time.Time
	pending *writeOp
	closed  bool

	signal chan struct{}
	done   chan struct{}
}

// writeOp is the latest state waiting to be persisted. Each write replaces
// the whole record, so only the newest op matters.
type writeOp struct {
	items  []model.NotificationItem
	delete bool
}

// Option configures a Center.
type Option func(*Center)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Center) { c.logger = l }
}

// NewCenter loads the persisted history from st, prunes it, and writes it
// back only when pruning removed something.
func NewCenter(ctx context.Context, st store.Store, opts ...Option) *Center {
	c := &Center{
		hist:   newHistory(MaxItems, MaxAge),
		store:  st,
		logger: zerolog.Nop(),
		now:    time.Now,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.load(ctx)

	go c.writeLoop()

	return c
}

func (c *Center) load(ctx context.Context) {
	raw, err := c.store.Get(ctx, store.KeyNotificationHistory)
	if err != nil {
		if !store.IsNotFound(err) {
			c.logger.Warn().Err(err).Msg("loading notification history")
		}
		return
	}

	var items []model.NotificationItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Warn().Err(err).Msg("decoding notification history")
		return
	}

	c.hist.items = append(c.hist.items, items...)
	if c.hist.prune(c.now()) {
		c.schedule(&writeOp{items: c.hist.snapshot()})
	}
}

// Add records item. A missing ID or ReceivedAt is filled in.
func (c *Center) Add(item model.NotificationItem) {
	now := c.now()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.ReceivedAt == 0 {
		item.ReceivedAt = now.UnixMilli()
	}

	c.mu.Lock()
	c.hist.push(item, now)
	c.schedule(&writeOp{items: c.hist.snapshot()})
	c.mu.Unlock()
}

// Receive builds an item from a push payload and adds it.
func (c *Center) Receive(title, body string, data json.RawMessage) model.NotificationItem {
	item := model.NotificationItem{
		ID:         uuid.NewString(),
		Title:      model.StringPtr(title),
		Body:       model.StringPtr(body),
		Data:       data,
		ReceivedAt: c.now().UnixMilli(),
	}
	c.Add(item)
	return item
}

// RemoveAt deletes the item at index. Out of range indexes are ignored.
// Expired entries are pruned first; they sit at the tail, so indexes of
// live entries do not shift.
func (c *Center) RemoveAt(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := c.hist.prune(c.now())
	removed := c.hist.removeAt(index)
	if !pruned && !removed {
		return
	}
	c.schedule(&writeOp{items: c.hist.snapshot()})
}

// Clear empties the history and deletes the persisted record.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hist.reset()
	c.schedule(&writeOp{delete: true})
}

// Items returns a copy of the live history, newest first.
func (c *Center) Items() []model.NotificationItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	return c.hist.snapshot()
}

// Len returns the number of live items.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	return len(c.hist.items)
}

// pruneLocked drops expired entries and persists the result when anything
// was dropped. Callers hold mu.
func (c *Center) pruneLocked() {
	if c.hist.prune(c.now()) {
		c.schedule(&writeOp{items: c.hist.snapshot()})
	}
}

// Close flushes the pending write and stops the writer. It is safe to
// call more than once.
func (c *Center) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.signal)
	<-c.done
	return nil
}

// schedule replaces the pending op and wakes the writer. Callers hold mu
// or run before the writer starts.
func (c *Center) schedule(op *writeOp) {
	if c.closed {
		c.logger.Debug().Msg("notification center closed, dropping write")
		return
	}
	c.pending = op
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *Center) takePending() *writeOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	op := c.pending
	c.pending = nil
	return op
}

// writeLoop persists pending ops until signal is closed, then flushes.
func (c *Center) writeLoop() {
	defer close(c.done)

	for range c.signal {
		c.persist(c.takePending())
	}
	c.persist(c.takePending())
}

func (c *Center) persist(op *writeOp) {
	if op == nil {
		return
	}

	ctx := context.Background()
	if op.delete {
		if err := c.store.Delete(ctx, store.KeyNotificationHistory); err != nil {
			c.logger.Warn().Err(err).Msg("deleting notification history")
		}
		return
	}

	data, err := json.Marshal(op.items)
	if err != nil {
		c.logger.Warn().Err(err).Msg("encoding notification history")
		return
	}
	if err := c.store.Set(ctx, store.KeyNotificationHistory, string(data)); err != nil {
		c.logger.Warn().Err(err).Int("items", len(op.items)).Msg("saving notification history")
	}
}
