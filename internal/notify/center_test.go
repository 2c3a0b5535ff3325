package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/store"
	"github.com/nhle/alloci/tests/testutil"
)

// countingStore wraps a Store and counts writes.
type countingStore struct {
	store.Store
	mu      sync.Mutex
	sets    int
	deletes int
	failSet bool
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.sets++
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.Store.Delete(ctx, key)
}

func (s *countingStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets, s.deletes
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func persisted(t *testing.T, st store.Store) []model.NotificationItem {
	t.Helper()
	raw, err := st.Get(context.Background(), store.KeyNotificationHistory)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var items []model.NotificationItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("decoding persisted history: %v", err)
	}
	return items
}

func TestAddNeverExceedsCapOrWindow(t *testing.T) {
	clock := newClock()
	c := NewCenter(context.Background(), testutil.NewTestStore(t), WithClock(clock.Now))
	defer c.Close()

	for i := 0; i < 500; i++ {
		// Mix fresh items with backdated ones.
		item := model.NotificationItem{Title: model.StringPtr(fmt.Sprintf("n%d", i))}
		if i%7 == 0 {
			item.ReceivedAt = clock.Now().Add(-25 * time.Hour).UnixMilli()
		}
		c.Add(item)
		clock.Advance(3 * time.Minute)

		items := c.Items()
		if len(items) > MaxItems {
			t.Fatalf("after %d adds: len = %d, want <= %d", i+1, len(items), MaxItems)
		}
		now := clock.Now()
		for _, it := range items {
			if now.Sub(it.ReceivedTime()) > MaxAge+3*time.Minute {
				t.Fatalf("after %d adds: item %s is %v old", i+1, it.ID, now.Sub(it.ReceivedTime()))
			}
		}
	}
}

func TestAddCapsAt200NewestFirst(t *testing.T) {
	clock := newClock()
	c := NewCenter(context.Background(), testutil.NewTestStore(t), WithClock(clock.Now))
	defer c.Close()

	for i := 0; i < 250; i++ {
		c.Add(model.NotificationItem{ID: fmt.Sprintf("id-%d", i)})
		clock.Advance(time.Second)
	}

	items := c.Items()
	if len(items) != MaxItems {
		t.Fatalf("len = %d, want %d", len(items), MaxItems)
	}
	if items[0].ID != "id-249" || items[MaxItems-1].ID != "id-50" {
		t.Errorf("first = %s, last = %s; want id-249, id-50", items[0].ID, items[MaxItems-1].ID)
	}
}

func TestClearThenAddYieldsExactlyItem(t *testing.T) {
	st := testutil.NewTestStore(t)
	clock := newClock()
	c := NewCenter(context.Background(), st, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		c.Add(model.NotificationItem{})
	}
	c.Clear()

	want := model.NotificationItem{
		ID:         "only",
		Title:      model.StringPtr("Alerte publiée"),
		ReceivedAt: clock.Now().UnixMilli(),
	}
	c.Add(want)

	items := c.Items()
	if len(items) != 1 || items[0].ID != "only" || items[0].TitleText() != "Alerte publiée" {
		t.Fatalf("items = %+v, want only %q", items, want.ID)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	saved := persisted(t, st)
	if len(saved) != 1 || saved[0].ID != "only" {
		t.Errorf("persisted = %+v, want only %q", saved, want.ID)
	}
}

func TestAddAssignsIDAndTime(t *testing.T) {
	clock := newClock()
	c := NewCenter(context.Background(), testutil.NewTestStore(t), WithClock(clock.Now))
	defer c.Close()

	c.Add(model.NotificationItem{})
	c.Add(model.NotificationItem{})

	items := c.Items()
	if items[0].ID == "" || items[0].ID == items[1].ID {
		t.Errorf("ids = %q, %q; want unique non-empty", items[0].ID, items[1].ID)
	}
	if items[0].ReceivedAt != clock.Now().UnixMilli() {
		t.Errorf("ReceivedAt = %d, want %d", items[0].ReceivedAt, clock.Now().UnixMilli())
	}
}

func TestRemoveAt(t *testing.T) {
	clock := newClock()
	c := NewCenter(context.Background(), testutil.NewTestStore(t), WithClock(clock.Now))
	defer c.Close()

	for _, id := range []string{"a", "b", "c"} {
		c.Add(model.NotificationItem{ID: id})
	}

	c.RemoveAt(-1)
	c.RemoveAt(3)
	if c.Len() != 3 {
		t.Fatalf("out of range RemoveAt changed len to %d", c.Len())
	}

	c.RemoveAt(1)
	items := c.Items()
	if len(items) != 2 || items[0].ID != "c" || items[1].ID != "a" {
		t.Errorf("items = %v, want [c a]", items)
	}
}

func TestLoadPrunesAndRepersistsOnlyWhenChanged(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	now := clock.Now()

	fresh := []model.NotificationItem{
		{ID: "new", ReceivedAt: now.Add(-time.Hour).UnixMilli()},
	}
	stale := append(fresh, model.NotificationItem{ID: "old", ReceivedAt: now.Add(-48 * time.Hour).UnixMilli()})

	t.Run("unchanged", func(t *testing.T) {
		st := &countingStore{Store: testutil.NewTestStore(t)}
		data, _ := json.Marshal(fresh)
		_ = st.Store.Set(ctx, store.KeyNotificationHistory, string(data))

		c := NewCenter(ctx, st, WithClock(clock.Now))
		_ = c.Close()

		if sets, _ := st.counts(); sets != 0 {
			t.Errorf("sets = %d, want 0", sets)
		}
		if c.Len() != 1 {
			t.Errorf("len = %d, want 1", c.Len())
		}
	})

	t.Run("pruned", func(t *testing.T) {
		st := &countingStore{Store: testutil.NewTestStore(t)}
		data, _ := json.Marshal(stale)
		_ = st.Store.Set(ctx, store.KeyNotificationHistory, string(data))

		c := NewCenter(ctx, st, WithClock(clock.Now))
		_ = c.Close()

		if sets, _ := st.counts(); sets != 1 {
			t.Errorf("sets = %d, want 1", sets)
		}
		saved := persisted(t, st)
		if len(saved) != 1 || saved[0].ID != "new" {
			t.Errorf("persisted = %+v, want only \"new\"", saved)
		}
	})
}

func TestCorruptHistoryStartsEmpty(t *testing.T) {
	st := testutil.NewTestStore(t)
	_ = st.Set(context.Background(), store.KeyNotificationHistory, "{not json")

	c := NewCenter(context.Background(), st)
	defer c.Close()

	if c.Len() != 0 {
		t.Errorf("len = %d, want 0", c.Len())
	}
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	st := &countingStore{Store: testutil.NewTestStore(t), failSet: true}
	c := NewCenter(context.Background(), st)

	c.Add(model.NotificationItem{ID: "a"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want in-memory item kept", c.Len())
	}
}

func TestHistorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	clock := newClock()

	c := NewCenter(ctx, st, WithClock(clock.Now))
	c.Receive("Incendie", "Cocody", json.RawMessage(`{"alert_id":"a1"}`))
	_ = c.Close()

	c2 := NewCenter(ctx, st, WithClock(clock.Now))
	defer c2.Close()

	items := c2.Items()
	if len(items) != 1 || items[0].TitleText() != "Incendie" || string(items[0].Data) != `{"alert_id":"a1"}` {
		t.Errorf("items = %+v", items)
	}
}

func TestRemoveAtPrunesExpired(t *testing.T) {
	clock := newClock()
	st := testutil.NewTestStore(t)
	c := NewCenter(context.Background(), st, WithClock(clock.Now))

	c.Add(model.NotificationItem{ID: "old"})
	clock.Advance(time.Hour)
	c.Add(model.NotificationItem{ID: "newer"})
	clock.Advance(23*time.Hour + 30*time.Minute)

	c.RemoveAt(0)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if c.Len() != 0 {
		t.Errorf("len = %d, want 0", c.Len())
	}
	if saved := persisted(t, st); len(saved) != 0 {
		t.Errorf("persisted = %+v, want empty", saved)
	}
}

func TestItemsPrunesExpired(t *testing.T) {
	clock := newClock()
	st := testutil.NewTestStore(t)
	c := NewCenter(context.Background(), st, WithClock(clock.Now))

	c.Add(model.NotificationItem{ID: "old"})
	clock.Advance(2 * time.Hour)
	c.Add(model.NotificationItem{ID: "fresh"})
	clock.Advance(23 * time.Hour)

	items := c.Items()
	if len(items) != 1 || items[0].ID != "fresh" {
		t.Fatalf("items = %+v, want only fresh", items)
	}
	_ = c.Close()

	saved := persisted(t, st)
	if len(saved) != 1 || saved[0].ID != "fresh" {
		t.Errorf("persisted = %+v, want only fresh", saved)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewCenter(context.Background(), testutil.NewTestStore(t))
	_ = c.Close()
	_ = c.Close()
	// Mutations after Close stay in memory only.
	c.Add(model.NotificationItem{ID: "late"})
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}
