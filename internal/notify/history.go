package notify

import (
	"time"

	"github.com/nhle/alloci/internal/model"
)

// Eviction limits of the notification history.
const (
	MaxItems  = 200
	MaxAge    = 24 * time.Hour
	itemsHint = 16
)

// history is a newest-first bounded list. Entries older than maxAge are
// evicted on every prune, and pushes beyond capacity drop the oldest.
type history struct {
	items    []model.NotificationItem
	capacity int
	maxAge   time.Duration
}

func newHistory(capacity int, maxAge time.Duration) *history {
	if capacity <= 0 {
		capacity = MaxItems
	}
	return &history{
		items:    make([]model.NotificationItem, 0, itemsHint),
		capacity: capacity,
		maxAge:   maxAge,
	}
}

// push prepends item, then prunes and truncates.
func (h *history) push(item model.NotificationItem, now time.Time) {
	h.items = append(h.items, model.NotificationItem{})
	copy(h.items[1:], h.items)
	h.items[0] = item
	h.prune(now)
}

// prune drops expired entries and anything past capacity. It reports
// whether the list changed.
func (h *history) prune(now time.Time) bool {
	cutoff := now.Add(-h.maxAge).UnixMilli()
	kept := h.items[:0]
	for _, it := range h.items {
		if it.ReceivedAt < cutoff {
			continue
		}
		kept = append(kept, it)
	}
	changed := len(kept) != len(h.items)

	// Zero the dropped tail so the backing array does not pin payloads.
	for i := len(kept); i < len(h.items); i++ {
		h.items[i] = model.NotificationItem{}
	}
	h.items = kept

	if len(h.items) > h.capacity {
		for i := h.capacity; i < len(h.items); i++ {
			h.items[i] = model.NotificationItem{}
		}
		h.items = h.items[:h.capacity]
		changed = true
	}
	return changed
}

// removeAt deletes the entry at index and reports whether it existed.
func (h *history) removeAt(index int) bool {
	if index < 0 || index >= len(h.items) {
		return false
	}
	copy(h.items[index:], h.items[index+1:])
	h.items[len(h.items)-1] = model.NotificationItem{}
	h.items = h.items[:len(h.items)-1]
	return true
}

func (h *history) reset() {
	h.items = h.items[:0]
}

func (h *history) snapshot() []model.NotificationItem {
	out := make([]model.NotificationItem, len(h.items))
	copy(out, h.items)
	return out
}
