package ai

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/alloci/internal/store"
)

// MaxRecentPrompts bounds the recent prompts list.
const MaxRecentPrompts = 10

// RecentPrompts is the bounded, de-duplicated list of the user's last
// prompts, most recent first. It survives restarts through the store.
type RecentPrompts struct {
	mu     sync.Mutex
	items  []string
	store  store.Store
	logger zerolog.Logger
}

// LoadRecentPrompts reads the persisted list. A nil store keeps the list
// in memory only.
func LoadRecentPrompts(ctx context.Context, st store.Store, logger zerolog.Logger) *RecentPrompts {
	r := &RecentPrompts{store: st, logger: logger}
	if st == nil {
		return r
	}

	raw, err := st.Get(ctx, store.KeyRecentPrompts)
	if err != nil {
		if !store.IsNotFound(err) {
			logger.Warn().Err(err).Msg("loading recent prompts")
		}
		return r
	}

	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn().Err(err).Msg("decoding recent prompts")
		return r
	}
	for i := len(items) - 1; i >= 0; i-- {
		r.push(items[i])
	}
	return r
}

// Add moves prompt to the front, dropping any earlier copy and anything
// past the limit, then persists the list. Blank prompts are ignored.
func (r *RecentPrompts) Add(ctx context.Context, prompt string) {
	if strings.TrimSpace(prompt) == "" {
		return
	}

	r.mu.Lock()
	r.push(prompt)
	snapshot := r.snapshot()
	r.mu.Unlock()

	r.save(ctx, snapshot)
}

// List returns a copy of the prompts, most recent first.
func (r *RecentPrompts) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Clear forgets every prompt.
func (r *RecentPrompts) Clear(ctx context.Context) {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.Delete(ctx, store.KeyRecentPrompts); err != nil {
		r.logger.Warn().Err(err).Msg("deleting recent prompts")
	}
}

func (r *RecentPrompts) push(prompt string) {
	if strings.TrimSpace(prompt) == "" {
		return
	}
	items := make([]string, 0, MaxRecentPrompts)
	items = append(items, prompt)
	for _, p := range r.items {
		if p == prompt {
			continue
		}
		if len(items) == MaxRecentPrompts {
			break
		}
		items = append(items, p)
	}
	r.items = items
}

func (r *RecentPrompts) snapshot() []string {
	out := make([]string, len(r.items))
	copy(out, r.items)
	return out
}

func (r *RecentPrompts) save(ctx context.Context, items []string) {
	if r.store == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		r.logger.Warn().Err(err).Msg("encoding recent prompts")
		return
	}
	if err := r.store.Set(ctx, store.KeyRecentPrompts, string(data)); err != nil {
		r.logger.Warn().Err(err).Msg("saving recent prompts")
	}
}
