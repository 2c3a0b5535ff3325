// Package sync keeps the unread alerts counter in step with the server.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// SyncState represents the current state of the unread counter refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus describes the last refresh.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// UnreadCountMsg is a tea.Msg sent whenever the counter changes or a
// refresh completes.
type UnreadCountMsg struct {
	Count int
	Error error
}

// CountFetcher reads the server-side unread count. An empty userID asks
// for the anonymous count.
type CountFetcher interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// DefaultInterval is the fixed polling period.
const DefaultInterval = 20 * time.Second

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 15 * time.Second

// UnreadPoller polls the unread count on a fixed interval. Failures keep
// the previous value; there is no backoff.
type UnreadPoller struct {
	fetcher   CountFetcher
	interval  time.Duration
	logger    zerolog.Logger
	resultCh  chan UnreadCountMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      gosync.Mutex
	running bool
	userID  string
	count   int
	status  SyncStatus
}

// New creates an UnreadPoller. A non-positive interval uses DefaultInterval.
func New(fetcher CountFetcher, interval time.Duration, logger zerolog.Logger) *UnreadPoller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &UnreadPoller{
		fetcher:   fetcher,
		interval:  interval,
		logger:    logger,
		resultCh:  make(chan UnreadCountMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// SetUser scopes the count to userID and triggers a refresh when running.
func (p *UnreadPoller) SetUser(userID string) {
	p.mu.Lock()
	changed := p.userID != userID
	p.userID = userID
	p.mu.Unlock()

	if changed {
		p.RefreshNow()
	}
}

// Count returns the last known unread count.
func (p *UnreadPoller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Status returns the state of the last refresh.
func (p *UnreadPoller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Increment bumps the counter by one for a received push, ahead of the
// next poll.
func (p *UnreadPoller) Increment() int {
	p.mu.Lock()
	p.count++
	n := p.count
	p.mu.Unlock()

	p.sendResult(UnreadCountMsg{Count: n})
	return n
}

// Refresh fetches the count once. On failure the previous value is kept
// and returned along with the error.
func (p *UnreadPoller) Refresh(ctx context.Context) (int, error) {
	p.mu.Lock()
	userID := p.userID
	p.status.State = SyncRunning
	p.mu.Unlock()

	n, err := p.fetcher.UnreadCount(ctx, userID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.status.State = SyncError
		p.status.Error = err
		return p.count, err
	}
	p.count = n
	p.status = SyncStatus{State: SyncIdle, LastSync: time.Now()}
	return n, nil
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results. The first refresh happens immediately.
func (p *UnreadPoller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.loop(stopCh, doneCh)

	return p.waitForResult()
}

// Stop halts polling and waits for the loop to exit. It is safe to call
// more than once; Start may be called again afterwards.
func (p *UnreadPoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh
}

// RefreshNow triggers an immediate poll without waiting for the ticker.
func (p *UnreadPoller) RefreshNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already queued.
	}
}

// loop runs the fixed-interval polling.
func (p *UnreadPoller) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(stopCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.poll(stopCh)
		case <-p.triggerCh:
			p.poll(stopCh)
		}
	}
}

func (p *UnreadPoller) poll(stopCh <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	// Abort an in-flight request on Stop.
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	n, err := p.Refresh(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Int("kept", n).Msg("unread count refresh failed")
	}
	p.sendResult(UnreadCountMsg{Count: n, Error: err})
}

// sendResult sends a message on the result channel without blocking.
func (p *UnreadPoller) sendResult(msg UnreadCountMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *UnreadPoller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next count.
// Call it after handling an UnreadCountMsg to keep listening.
func (p *UnreadPoller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
