// Package sync keeps a todo store's aggregates fresh by refreshing it in
// the background.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/todosync/internal/api"
)

// SyncState represents the current state of the refresher.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus is a snapshot of the refresher's state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResult is sent after every refresh attempt.
type SyncResult struct {
	At    time.Time
	Error error

	// AuthError is set when the server rejected the API token.
	AuthError bool
}

// Refresher is the work done on every tick. *todostore.Store satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// refreshTimeout is the maximum time allowed for a single refresh.
const refreshTimeout = 30 * time.Second

// defaultInterval is used when the configured interval is not positive.
const defaultInterval = 60 * time.Second

// Poller refreshes a Refresher on a fixed interval and on demand.
type Poller struct {
	target    Refresher
	interval  time.Duration
	logger    *zap.Logger
	status    SyncStatus
	resultCh  chan SyncResult
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        gosync.Mutex
	started   bool
	stopOnce  gosync.Once
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger used for refresh failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// New creates a Poller. It does nothing until Start is called.
func New(target Refresher, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	p := &Poller{
		target:    target,
		interval:  interval,
		logger:    zap.NewNop(),
		resultCh:  make(chan SyncResult, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling goroutine. It refreshes once immediately and
// then every interval until Stop is called or ctx is cancelled. A Poller
// runs at most once; later calls are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop halts polling and waits for an in-flight refresh to return.
// It is safe to call more than once, and before Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.doneCh
	}
}

// RefreshNow asks for an immediate refresh. A request made while another
// is queued is dropped.
func (p *Poller) RefreshNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Results delivers one SyncResult per refresh. Results are dropped when
// nobody reads them.
func (p *Poller) Results() <-chan SyncResult {
	return p.resultCh
}

// Status returns the current sync status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.triggerCh:
			p.refresh(ctx)
		}
	}
}

// refresh performs a single refresh and publishes the result.
func (p *Poller) refresh(ctx context.Context) {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	err := p.target.Refresh(ctx)
	result := SyncResult{At: time.Now(), Error: err}
	if err != nil {
		result.AuthError = api.IsUnauthorized(err)
		p.logger.Warn("background refresh failed",
			zap.Error(err),
			zap.Bool("auth", result.AuthError),
		)
		p.setStatus(SyncError, err)
	} else {
		p.setStatus(SyncIdle, nil)
	}

	select {
	case p.resultCh <- result:
	default:
	}
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle {
		p.status.LastSync = time.Now()
	}
}
