package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval matches the observed verification re-check cadence.
const DefaultPollInterval = 3 * time.Second

// Poller re-checks verification status on a fixed interval until the
// check reports verified (OnVerified fires once, polling stops) or
// Stop is called. A failed check is swallowed and retried on the next
// tick; it never surfaces to callers.
type Poller struct {
	interval   time.Duration
	check      func(ctx context.Context) (bool, error)
	onVerified func()
	logger     *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller. A non-positive interval falls back to
// DefaultPollInterval. onVerified may be nil.
func NewPoller(interval time.Duration, check func(ctx context.Context) (bool, error), onVerified func(), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval:   interval,
		check:      check,
		onVerified: onVerified,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins polling in a new goroutine. The poller also stops when
// ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop cancels polling. Safe to call multiple times and after the
// poller has already finished.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Done returns a channel closed once polling has fully stopped.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			verified, err := p.check(ctx)
			if err != nil {
				// Swallowed; the next tick retries.
				if p.logger != nil {
					p.logger.Debug("verification check failed", "error", err)
				}
				continue
			}
			if verified {
				if p.onVerified != nil {
					p.onVerified()
				}
				return
			}
		}
	}
}
