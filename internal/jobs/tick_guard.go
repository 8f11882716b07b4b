package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MaxTickDuration bounds one publisher cycle.
const MaxTickDuration = 5 * time.Minute

type Ticker interface {
	Tick(ctx context.Context) error
}

// TickGuard runs one tick at a time under a deadline. Calls that arrive while
// a tick is still running are skipped.
type TickGuard struct {
	t       Ticker
	timeout time.Duration
	mu      sync.Mutex
}

func NewTickGuard(t Ticker, timeout time.Duration) *TickGuard {
	if timeout <= 0 {
		timeout = MaxTickDuration
	}
	return &TickGuard{t: t, timeout: timeout}
}

func (g *TickGuard) Tick(ctx context.Context) error {
	if !g.mu.TryLock() {
		slog.Info("publisher tick skipped, previous tick still running")
		return nil
	}
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.t.Tick(ctx)
}
