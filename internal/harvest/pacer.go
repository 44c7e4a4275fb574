package harvest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the minimum gap between consecutive remote calls.
type Pacer interface {
	// Wait blocks until the next call is allowed, or the context ends.
	Wait(ctx context.Context) error
}

// NewPacer builds a token-bucket pacer with the given inter-request
// interval. Burst 1 leaves the first call of a run unthrottled; every later
// gap is at least interval.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return noopPacer{}
	}
	return &limiterPacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

type limiterPacer struct {
	lim *rate.Limiter
}

func (p *limiterPacer) Wait(ctx context.Context) error {
	if err := p.lim.Wait(ctx); err != nil {
		return fmt.Errorf("pace wait: %w", err)
	}
	return nil
}

type noopPacer struct{}

func (noopPacer) Wait(context.Context) error { return nil }
