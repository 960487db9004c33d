package foxess

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateGate spaces calls to the signed api family. One gate is shared by every client using the same api key.
type RateGate struct {
	limiter *rate.Limiter
}

func NewRateGate(spacing, buffer time.Duration) *RateGate {
	return &RateGate{
		limiter: rate.NewLimiter(rate.Every(spacing+buffer), 1),
	}
}

// Wait blocks until the next call may be issued.
func (g *RateGate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}
