package streamer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the server's packet_gap option (spec.md §4.3 "Packet
// pacing"): "The first packet of a frame records a monotonic timestamp;
// subsequent packets busy-wait until last_tick + packet_gap before
// calling socket send." A token-bucket limiter with burst 1 gives us
// exactly that: the first Wait of a run drains the initial token
// immediately, and every call after it blocks until one gap has
// elapsed.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a Pacer for the given packet_gap. A zero or negative
// gap disables pacing (Wait never blocks).
func NewPacer(gap time.Duration) *Pacer {
	if gap <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(gap), 1)}
}

// Wait blocks until the next packet may be sent, or ctx is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
