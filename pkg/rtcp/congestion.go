package rtcp

import (
	"time"

	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// Controller drives one client's temporal_level via the loss-history
// heuristic of spec.md §4.4, active only when the server's
// temporal_levels option is enabled. The one/three-bit trigger is
// preserved verbatim per spec.md §9 ("Temporal-level heuristic").
type Controller struct {
	increaseTime time.Duration

	history       uint32
	zeroSince     time.Time
	haveZeroSince bool
}

// NewController builds a Controller whose "sustained zero loss" window
// is increaseTime (the server's increase_time option).
func NewController(increaseTime time.Duration) *Controller {
	return &Controller{increaseTime: increaseTime}
}

// Observe feeds one RR's fraction_lost (already the raw 0..255 scale
// pion/rtcp decodes it to) into the controller at time now, applying
// client.ReduceLevel()/IncreaseLevel() as spec.md §4.4 prescribes.
func (c *Controller) Observe(client *streamer.Client, fractionLost uint8, now time.Time) {
	if fractionLost == 0 {
		if !c.haveZeroSince {
			c.zeroSince = now
			c.haveZeroSince = true
		} else if now.Sub(c.zeroSince) >= c.increaseTime {
			client.ReduceLevel()
			c.zeroSince = now
		}
	} else {
		c.haveZeroSince = false
	}

	var bit uint32
	if float64(fractionLost) > 0.02*256 {
		bit = 1
	}
	c.history = (c.history << 1) | bit

	low2 := c.history & 0x3
	low3 := c.history & 0x7
	if low2 == 0x1 || low3 == 0x7 {
		client.IncreaseLevel()
	}
}
