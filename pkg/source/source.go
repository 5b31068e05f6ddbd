package source

import (
	"context"
	"sync"
	"time"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	streamrtp "github.com/ethan/stretch-rtsp-server/pkg/rtp"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// spsWaitPoll/spsWaitTotal implement the bounded DESCRIBE wait of
// spec.md §3: "block up to ~1.8 s waiting for both SPS and PPS", which
// spec.md §5 describes as "a bounded poll (~60 iterations × 30 ms)".
const (
	spsWaitPoll  = 30 * time.Millisecond
	spsWaitTotal = 60 * spsWaitPoll
)

// Source is the shared behavior trait spec.md §9's "Inheritance
// collapse" calls for: both LiveSource and FileSource implement it, and
// callers (Talker, FrameIngest) never need to know which.
type Source interface {
	// ID reports the numeric stream id and whether one is set (live
	// sources only; spec.md §3 "exactly one of id or name populated").
	ID() (uint32, bool)
	// Name reports the file-path name and whether one is set.
	Name() (string, bool)
	// IsLive reports whether this is a LiveSource.
	IsLive() bool
	// EncoderType returns the codec this source produces.
	EncoderType() mediatype.EncoderType
	// StreamDesc returns the cached stream description and whether one
	// has been set. A LiveSource's is set by SetStreamDesc (on its first
	// DESCRIBE), not by SendFrame; a FileSource always has one.
	StreamDesc() (mediatype.StreamDesc, bool)
	// WaitSPS blocks up to the DESCRIBE wait bound for SPS/PPS to appear,
	// returning them (and true) as soon as both are non-empty, or
	// (nil, nil, false) on timeout. Non-H.264 sources return immediately
	// with ok=true and nil buffers.
	WaitSPS(ctx context.Context) (sps, pps []byte, ok bool)
	// Streamer returns the one Streamer this source owns.
	Streamer() *streamer.Streamer
	// SendFrame hands one compressed frame to the source's Streamer
	// (spec.md §3, §4.3's "caller of send_frame").
	SendFrame(frame []byte, timestamp uint32) error
	// RequestAppPlay signals the source that a client has issued PLAY;
	// FileSource uses it to start its reader goroutine on first PLAY.
	// LiveSource is a no-op since the producer thread already runs.
	RequestAppPlay() error
	// Teardown releases source-owned resources. For a LiveSource this is
	// a no-op (it persists for process lifetime); FileSource stops its
	// reader goroutine.
	Teardown()
}

// spsCache holds the mutex-protected SPS/PPS buffers common to both
// source kinds (spec.md §3 "owned byte buffers; mutex-protected").
type spsCache struct {
	mu  sync.RWMutex
	sps []byte
	pps []byte

	// ready is closed exactly once, the first time both sps and pps are
	// non-empty, so WaitSPS can select on it instead of polling; a timer
	// of spsWaitTotal and context cancellation are the only other ways
	// the wait ends.
	readyOnce sync.Once
	ready     chan struct{}
}

func newSPSCache() *spsCache {
	return &spsCache{ready: make(chan struct{})}
}

// Observe updates the cached SPS or PPS buffer for an incoming NAL unit,
// per spec.md §3's "SPS/PPS: updated on every NAL whose type byte low-5
// bits equals 7 or 8 respectively." Replacement is atomic w.r.t. readers
// holding the lock, and buffers are reallocated rather than extended.
func (c *spsCache) Observe(nal []byte) {
	if len(nal) == 0 {
		return
	}
	switch streamrtp.ClassifyH264(nal[0]) {
	case streamrtp.FrameTypeSPS:
		c.mu.Lock()
		c.sps = append([]byte(nil), nal...)
		c.maybeReadyLocked()
		c.mu.Unlock()
	case streamrtp.FrameTypePPS:
		c.mu.Lock()
		c.pps = append([]byte(nil), nal...)
		c.maybeReadyLocked()
		c.mu.Unlock()
	}
}

func (c *spsCache) maybeReadyLocked() {
	if len(c.sps) > 0 && len(c.pps) > 0 {
		c.readyOnce.Do(func() { close(c.ready) })
	}
}

func (c *spsCache) get() (sps, pps []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sps, c.pps
}

// wait blocks up to spsWaitTotal for both SPS and PPS to be populated.
func (c *spsCache) wait(ctx context.Context) (sps, pps []byte, ok bool) {
	if sps, pps := c.get(); len(sps) > 0 && len(pps) > 0 {
		return sps, pps, true
	}

	timer := time.NewTimer(spsWaitTotal)
	defer timer.Stop()

	select {
	case <-c.ready:
		sps, pps := c.get()
		return sps, pps, true
	case <-timer.C:
		return nil, nil, false
	case <-ctx.Done():
		return nil, nil, false
	}
}
