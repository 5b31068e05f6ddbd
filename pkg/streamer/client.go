package streamer

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

// ClientState is the per-client state machine of spec.md §3: "state:
// STOP | REQUEST | PLAY".
type ClientState int32

const (
	StateStop ClientState = iota
	StateRequest
	StatePlay
)

func (s ClientState) String() string {
	switch s {
	case StateStop:
		return "STOP"
	case StateRequest:
		return "REQUEST"
	case StatePlay:
		return "PLAY"
	default:
		return "UNKNOWN"
	}
}

// Client is one RTP/RTCP destination attached to a Streamer (spec.md
// §3 "Client"). Its socket is written only by the streamer's fan-out
// call; its state is written by the Talker (PLAY/TEARDOWN) and read by
// the fan-out, so state and counters are atomics rather than
// mutex-guarded (spec.md §5 "use atomic load/store for the state").
type Client struct {
	ID        string
	Transport Transport

	state atomic.Int32
	seq   atomic.Uint32 // low 16 bits on the wire; wraps per spec.md §4.3

	totalBytes    atomic.Uint64
	totalPackets  atomic.Uint64
	lastRTCPTime  atomic.Int64
	temporalLevel atomic.Int32
}

// NewClient builds a Client in state STOP, attached to t.
func NewClient(id string, t Transport) *Client {
	c := &Client{ID: id, Transport: t}
	c.state.Store(int32(StateStop))
	c.lastRTCPTime.Store(-1) // sentinel: no SR sent yet
	return c
}

func (c *Client) State() ClientState { return ClientState(c.state.Load()) }

func (c *Client) SetState(s ClientState) { c.state.Store(int32(s)) }

// Play flips the client toward PLAY without skipping the join-point
// gate: spec.md §4.5 step 4, "client.play() flips the client's state to
// REQUEST (not yet PLAY); actual transition happens on the next valid
// join-point frame inside send."
func (c *Client) Play() { c.state.Store(int32(StateRequest)) }

// Stop forces the client to STOP, per spec.md §5: "A socket send
// failure switches the Client to STOP."
func (c *Client) Stop() { c.state.Store(int32(StateStop)) }

func (c *Client) TemporalLevel() int { return int(c.temporalLevel.Load()) }

func (c *Client) SetTemporalLevel(level int) {
	if level < 0 {
		level = 0
	}
	if level > 2 {
		level = 2
	}
	c.temporalLevel.Store(int32(level))
}

// ReduceLevel and IncreaseLevel are the congestion-control vocabulary
// of spec.md §4.4, clamped to [0,2].
func (c *Client) ReduceLevel() {
	for {
		cur := c.temporalLevel.Load()
		if cur <= 0 {
			return
		}
		if c.temporalLevel.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (c *Client) IncreaseLevel() {
	for {
		cur := c.temporalLevel.Load()
		if cur >= 2 {
			return
		}
		if c.temporalLevel.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

func (c *Client) TotalBytes() uint64   { return c.totalBytes.Load() }
func (c *Client) TotalPackets() uint64 { return c.totalPackets.Load() }

func (c *Client) LastRTCPTime() int64     { return c.lastRTCPTime.Load() }
func (c *Client) SetLastRTCPTime(t int64) { c.lastRTCPTime.Store(t) }

func (c *Client) nextSeq() uint16 {
	return uint16(c.seq.Add(1) - 1)
}

// admit applies the per-client gating rule of spec.md §4.3 ("Per-client
// gating"), returning false if this packet must be dropped for this
// client. It performs the REQUEST→PLAY join-point transition as a side
// effect.
func (c *Client) admit(frameIndex int, isJoinPoint bool) bool {
	switch c.State() {
	case StateStop:
		return false
	case StateRequest:
		if !isJoinPoint {
			return false
		}
		c.SetState(StatePlay)
	}

	level := c.TemporalLevel()
	mask := uint32(3 >> uint(2-level))
	return uint32(frameIndex)&mask == 0
}

// Send writes one RTP packet to the client, after gating and after
// patching in the client's own sequence counter (spec.md §4.3: "the
// on-wire value is always the per-client counter"). A write error
// forces the client to STOP, per spec.md §5. sent reports whether a
// packet was actually written to the wire, as distinct from a nil error
// returned because the packet was gated/dropped; callers (the Streamer's
// fan-out) use sent to decide whether this was a genuine "packet send"
// for RTCP Sender Report cadence purposes (spec.md §4.4).
func (c *Client) Send(pkt rtp.Packet, frameIndex int, isJoinPoint bool) (sent bool, err error) {
	if !c.admit(frameIndex, isJoinPoint) {
		return false, nil
	}

	pkt.SequenceNumber = c.nextSeq()
	raw, err := pkt.Marshal()
	if err != nil {
		return false, err
	}

	if err := c.Transport.WriteRTP(raw); err != nil {
		c.Stop()
		return false, err
	}

	c.totalBytes.Add(uint64(len(raw)))
	c.totalPackets.Add(1)
	return true, nil
}
