// Package streamer packetizes compressed video frames into RTP packets
// and fans them out to every client attached to a stream (spec.md
// §4.3). It owns the per-client sequence counters, the per-frame
// fragmentation dispatch across pkg/rtp's codec packetizers, and the
// packet_gap pacing between fragments.
package streamer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/pion/rtp"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	streamrtp "github.com/ethan/stretch-rtsp-server/pkg/rtp"
)

// RTCPEmitter sends a periodic Sender Report/SDES compound packet to a
// client (spec.md §4.4 "Outbound (Sender Report)"). It is declared here,
// rather than imported from pkg/rtcp, because pkg/rtcp.Emitter needs
// *Client to build its compound packet and a pkg/streamer->pkg/rtcp
// import would cycle back; pkg/rtcp.Emitter satisfies this interface
// without pkg/streamer ever importing pkg/rtcp.
type RTCPEmitter interface {
	MaybeSend(client *Client, ssrc uint32, now uint32) error
}

var defaultEmitter RTCPEmitter

// SetDefaultEmitter installs the process-wide RTCP Sender Report emitter
// every Streamer uses, mirroring pkg/logger's SetDefault/Default pattern.
func SetDefaultEmitter(e RTCPEmitter) { defaultEmitter = e }

// Streamer owns the client list and packetization state for one
// Source (spec.md §3 "Streamer").
type Streamer struct {
	packetSize int
	ssrc       uint32
	pacer      *Pacer

	mu         sync.Mutex
	desc       mediatype.StreamDesc
	clients    []*Client
	seqNumber  uint16 // streamer's own counter; never written to the wire
	frameIndex int
}

// New builds a Streamer for packetSize-byte packets and the given
// initial stream description; pacer may be nil to disable pacing.
func New(packetSize int, desc mediatype.StreamDesc, pacer *Pacer) *Streamer {
	return &Streamer{
		packetSize: packetSize,
		ssrc:       randomSSRC(),
		pacer:      pacer,
		desc:       desc,
	}
}

func randomSSRC() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("streamer: failed to read random SSRC: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}

func (s *Streamer) SSRC() uint32 { return s.ssrc }

func (s *Streamer) SetStreamDesc(desc mediatype.StreamDesc) {
	s.mu.Lock()
	s.desc = desc
	s.mu.Unlock()
}

func (s *Streamer) StreamDesc() mediatype.StreamDesc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// AddClient attaches c under the client-list mutex (spec.md §4.3
// "Fan-out": "Adding/removing clients is also under this mutex").
func (s *Streamer) AddClient(c *Client) {
	s.mu.Lock()
	s.clients = append(s.clients, c)
	s.mu.Unlock()
}

// RemoveClient detaches c, if present.
func (s *Streamer) RemoveClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.clients {
		if existing == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

func (s *Streamer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Clients returns a snapshot of the attached clients, for callers (such
// as SetTemporalLevel's broadcast) that need to iterate without holding
// the fan-out lock for the whole iteration.
func (s *Streamer) Clients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// SetTemporalLevel broadcasts a new temporal level to every attached
// client (spec.md §4.7 "set_temporal_level(level) (broadcast to all
// clients on all streamers)").
func (s *Streamer) SetTemporalLevel(level int) {
	for _, c := range s.Clients() {
		c.SetTemporalLevel(level)
	}
}

// SendFrame fragments frame per the stream's codec and fans out each
// resulting RTP packet to every attached client (spec.md §4.3
// "Fan-out", "Packet pacing"). The frame's first byte is the NAL unit
// type octet for H.264, per the producer contract of spec.md §6.
func (s *Streamer) SendFrame(ctx context.Context, frame []byte, timestamp uint32) error {
	if len(frame) == 0 {
		return nil
	}

	desc := s.StreamDesc()
	frags, frameType, joinPoint := fragment(frame, desc, s.packetSize)
	if len(frags) == 0 {
		return nil
	}

	// frame_index only advances for H.264: the temporal-level drop rule
	// (frame_index & mask) is an H.264-only concept in the original
	// (rtp_streamer.cpp's mpeg4_send_frame/mjpeg_send_frame never touch
	// frame_index), so it stays permanently 0 for MJPEG/MPEG-4 sources,
	// which makes the mask check always pass and the drop rule a no-op
	// for those codecs.
	s.mu.Lock()
	if desc.EncoderType == mediatype.EncoderH264 {
		if frameType.ResetsFrameIndex() {
			s.frameIndex = 0
		} else {
			s.frameIndex++
		}
	}
	frameIndex := s.frameIndex
	s.mu.Unlock()

	pt := desc.EncoderType.PayloadType()
	starter := desc.EncoderType == mediatype.EncoderMPEG4 && streamrtp.IsMPEG4Starter(frame)

	for i, frag := range frags {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return err
			}
		}

		marker := frag.Last
		if frameType.IsMarkerSuppressed() {
			marker = false
		}
		if starter {
			marker = !marker
		}

		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:     2,
				Marker:      marker,
				PayloadType: pt,
				Timestamp:   timestamp,
				SSRC:        s.ssrc,
			},
			Payload: frag.Payload,
		}

		isJoin := joinPoint && i == 0

		s.mu.Lock()
		for _, c := range s.clients {
			sent, _ := c.Send(pkt, frameIndex, isJoin)
			if sent && defaultEmitter != nil {
				_ = defaultEmitter.MaybeSend(c, s.ssrc, timestamp)
			}
		}
		s.seqNumber++
		s.mu.Unlock()
	}

	return nil
}

// fragment dispatches to the per-codec packetizer in pkg/rtp and
// reports the access unit's frame type (H.264 only) and whether its
// first fragment is a valid join-point (spec.md §4.3 "Per-client
// gating").
func fragment(frame []byte, desc mediatype.StreamDesc, packetSize int) ([]streamrtp.Fragment, streamrtp.FrameType, bool) {
	switch desc.EncoderType {
	case mediatype.EncoderH264:
		frameType := streamrtp.ClassifyH264(frame[0])
		frags := streamrtp.FragmentH264(frame, packetSize)
		return frags, frameType, streamrtp.IsH264JoinPoint(frameType, true)
	case mediatype.EncoderMJPEG:
		frags := streamrtp.FragmentMJPEG(frame, packetSize, desc.Quality, desc.Width, desc.Height)
		return frags, streamrtp.FrameTypeOther, false
	case mediatype.EncoderMPEG4:
		frags := streamrtp.FragmentMPEG4(frame, packetSize)
		return frags, streamrtp.FrameTypeOther, streamrtp.IsMPEG4Starter(frame)
	default:
		return nil, streamrtp.FrameTypeOther, false
	}
}
