// Package rtp implements the per-codec RTP packetization engine: H.264
// FU-A fragmentation (RFC 6184 §5.8), MJPEG type-1 fragmentation (RFC
// 2435), and MPEG-4 whole/split packetization. It produces RTP payload
// bytes only; pkg/streamer wraps them in an RTP header (built with
// github.com/pion/rtp) and fans them out to clients.
package rtp

// H.264 NAL unit types (low 5 bits of the first NAL byte).
const (
	NALUTypePFrame = 1
	NALUTypeIFrame = 5
	NALUTypeSEI    = 6
	NALUTypeSPS    = 7
	NALUTypePPS    = 8
	NALUTypeAUD    = 9
	NALUTypeSTAPA  = 24
	NALUTypeFUA    = 28
)

// FrameType classifies an access unit for frame_index reset and
// join-point gating (spec.md §3, §4.3).
type FrameType byte

const (
	FrameTypeOther FrameType = 0
	FrameTypeP     FrameType = 'P'
	FrameTypeI     FrameType = 'I'
	FrameTypeSPS   FrameType = 's'
	FrameTypePPS   FrameType = 'p'
)

// ClassifyH264 maps a NAL unit's type octet to the frame_type classifier
// of spec.md §4.3: NAL types 1, 5, 7, 8 map to 'P', 'I', 's', 'p'.
func ClassifyH264(nalHeader byte) FrameType {
	switch nalHeader & 0x1F {
	case NALUTypePFrame:
		return FrameTypeP
	case NALUTypeIFrame:
		return FrameTypeI
	case NALUTypeSPS:
		return FrameTypeSPS
	case NALUTypePPS:
		return FrameTypePPS
	default:
		return FrameTypeOther
	}
}

// ResetsFrameIndex reports whether this frame type resets the streamer's
// frame_index counter to 0 (SPS, PPS and I-frames do; spec.md §4.3).
func (t FrameType) ResetsFrameIndex() bool {
	return t == FrameTypeSPS || t == FrameTypePPS || t == FrameTypeI
}

// IsMarkerSuppressed reports whether the RTP marker bit MUST NOT be set
// for the last packet of this access unit. SPS and PPS never carry the
// marker (spec.md §4.3); every other H.264 frame type does.
func (t FrameType) IsMarkerSuppressed() bool {
	return t == FrameTypeSPS || t == FrameTypePPS
}

// IsH264JoinPoint reports whether a packet is a valid join-point for a
// client transitioning from REQUEST to PLAY: the first packet of an SPS
// (spec.md §4.3 "Per-client gating").
func IsH264JoinPoint(t FrameType, firstFragment bool) bool {
	return t == FrameTypeSPS && firstFragment
}

// IsMPEG4Starter reports whether a MPEG-4 frame is a "starter" — one
// beginning with the VOL header start code 00 00 01 B0 — which inverts
// marker-bit semantics (spec.md §4.3) and also serves as the MPEG-4
// join-point. It does not reset frame_index, which only H.264 frames
// advance or reset.
func IsMPEG4Starter(frame []byte) bool {
	return len(frame) >= 4 && frame[0] == 0x00 && frame[1] == 0x00 && frame[2] == 0x01 && frame[3] == 0xB0
}
