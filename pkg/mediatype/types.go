// Package mediatype holds the codec/stream-description types shared by
// pkg/source, pkg/streamer and pkg/rtsp, kept separate so those three can
// depend on the vocabulary without depending on each other.
package mediatype

// EncoderType identifies the codec a Source produces (spec.md §3).
type EncoderType int

const (
	EncoderUnknown EncoderType = iota
	EncoderH264
	EncoderMJPEG
	EncoderMPEG4
)

func (e EncoderType) String() string {
	switch e {
	case EncoderH264:
		return "H264"
	case EncoderMJPEG:
		return "MJPEG"
	case EncoderMPEG4:
		return "MPEG4"
	default:
		return "UNKNOWN"
	}
}

// PayloadType returns the RTP payload type for the encoder, per
// spec.md §4.2 ("PT"): 96 for H.264, 26 for MJPEG, 96 for MPEG-4.
func (e EncoderType) PayloadType() uint8 {
	switch e {
	case EncoderMJPEG:
		return 26
	default:
		return 96
	}
}

// StreamDesc is the stream description filled on first DESCRIBE
// (spec.md §3).
type StreamDesc struct {
	EncoderType EncoderType
	Bitrate     int // kbit/s, used for SDP b=AS:
	Quality     uint8
	Width       uint16
	Height      uint16
}
