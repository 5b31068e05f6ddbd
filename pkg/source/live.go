package source

import (
	"context"
	"sync"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// LiveSource is fed frames by an external producer — an encoder SDK
// callback or the A2A frame adapter (spec.md §6 "Frame-producer
// contract"). It is created lazily on first use and, per spec.md §3
// "Lifecycles", destroyed only at process exit.
type LiveSource struct {
	id          uint32
	encoderType mediatype.EncoderType
	streamerObj *streamer.Streamer
	sps         *spsCache

	descMu sync.RWMutex
	desc   mediatype.StreamDesc
	descOK bool
}

// NewLiveSource builds a LiveSource for the given numeric stream id.
func NewLiveSource(id uint32, encoderType mediatype.EncoderType, packetSize int, pacer *streamer.Pacer) *LiveSource {
	return &LiveSource{
		id:          id,
		encoderType: encoderType,
		streamerObj: streamer.New(packetSize, mediatype.StreamDesc{EncoderType: encoderType}, pacer),
		sps:         newSPSCache(),
	}
}

func (s *LiveSource) ID() (uint32, bool)   { return s.id, true }
func (s *LiveSource) Name() (string, bool) { return "", false }
func (s *LiveSource) IsLive() bool         { return true }

func (s *LiveSource) EncoderType() mediatype.EncoderType { return s.encoderType }

func (s *LiveSource) StreamDesc() (mediatype.StreamDesc, bool) {
	s.descMu.RLock()
	defer s.descMu.RUnlock()
	return s.desc, s.descOK
}

// SetStreamDesc fills the stream description on first DESCRIBE (spec.md
// §3: "filled on first DESCRIBE").
func (s *LiveSource) SetStreamDesc(desc mediatype.StreamDesc) {
	s.descMu.Lock()
	s.desc = desc
	s.descOK = true
	s.descMu.Unlock()
	s.streamerObj.SetStreamDesc(desc)
}

func (s *LiveSource) WaitSPS(ctx context.Context) ([]byte, []byte, bool) {
	if s.encoderType != mediatype.EncoderH264 {
		return nil, nil, true
	}
	return s.sps.wait(ctx)
}

func (s *LiveSource) Streamer() *streamer.Streamer { return s.streamerObj }

// SendFrame is called by FrameIngest on behalf of the external producer
// callback (spec.md §6).
func (s *LiveSource) SendFrame(frame []byte, timestamp uint32) error {
	if s.encoderType == mediatype.EncoderH264 && len(frame) > 0 {
		s.sps.Observe(frame)
	}
	return s.streamerObj.SendFrame(context.Background(), frame, timestamp)
}

// RequestAppPlay is a no-op for a live source: the producer thread runs
// regardless of whether any client has issued PLAY (spec.md §9
// "Inheritance collapse").
func (s *LiveSource) RequestAppPlay() error { return nil }

// Teardown is a no-op: a LiveSource persists for the process lifetime
// (spec.md §3 "Lifecycles").
func (s *LiveSource) Teardown() {}
