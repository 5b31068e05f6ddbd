// Package ingest adapts external frame producers onto the Source
// registry. Two producers exist: a direct SDK callback (FrameIngest)
// and a message-bus adapter (A2AChannel) that reads framed segments
// off a connection; both resolve (chan, stream) to a stream id and
// hand the frame to the matching live Source, creating it on first
// frame if absent (spec.md §6 "Frame-producer contract").
package ingest

import (
	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/rtsp"
	"github.com/ethan/stretch-rtsp-server/pkg/source"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// FrameProducer is the interface every frame-ingest path implements:
// one call per compressed frame, keyed by the originating channel and
// stream number.
type FrameProducer interface {
	OnFrame(chanNum, streamNum int, frame []byte, timestamp uint32, encoderType mediatype.EncoderType) error
}

// FrameIngest is the direct encoder-SDK callback adapter: the external
// SDK invokes OnFrame on its own thread, which this package requires
// be reentrant across distinct streams (spec.md §5).
type FrameIngest struct {
	sources    *source.SourceMap
	packetSize int
	pacer      *streamer.Pacer
}

// NewFrameIngest builds a FrameIngest over the given process-wide
// SourceMap and pacing/packetization settings.
func NewFrameIngest(sources *source.SourceMap, packetSize int, pacer *streamer.Pacer) *FrameIngest {
	return &FrameIngest{sources: sources, packetSize: packetSize, pacer: pacer}
}

// OnFrame resolves (chanNum, streamNum) to a stream id, creates the
// LiveSource on first reference, and hands the frame to its Streamer.
func (f *FrameIngest) OnFrame(chanNum, streamNum int, frame []byte, timestamp uint32, encoderType mediatype.EncoderType) error {
	id := rtsp.StreamID(chanNum, streamNum)
	src := f.sources.GetOrCreateLive(id, func() source.Source {
		return source.NewLiveSource(id, encoderType, f.packetSize, f.pacer)
	})
	return src.SendFrame(frame, timestamp)
}

var _ FrameProducer = (*FrameIngest)(nil)
