package ingest

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/ethan/stretch-rtsp-server/pkg/logger"
	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
)

// a2aHeaderSize is the fixed prefix before each frame's payload on an
// A2AChannel connection: a 4-byte RTP-clock timestamp, a 1-byte
// EncoderType, and a 4-byte big-endian payload length.
const a2aHeaderSize = 9

// A2AChannel is the message-bus frame-producer adapter: a peer
// processor streams framed segments over conn instead of calling into
// this process directly. It funnels into the same FrameProducer path
// as FrameIngest (spec.md §6's "A2A adapter", functionally identical
// to the SDK callback).
type A2AChannel struct {
	conn               net.Conn
	chanNum, streamNum int
	producer           FrameProducer
	log                *logger.Logger
}

// NewA2AChannel builds an adapter reading framed segments from conn
// and dispatching them to producer as frames for (chanNum, streamNum).
func NewA2AChannel(conn net.Conn, chanNum, streamNum int, producer FrameProducer, log *logger.Logger) *A2AChannel {
	return &A2AChannel{conn: conn, chanNum: chanNum, streamNum: streamNum, producer: producer, log: log}
}

// Run reads framed segments until conn closes, ctx is canceled, or a
// malformed header is seen. It returns nil on a clean EOF.
func (a *A2AChannel) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.conn.Close()
	}()

	r := bufio.NewReader(a.conn)
	var hdr [a2aHeaderSize]byte

	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("ingest: read a2a header: %w", err)
		}

		timestamp := binary.BigEndian.Uint32(hdr[0:4])
		encoderType := mediatype.EncoderType(hdr[4])
		length := binary.BigEndian.Uint32(hdr[5:9])

		frame := make([]byte, length)
		if _, err := io.ReadFull(r, frame); err != nil {
			return fmt.Errorf("ingest: read a2a payload: %w", err)
		}

		if err := a.producer.OnFrame(a.chanNum, a.streamNum, frame, timestamp, encoderType); err != nil {
			a.log.DebugSource("a2a frame dropped", "chan", a.chanNum, "stream", a.streamNum, "err", err)
		}
	}
}
