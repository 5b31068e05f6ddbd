// Package talker implements the per-connection RTSP control loop: one
// Talker per accepted TCP connection, reading requests and interleaved
// RTCP frames, dispatching to pkg/rtsp's Parser/Responder, and driving
// Source/Streamer/Client lifecycle (spec.md §4.5).
package talker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ethan/stretch-rtsp-server/pkg/config"
	"github.com/ethan/stretch-rtsp-server/pkg/logger"
	streamrtcp "github.com/ethan/stretch-rtsp-server/pkg/rtcp"
	"github.com/ethan/stretch-rtsp-server/pkg/rtsp"
	"github.com/ethan/stretch-rtsp-server/pkg/rtspid"
	"github.com/ethan/stretch-rtsp-server/pkg/source"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// maxMessageSize bounds one accumulated RTSP message; spec.md §7's
// SERVER_BUFFER_OVERFLOW guards a runaway or hostile peer.
const maxMessageSize = 16 * 1024

// Talker is the per-connection control loop of spec.md §4.5.
type Talker struct {
	conn    net.Conn
	opts    config.Options
	sources *source.SourceMap
	log     *logger.Logger

	writeMu sync.Mutex // shared between reply writes and interleaved RTP/RTCP writes
	pacer   *streamer.Pacer

	state       rtsp.ConnState
	session     rtspid.SessionID
	haveSession bool

	streamName string
	src        source.Source
	client     *streamer.Client
	sink       streamer.Transport // the client's own RTP/RTCP socket(s)

	congestion *streamrtcp.Controller
}

// New builds a Talker for an accepted connection. pacer is the
// server-wide packet-pacing limiter (spec.md §4.7's single packet_gap
// option applies across every source, not per-connection).
func New(conn net.Conn, opts config.Options, sources *source.SourceMap, pacer *streamer.Pacer, log *logger.Logger) *Talker {
	return &Talker{
		conn:    conn,
		opts:    opts,
		sources: sources,
		pacer:   pacer,
		log:     log,
		state:   rtsp.StateInit,
	}
}

// Serve runs the receive loop until the connection closes, a read
// fails, or ctx is canceled (spec.md §4.5 steps 1-2).
func (t *Talker) Serve(ctx context.Context) {
	defer t.teardown()
	defer t.conn.Close()

	r := bufio.NewReaderSize(t.conn, maxMessageSize)

	for ctx.Err() == nil {
		b, err := r.Peek(1)
		if err != nil {
			return
		}

		if b[0] == '$' {
			if err := t.handleInterleavedFrame(r); err != nil {
				t.log.DebugRTSP("interleaved frame read failed", "err", err)
				return
			}
			continue
		}

		msg, err := readRequestMessage(r)
		if err != nil {
			return
		}
		t.handleMessage(msg)
	}
}

// readRequestMessage accumulates lines up to the blank line that
// terminates an RTSP request (spec.md §4.1: "a contiguous byte buffer
// terminated by \r\n\r\n").
func readRequestMessage(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := r.ReadBytes('\n')
		buf.Write(line)
		if err != nil {
			return nil, err
		}
		if buf.Len() > maxMessageSize {
			return buf.Bytes(), nil // ParseRequest rejects with SERVER_BUFFER_OVERFLOW
		}
		if trimmed := bytes.TrimRight(line, "\r\n"); len(trimmed) == 0 {
			return buf.Bytes(), nil
		}
	}
}

// handleInterleavedFrame reads one '$'-framed payload (spec.md §4.5
// step 1's interleaved-RTCP branch) and, for channel 1, hands it to the
// congestion controller.
func (t *Talker) handleInterleavedFrame(r *bufio.Reader) error {
	hdr, err := r.Peek(4)
	if err != nil {
		return err
	}
	channel := hdr[1]
	length := binary.BigEndian.Uint16(hdr[2:4])
	if _, err := r.Discard(4); err != nil {
		return err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}

	if channel == 1 {
		t.handleRTCP(payload)
	}
	return nil
}

func (t *Talker) handleRTCP(payload []byte) {
	if t.client == nil {
		return
	}
	rr, _, err := streamrtcp.ParseReport(payload)
	if err != nil || rr == nil || len(rr.Reports) == 0 {
		return
	}
	if !t.opts.TemporalLevels {
		return
	}
	if t.congestion == nil {
		t.congestion = streamrtcp.NewController(t.opts.IncreaseTime)
	}
	t.congestion.Observe(t.client, rr.Reports[0].FractionLost, time.Now())
}

// handleMessage dispatches one parsed RTSP request to its handler
// (spec.md §4.5 step 2).
func (t *Talker) handleMessage(msg []byte) {
	req, status := rtsp.ParseRequest(msg)
	if status != rtsp.StatusOK {
		t.reply(rtsp.BuildError(status, cseqOf(req)))
		return
	}

	if sess, ok := req.Header("Session"); ok && t.haveSession {
		if parsed, err := rtspid.Parse(sess); err != nil || parsed != t.session {
			t.reply(rtsp.BuildError(rtsp.StatusSessionNotFound, req.CSeq))
			return
		}
	}

	nextState, status := rtsp.Validate(req.Method, t.state)
	if status != rtsp.StatusOK {
		t.reply(rtsp.BuildError(status, req.CSeq))
		return
	}

	switch req.Method {
	case rtsp.MethodOptions:
		t.reply(rtsp.BuildOptions(req.CSeq))
	case rtsp.MethodDescribe:
		t.handleDescribe(req)
	case rtsp.MethodSetup:
		t.handleSetup(req, nextState)
	case rtsp.MethodPlay:
		t.handlePlay(req, nextState)
	case rtsp.MethodGetParameter:
		t.handleGetParameter(req)
	case rtsp.MethodTeardown, rtsp.MethodPause:
		t.handleTeardown(req, nextState)
	}
}

func cseqOf(req *rtsp.Request) int {
	if req == nil {
		return 0
	}
	return req.CSeq
}

func (t *Talker) reply(text string) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := io.WriteString(t.conn, text); err != nil {
		t.log.DebugRTSP("reply write failed", "err", err)
	}
}

// teardown releases every resource this Talker attached: the Client
// from its Streamer and, if the last client just left a FileSource,
// the FileSource itself (spec.md §4.5 step 5, §3 "Lifecycles").
func (t *Talker) teardown() {
	if t.client == nil || t.src == nil {
		return
	}

	t.client.Stop()
	t.src.Streamer().RemoveClient(t.client)
	if t.sink != nil {
		t.sink.Close()
	}

	if t.src.Streamer().ClientCount() == 0 && !t.src.IsLive() {
		t.src.Teardown()
		if name, ok := t.src.Name(); ok {
			t.sources.EraseByName(name)
		}
	}

	t.client = nil
	t.src = nil
	t.sink = nil
}
