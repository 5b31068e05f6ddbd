package talker

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/rtsp"
	"github.com/ethan/stretch-rtsp-server/pkg/rtspid"
	"github.com/ethan/stretch-rtsp-server/pkg/source"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// describeWait is an outer bound on how long a DESCRIBE waits for
// SPS/PPS. It is longer than the spsCache's own internal bound, so that
// bound is the one that ends the wait; the context is not tied to the
// connection, so a closed connection does not cut the wait short.
const describeWait = 3 * time.Second

// resolveSource finds or creates the Source named by an RTSP request
// URI, per spec.md §3 "Lifecycles": a numeric name resolves to a
// LiveSource (created lazily on first reference), anything else to a
// FileSource opened from disk on first reference and cached by name
// thereafter.
func (t *Talker) resolveSource(rawURL string) (source.Source, rtsp.Status) {
	name, status := rtsp.StreamName(rawURL)
	if status != rtsp.StatusOK {
		return nil, status
	}

	if id, ok := rtsp.ParseStreamID(name); ok {
		src := t.sources.GetOrCreateLive(id, func() source.Source {
			return source.NewLiveSource(id, mediatype.EncoderH264, t.opts.PacketSize, t.pacer)
		})
		t.streamName = name
		return src, rtsp.StatusOK
	}

	if existing, ok := t.sources.FindByName(name); ok {
		t.streamName = name
		return existing, rtsp.StatusOK
	}

	fs, err := source.OpenFile(name, name, t.opts.PacketSize, t.opts.FPS, t.opts.TSClock, t.pacer)
	switch {
	case errors.Is(err, source.ErrNotFound):
		return nil, rtsp.StatusNotFound
	case errors.Is(err, source.ErrInvalidStream):
		return nil, rtsp.StatusBadRequest
	case err != nil:
		t.log.DebugTalker("open file source failed", "name", name, "err", err)
		return nil, rtsp.StatusInternalServerError
	}

	t.sources.SaveByName(name, fs)
	t.streamName = name
	return fs, rtsp.StatusOK
}

// handleDescribe implements spec.md §4.2/§4.5: resolve the source,
// block up to the bounded wait for SPS/PPS on H.264 sources, fill in
// the stream description on a LiveSource's first DESCRIBE, and render
// the SDP body.
func (t *Talker) handleDescribe(req *rtsp.Request) {
	src, status := t.resolveSource(req.URI)
	if status != rtsp.StatusOK {
		t.reply(rtsp.BuildError(status, req.CSeq))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), describeWait)
	sps, pps, ok := src.WaitSPS(ctx)
	cancel()
	if src.EncoderType() == mediatype.EncoderH264 && !ok {
		t.reply(rtsp.BuildError(rtsp.StatusErrorMissingSPS, req.CSeq))
		return
	}

	desc, haveDesc := src.StreamDesc()
	if !haveDesc {
		desc = mediatype.StreamDesc{
			EncoderType: src.EncoderType(),
			Bitrate:     512,
			Quality:     80,
			Width:       1920,
			Height:      1080,
		}
		if live, ok := src.(*source.LiveSource); ok {
			live.SetStreamDesc(desc)
		}
	}

	info := rtsp.DescribeInfo{
		Desc:     desc,
		SPS:      sps,
		PPS:      pps,
		ServerIP: t.localIP(),
		Origin:   uint64(rtspid.New()),
	}

	body, status := rtsp.BuildDescribe(req.CSeq, info)
	if status != rtsp.StatusOK {
		t.reply(rtsp.BuildError(status, req.CSeq))
		return
	}

	t.src = src
	t.reply(body)
}

// handleSetup implements spec.md §4.2/§4.5: decode the Transport
// header, build the client's RTP/RTCP sink (a UDP socket pair, or the
// shared TCP connection framed with interleaved headers), attach a new
// Client to the source's Streamer, and mint a Session ID.
func (t *Talker) handleSetup(req *rtsp.Request, nextState rtsp.ConnState) {
	tr, status := rtsp.ParseTransport(req.Transport)
	if status != rtsp.StatusOK {
		t.reply(rtsp.BuildError(status, req.CSeq))
		return
	}

	src, status := t.resolveSource(req.URI)
	if status != rtsp.StatusOK {
		t.reply(rtsp.BuildError(status, req.CSeq))
		return
	}

	clientIP, _, err := net.SplitHostPort(t.conn.RemoteAddr().String())
	if err != nil {
		clientIP = t.conn.RemoteAddr().String()
	}

	var sink streamer.Transport
	serverPortLo, serverPortHi := 0, 0

	if tr.TCP {
		sink = &streamer.InterleavedTransport{
			Conn:        t.conn,
			Mu:          &t.writeMu,
			RTPChannel:  byte(tr.InterleavedLo),
			RTCPChannel: byte(tr.InterleavedHi),
		}
	} else {
		rtpConn, err := net.Dial("udp", net.JoinHostPort(clientIP, strconv.Itoa(tr.ClientPortLo)))
		if err != nil {
			t.reply(rtsp.BuildError(rtsp.StatusInternalServerError, req.CSeq))
			return
		}
		rtcpConn, err := net.Dial("udp", net.JoinHostPort(clientIP, strconv.Itoa(tr.ClientPortHi)))
		if err != nil {
			rtpConn.Close()
			t.reply(rtsp.BuildError(rtsp.StatusInternalServerError, req.CSeq))
			return
		}

		if addr, ok := rtpConn.LocalAddr().(*net.UDPAddr); ok {
			serverPortLo = addr.Port
		}
		if addr, ok := rtcpConn.LocalAddr().(*net.UDPAddr); ok {
			serverPortHi = addr.Port
		}

		udp := &streamer.UDPTransport{RTP: rtpConn, RTCP: rtcpConn}
		sink = udp
		go t.readUDPRTCP(rtcpConn)
	}

	client := streamer.NewClient(uuid.NewString(), sink)
	src.Streamer().AddClient(client)

	t.session = rtspid.New()
	t.haveSession = true
	t.src = src
	t.client = client
	t.sink = sink
	t.state = nextState

	reply := rtsp.BuildSetup(req.CSeq, rtsp.SetupInfo{
		Session:      t.session,
		Transport:    tr,
		ClientIP:     clientIP,
		ServerIP:     t.localIP(),
		ServerPortLo: serverPortLo,
		ServerPortHi: serverPortHi,
	})
	t.reply(reply)
}

// readUDPRTCP feeds inbound Receiver Reports from a UDP RTCP socket
// into the congestion controller, per spec.md §4.4's "Inbound: a
// dedicated thread reads the client's RTCP socket." It returns once
// conn is closed by teardown.
func (t *Talker) readUDPRTCP(conn net.Conn) {
	buf := make([]byte, 1500)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		t.handleRTCP(buf[:n])
	}
}

// handlePlay implements spec.md §4.2/§4.5: flip the client toward PLAY
// (actual transition happens at the next join-point inside the
// Streamer's fan-out) and, for a FileSource, start its reader thread.
func (t *Talker) handlePlay(req *rtsp.Request, nextState rtsp.ConnState) {
	if t.client == nil || t.src == nil {
		t.reply(rtsp.BuildError(rtsp.StatusSessionNotFound, req.CSeq))
		return
	}

	if err := t.src.RequestAppPlay(); err != nil {
		t.reply(rtsp.BuildError(rtsp.StatusInternalServerError, req.CSeq))
		return
	}
	t.client.Play()
	t.state = nextState

	t.reply(rtsp.BuildPlay(req.CSeq, t.session, req.URI, 0, 0))
}

func (t *Talker) handleGetParameter(req *rtsp.Request) {
	if !t.haveSession {
		t.reply(rtsp.BuildError(rtsp.StatusSessionNotFound, req.CSeq))
		return
	}
	t.reply(rtsp.BuildGetParameter(req.CSeq, t.session))
}

// handleTeardown implements spec.md §4.2/§4.5: release the client and,
// once the last client leaves a non-live source, the source itself.
func (t *Talker) handleTeardown(req *rtsp.Request, nextState rtsp.ConnState) {
	t.teardown()
	t.state = nextState
	t.haveSession = false
	t.reply(rtsp.BuildTeardown(req.CSeq))
}

// localIP reports the server-side address of the accepted connection,
// used as the SDP o= / Transport source= address.
func (t *Talker) localIP() string {
	host, _, err := net.SplitHostPort(t.conn.LocalAddr().String())
	if err != nil {
		return t.conn.LocalAddr().String()
	}
	return host
}
