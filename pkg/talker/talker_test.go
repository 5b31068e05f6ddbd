package talker_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/config"
	"github.com/ethan/stretch-rtsp-server/pkg/logger"
	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/source"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
	"github.com/ethan/stretch-rtsp-server/pkg/talker"
)

// session wraps the client side of a net.Pipe() with request/response
// helpers so each test reads like an RTSP dialog transcript.
type session struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newTestSession(t *testing.T, sources *source.SourceMap, opts config.Options) *session {
	t.Helper()
	server, client := net.Pipe()

	log, err := logger.New(logger.NewConfig())
	require.NoError(t, err)

	tk := talker.New(server, opts, sources, streamer.NewPacer(0), log)
	ctx, cancel := context.WithCancel(context.Background())
	go tk.Serve(ctx)

	t.Cleanup(func() {
		cancel()
		client.Close()
	})

	return &session{t: t, conn: client, r: bufio.NewReader(client)}
}

func (s *session) send(req string) {
	s.t.Helper()
	_, err := s.conn.Write([]byte(strings.ReplaceAll(req, "\n", "\r\n")))
	require.NoError(s.t, err)
}

// readReply reads one RTSP status line plus headers up to the blank
// line, returning them joined back with "\r\n" for substring assertions.
func (s *session) readReply() string {
	s.t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var b strings.Builder
	for {
		line, err := s.r.ReadString('\n')
		require.NoError(s.t, err)
		b.WriteString(line)
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}
	return b.String()
}

func testOptions() config.Options {
	opts := config.Defaults()
	opts.PacketSize = 1456
	return opts
}

func TestOptionsRoundTrip(t *testing.T) {
	sources := source.NewSourceMap()
	sess := newTestSession(t, sources, testOptions())

	sess.send("OPTIONS rtsp://127.0.0.1/0 RTSP/1.0\nCSeq: 1\n\n")
	reply := sess.readReply()

	require.Contains(t, reply, "RTSP/1.0 200 OK")
	require.Contains(t, reply, "CSeq: 1")
	require.Contains(t, reply, "Public: OPTIONS, DESCRIBE, SETUP, PLAY, GET_PARAMETER, TEARDOWN, PAUSE")
}

func TestDescribeMissingSPSTimesOut(t *testing.T) {
	sources := source.NewSourceMap()
	sess := newTestSession(t, sources, testOptions())

	sess.send("DESCRIBE rtsp://127.0.0.1/7 RTSP/1.0\nCSeq: 2\nAccept: application/sdp\n\n")
	reply := sess.readReply()

	require.Contains(t, reply, "581")
}

func TestDescribeNonH264SourceReturnsImmediately(t *testing.T) {
	sources := source.NewSourceMap()
	live := source.NewLiveSource(3, mediatype.EncoderMJPEG, 1456, streamer.NewPacer(0))
	sources.GetOrCreateLive(3, func() source.Source { return live })

	sess := newTestSession(t, sources, testOptions())
	sess.send("DESCRIBE rtsp://127.0.0.1/3 RTSP/1.0\nCSeq: 4\nAccept: application/sdp\n\n")
	reply := sess.readReply()

	require.Contains(t, reply, "RTSP/1.0 200 OK")
	require.Contains(t, reply, "Content-Type: application/sdp")
}

func TestSetupPlayTeardownLifecycle(t *testing.T) {
	sources := source.NewSourceMap()
	live := source.NewLiveSource(11, mediatype.EncoderMJPEG, 1456, streamer.NewPacer(0))
	sources.GetOrCreateLive(11, func() source.Source { return live })

	sess := newTestSession(t, sources, testOptions())

	sess.send("SETUP rtsp://127.0.0.1/11/track1 RTSP/1.0\nCSeq: 1\n" +
		"Transport: RTP/AVP/TCP;unicast;interleaved=0-1\n\n")
	setupReply := sess.readReply()
	require.Contains(t, setupReply, "RTSP/1.0 200 OK")
	require.Contains(t, setupReply, "Transport: RTP/AVP/TCP")

	session := extractSessionID(t, setupReply)
	require.NotEmpty(t, session)
	require.Equal(t, 1, live.Streamer().ClientCount())

	sess.send("PLAY rtsp://127.0.0.1/11 RTSP/1.0\nCSeq: 2\nSession: " + session + "\n\n")
	playReply := sess.readReply()
	require.Contains(t, playReply, "RTSP/1.0 200 OK")
	require.Contains(t, playReply, "RTP-Info:")

	sess.send("TEARDOWN rtsp://127.0.0.1/11 RTSP/1.0\nCSeq: 3\nSession: " + session + "\n\n")
	teardownReply := sess.readReply()
	require.Contains(t, teardownReply, "RTSP/1.0 200 OK")
	require.Equal(t, 0, live.Streamer().ClientCount())
}

func TestPlayBeforeSetupIsRejected(t *testing.T) {
	sources := source.NewSourceMap()
	sess := newTestSession(t, sources, testOptions())

	sess.send("PLAY rtsp://127.0.0.1/9 RTSP/1.0\nCSeq: 1\n\n")
	reply := sess.readReply()

	require.Contains(t, reply, "455")
}

func TestGetParameterRequiresSession(t *testing.T) {
	sources := source.NewSourceMap()
	sess := newTestSession(t, sources, testOptions())

	sess.send("GET_PARAMETER rtsp://127.0.0.1/0 RTSP/1.0\nCSeq: 1\n\n")
	reply := sess.readReply()

	require.Contains(t, reply, "454")
}

func TestUnknownSessionIDIsRejected(t *testing.T) {
	sources := source.NewSourceMap()
	live := source.NewLiveSource(22, mediatype.EncoderMJPEG, 1456, streamer.NewPacer(0))
	sources.GetOrCreateLive(22, func() source.Source { return live })
	sess := newTestSession(t, sources, testOptions())

	sess.send("SETUP rtsp://127.0.0.1/22/track1 RTSP/1.0\nCSeq: 1\n" +
		"Transport: RTP/AVP/TCP;unicast;interleaved=0-1\n\n")
	sess.readReply()

	sess.send("PLAY rtsp://127.0.0.1/22 RTSP/1.0\nCSeq: 2\nSession: 99999999\n\n")
	reply := sess.readReply()

	require.Contains(t, reply, "454")
}

// extractSessionID pulls the Session header's value out of a raw reply.
func extractSessionID(t *testing.T, reply string) string {
	t.Helper()
	for _, line := range strings.Split(reply, "\r\n") {
		if strings.HasPrefix(line, "Session:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Session:"))
		}
	}
	return ""
}
