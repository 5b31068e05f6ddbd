package rtsp_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/rtsp"
	"github.com/ethan/stretch-rtsp-server/pkg/rtspid"
)

func TestBuildOptions(t *testing.T) {
	reply := rtsp.BuildOptions(1)
	lines := strings.Split(reply, "\r\n")
	assert.Equal(t, "RTSP/1.0 200 OK", lines[0])
	assert.Contains(t, reply, "CSeq: 1")
	assert.Contains(t, reply, "Public: OPTIONS, DESCRIBE, SETUP, PLAY, GET_PARAMETER, TEARDOWN, PAUSE")
}

func TestBuildDescribeMissingSPSReturns581(t *testing.T) {
	_, status := rtsp.BuildDescribe(2, rtsp.DescribeInfo{
		Desc: mediatype.StreamDesc{EncoderType: mediatype.EncoderH264},
	})
	assert.Equal(t, rtsp.StatusErrorMissingSPS, status)
	assert.Equal(t, 581, status.Code)
}

func TestBuildDescribeH264IncludesSPropParameterSets(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x1e, 0xab}
	pps := []byte{0x68, 0xce, 0x3c, 0x80}

	reply, status := rtsp.BuildDescribe(3, rtsp.DescribeInfo{
		Desc:     mediatype.StreamDesc{EncoderType: mediatype.EncoderH264, Bitrate: 512},
		SPS:      sps,
		PPS:      pps,
		ServerIP: "10.0.0.1",
		Origin:   12345,
	})
	require.Equal(t, rtsp.StatusOK, status)
	assert.Contains(t, reply, "application/sdp")
	assert.Contains(t, reply, "sprop-parameter-sets=")
	assert.Contains(t, reply, "a=rtpmap:96 H264/90000")

	// Content-Length must match the body that actually follows the
	// blank line (the "two-pass write" of spec.md §4.2).
	parts := strings.SplitN(reply, "\r\n\r\n", 2)
	require.Len(t, parts, 2)
	body := parts[1]
	assert.Contains(t, parts[0], "Content-Length: "+strconv.Itoa(len(body)))
}

func TestBuildSetupUDP(t *testing.T) {
	session := rtspid.New()
	reply := rtsp.BuildSetup(4, rtsp.SetupInfo{
		Session:      session,
		Transport:    rtsp.Transport{ClientPortLo: 5000, ClientPortHi: 5001},
		ClientIP:     "192.168.1.50",
		ServerIP:     "10.0.0.1",
		ServerPortLo: 6000,
		ServerPortHi: 6001,
	})
	assert.Contains(t, reply, "client_port=5000-5001")
	assert.Contains(t, reply, "server_port=6000-6001")
	assert.Contains(t, reply, "destination=192.168.1.50")
	assert.Contains(t, reply, "Session: "+session.String())
}

func TestBuildSetupTCP(t *testing.T) {
	session := rtspid.New()
	reply := rtsp.BuildSetup(5, rtsp.SetupInfo{
		Session: session,
		Transport: rtsp.Transport{
			TCP:           true,
			InterleavedLo: 0,
			InterleavedHi: 1,
		},
		ClientIP: "192.168.1.50",
		ServerIP: "10.0.0.1",
	})
	assert.Contains(t, reply, "interleaved=0-1")
	assert.Contains(t, reply, "RTP/AVP/TCP")
}
