package rtsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/rtsp"
)

func TestParseOptionsRequest(t *testing.T) {
	buf := []byte("OPTIONS rtsp://10.0.0.1:554/ RTSP/1.0\r\nCSeq: 1\r\n\r\n")
	req, status := rtsp.ParseRequest(buf)
	require.Equal(t, rtsp.StatusOK, status)
	require.NotNil(t, req)
	assert.Equal(t, rtsp.MethodOptions, req.Method)
	assert.Equal(t, "rtsp://10.0.0.1:554/", req.URI)
	cseq, ok := req.Header("CSeq")
	require.True(t, ok)
	assert.Equal(t, "1", cseq)
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	buf := []byte("OPTIONS rtsp://x/ RTSP/2.0\r\nCSeq: 1\r\n\r\n")
	_, status := rtsp.ParseRequest(buf)
	assert.Equal(t, rtsp.StatusRTSPVersionNotSupported, status)
}

func TestParseRejectsUnknownMethod(t *testing.T) {
	buf := []byte("FROBNICATE rtsp://x/ RTSP/1.0\r\nCSeq: 1\r\n\r\n")
	_, status := rtsp.ParseRequest(buf)
	assert.Equal(t, rtsp.StatusMethodNotAllowed, status)
}

func TestParseRequiresCSeq(t *testing.T) {
	buf := []byte("OPTIONS rtsp://x/ RTSP/1.0\r\n\r\n")
	_, status := rtsp.ParseRequest(buf)
	assert.Equal(t, rtsp.StatusErrorMissingFieldArg, status)
}

func TestParseRejectsOverlongSession(t *testing.T) {
	buf := []byte("GET_PARAMETER rtsp://x/ RTSP/1.0\r\nCSeq: 9\r\nSession: 123456789\r\n\r\n")
	_, status := rtsp.ParseRequest(buf)
	assert.Equal(t, rtsp.StatusErrorSessionIDTooLong, status)
}

func TestParseRejectsOversizedBuffer(t *testing.T) {
	huge := make([]byte, 17*1024)
	_, status := rtsp.ParseRequest(huge)
	assert.Equal(t, rtsp.StatusServerBufferOverflow, status)
}

func TestValidateStateMachine(t *testing.T) {
	next, status := rtsp.Validate(rtsp.MethodPlay, rtsp.StateInit)
	assert.Equal(t, rtsp.StatusMethodNotValidInThisState, status)
	assert.Equal(t, rtsp.StateInit, next)

	next, status = rtsp.Validate(rtsp.MethodSetup, rtsp.StateInit)
	assert.Equal(t, rtsp.StatusOK, status)
	assert.Equal(t, rtsp.StateReady, next)

	next, status = rtsp.Validate(rtsp.MethodPlay, rtsp.StateReady)
	assert.Equal(t, rtsp.StatusOK, status)
	assert.Equal(t, rtsp.StatePlaying, next)

	next, status = rtsp.Validate(rtsp.MethodTeardown, rtsp.StatePlaying)
	assert.Equal(t, rtsp.StatusOK, status)
	assert.Equal(t, rtsp.StateInit, next)

	next, status = rtsp.Validate(rtsp.MethodPause, rtsp.StatePlaying)
	assert.Equal(t, rtsp.StatusOK, status)
	assert.Equal(t, rtsp.StateInit, next, "PAUSE is treated as TEARDOWN")
}
