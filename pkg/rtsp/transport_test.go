package rtsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/rtsp"
)

func TestParseTransportUDP(t *testing.T) {
	tr, status := rtsp.ParseTransport("RTP/AVP;unicast;client_port=5000-5001")
	require.Equal(t, rtsp.StatusOK, status)
	assert.False(t, tr.TCP)
	assert.Equal(t, 5000, tr.ClientPortLo)
	assert.Equal(t, 5001, tr.ClientPortHi)
}

func TestParseTransportTCP(t *testing.T) {
	tr, status := rtsp.ParseTransport("RTP/AVP/TCP;unicast;interleaved=0-1")
	require.Equal(t, rtsp.StatusOK, status)
	assert.True(t, tr.TCP)
	assert.Equal(t, 0, tr.InterleavedLo)
	assert.Equal(t, 1, tr.InterleavedHi)
}

func TestParseTransportRejectsTCPWithPorts(t *testing.T) {
	_, status := rtsp.ParseTransport("RTP/AVP/TCP;unicast;client_port=5000-5001")
	assert.Equal(t, rtsp.StatusErrorTCPWithPorts, status)
}

func TestParseTransportRejectsUDPWithoutPorts(t *testing.T) {
	_, status := rtsp.ParseTransport("RTP/AVP;unicast")
	assert.Equal(t, rtsp.StatusErrorUDPNoPorts, status)
}

func TestParseTransportRejectsMulticast(t *testing.T) {
	_, status := rtsp.ParseTransport("RTP/AVP;multicast;client_port=5000-5001")
	assert.Equal(t, rtsp.StatusErrorSupportUnicastOnly, status)
}

func TestParseTransportRejectsUnsupportedProtocol(t *testing.T) {
	_, status := rtsp.ParseTransport("RTP/SAVP;unicast;client_port=5000-5001")
	assert.Equal(t, rtsp.StatusUnsupportedTransport, status)
}

func TestParseTransportRejectsBadPortSpec(t *testing.T) {
	_, status := rtsp.ParseTransport("RTP/AVP;unicast;client_port=abc-def")
	assert.Equal(t, rtsp.StatusErrorBadPortSpec, status)
}

func TestParseTransportRejectsMissingInterleaved(t *testing.T) {
	_, status := rtsp.ParseTransport("RTP/AVP/TCP;unicast")
	assert.Equal(t, rtsp.StatusErrorBadInterleavedSpec, status)
}
