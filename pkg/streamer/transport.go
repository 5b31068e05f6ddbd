package streamer

import (
	"encoding/binary"
	"net"
	"sync"
)

// Transport abstracts the RTP/RTCP sink a Client writes to: either a
// pair of connected UDP sockets, or the shared TCP control connection
// framed with RFC 2326 §10.12 interleaved headers (spec.md §6).
type Transport interface {
	WriteRTP(payload []byte) error
	WriteRTCP(payload []byte) error
	Close() error
}

// UDPTransport sends RTP and RTCP over their own connected UDP sockets.
// The two sockets are dialed independently, so their local (server)
// ports are chosen separately and are not guaranteed to be adjacent.
type UDPTransport struct {
	RTP  net.Conn
	RTCP net.Conn
}

func (t *UDPTransport) WriteRTP(payload []byte) error {
	_, err := t.RTP.Write(payload)
	return err
}

func (t *UDPTransport) WriteRTCP(payload []byte) error {
	_, err := t.RTCP.Write(payload)
	return err
}

func (t *UDPTransport) Close() error {
	err := t.RTP.Close()
	if rerr := t.RTCP.Close(); err == nil {
		err = rerr
	}
	return err
}

// InterleavedTransport multiplexes RTP (channel 0) and RTCP (channel 1)
// onto the shared RTSP control TCP connection, each frame prefixed by
// the 4-byte '$' header of spec.md §4.3/§6. Writes are serialized with
// the Talker's own reply writes via the shared mutex, since both sides
// write to the same net.Conn.
type InterleavedTransport struct {
	Conn        net.Conn
	Mu          *sync.Mutex
	RTPChannel  byte
	RTCPChannel byte
}

func (t *InterleavedTransport) write(channel byte, payload []byte) error {
	var hdr [4]byte
	hdr[0] = '$'
	hdr[1] = channel
	binary.BigEndian.PutUint16(hdr[2:], uint16(len(payload)))

	t.Mu.Lock()
	defer t.Mu.Unlock()
	if _, err := t.Conn.Write(hdr[:]); err != nil {
		return err
	}
	_, err := t.Conn.Write(payload)
	return err
}

func (t *InterleavedTransport) WriteRTP(payload []byte) error {
	return t.write(t.RTPChannel, payload)
}

func (t *InterleavedTransport) WriteRTCP(payload []byte) error {
	return t.write(t.RTCPChannel, payload)
}

// Close is a no-op: the control connection is owned by the Talker, not
// by any one client's transport.
func (t *InterleavedTransport) Close() error { return nil }
