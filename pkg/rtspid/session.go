// Package rtspid implements the RTSP Session ID: an opaque 32-bit
// identifier hex-encoded on the wire (spec.md §3, §9 "Session IDs").
package rtspid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
)

// SessionID is the 32-bit value exchanged as the RTSP Session header.
type SessionID uint32

// New draws a SessionID from a CSPRNG. The 32-bit space is narrow, but
// spec.md §9 keeps it for wire compatibility.
func New() SessionID {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on the standard reader does not fail in
		// practice; a zero ID would collide, so panic rather than hand
		// out a session an attacker could guess.
		panic(fmt.Sprintf("rtspid: crypto/rand unavailable: %v", err))
	}
	return SessionID(binary.BigEndian.Uint32(buf[:]))
}

// String formats the SessionID as upper-case hex, zero-padded to 8
// characters, matching the wire format spec.md §9 requires.
func (s SessionID) String() string {
	return fmt.Sprintf("%08X", uint32(s))
}

// Parse parses a SessionID from its wire hex representation. Spec.md §7
// maps an overlong value to ERROR_SESSION_ID_TOO_LONG at the RTSP layer;
// Parse itself only reports the parse failure.
func Parse(s string) (SessionID, error) {
	if len(s) > 8 {
		return 0, fmt.Errorf("session id %q exceeds 8 hex characters", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse session id %q: %w", s, err)
	}
	return SessionID(v), nil
}
