package rtsp

import (
	"strconv"
	"strings"
)

// Transport is the decoded Transport header of a SETUP request
// (spec.md §4.1).
type Transport struct {
	TCP           bool // RTP/AVP/TCP vs RTP/AVP (UDP)
	ClientPortLo  int
	ClientPortHi  int
	InterleavedLo int
	InterleavedHi int
}

// ParseTransport validates and decodes a SETUP request's Transport
// header value against the rules of spec.md §4.1.
func ParseTransport(value string) (Transport, Status) {
	tokens := tokenize(value)
	if len(tokens) == 0 {
		return Transport{}, StatusErrorMissingFieldArg
	}

	proto := tokens[0]
	var t Transport
	switch proto {
	case "RTP/AVP", "RTP/AVP/UDP":
		t.TCP = false
	case "RTP/AVP/TCP":
		t.TCP = true
	default:
		return Transport{}, StatusUnsupportedTransport
	}

	unicast := false
	haveClientPort := false
	haveInterleaved := false

	for _, tok := range tokens[1:] {
		key, value, hasValue := strings.Cut(tok, "=")
		switch key {
		case "unicast":
			unicast = true
		case "multicast":
			return Transport{}, StatusErrorSupportUnicastOnly
		case "client_port":
			haveClientPort = true
			if !hasValue {
				return Transport{}, StatusErrorBadPortSpec
			}
			lo, hi, ok := parseRange(value)
			if !ok {
				return Transport{}, StatusErrorBadPortSpec
			}
			t.ClientPortLo, t.ClientPortHi = lo, hi
		case "interleaved":
			haveInterleaved = true
			if !hasValue {
				return Transport{}, StatusErrorBadInterleavedSpec
			}
			lo, hi, ok := parseRange(value)
			if !ok {
				return Transport{}, StatusErrorBadInterleavedSpec
			}
			t.InterleavedLo, t.InterleavedHi = lo, hi
		}
	}

	if !unicast {
		return Transport{}, StatusErrorSupportUnicastOnly
	}

	if t.TCP {
		if haveClientPort {
			return Transport{}, StatusErrorTCPWithPorts
		}
		if !haveInterleaved {
			return Transport{}, StatusErrorBadInterleavedSpec
		}
	} else {
		if !haveClientPort {
			return Transport{}, StatusErrorUDPNoPorts
		}
	}

	return t, StatusOK
}

func parseRange(s string) (lo, hi int, ok bool) {
	a, b, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.Atoi(b)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}
