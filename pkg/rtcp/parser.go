// Package rtcp parses inbound Receiver Reports, drives the per-client
// temporal-level congestion control of spec.md §4.4, and emits outbound
// Sender Reports — all built on github.com/pion/rtcp's packet types
// rather than hand-rolled byte layouts.
package rtcp

import (
	"github.com/pion/rtcp"
)

// ParseReport decodes an inbound compound RTCP packet per spec.md §4.4
// ("Inbound (Receiver Report)"): a 28-byte RR optionally followed by a
// variable-length SDES chunk. Packets that are neither are silently
// ignored ("Validate packet_type==201 then ==202; drop otherwise").
func ParseReport(buf []byte) (*rtcp.ReceiverReport, *rtcp.SourceDescription, error) {
	packets, err := rtcp.Unmarshal(buf)
	if err != nil {
		return nil, nil, err
	}

	var rr *rtcp.ReceiverReport
	var sdes *rtcp.SourceDescription
	for _, p := range packets {
		switch v := p.(type) {
		case *rtcp.ReceiverReport:
			rr = v
		case *rtcp.SourceDescription:
			sdes = v
		}
	}
	return rr, sdes, nil
}
