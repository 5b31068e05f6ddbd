package rtp

// Fragment is one RTP payload produced from a single H.264 NAL unit.
type Fragment struct {
	Payload []byte
	First   bool // first fragment of the NAL (or the NAL's only packet)
	Last    bool // last fragment of the NAL (or the NAL's only packet)
}

// FragmentH264 splits a single H.264 NAL unit (first byte is the NAL
// header octet) into one or more RTP payloads, per spec.md §4.3.
//
// If the NAL fits in one packet it is returned unmodified as the sole
// fragment. Otherwise it is split FU-A style (RFC 6184 §5.8): the FU
// indicator byte is (NAL header & 0xE0) | 28, the FU header marks Start
// (0x80) on the first fragment and End (0x40) on the last, and carries
// neither flag in between.
func FragmentH264(nal []byte, packetSize int) []Fragment {
	if len(nal) == 0 {
		return nil
	}
	if len(nal) <= packetSize {
		return []Fragment{{Payload: nal, First: true, Last: true}}
	}

	nalHeader := nal[0]
	nalType := nalHeader & 0x1F
	fuIndicator := (nalHeader & 0xE0) | NALUTypeFUA
	payload := nal[1:]

	maxChunk := packetSize - 2
	if maxChunk < 1 {
		maxChunk = 1
	}

	var frags []Fragment
	for offset := 0; offset < len(payload); offset += maxChunk {
		end := offset + maxChunk
		if end > len(payload) {
			end = len(payload)
		}
		first := offset == 0
		last := end == len(payload)

		var fuHeader byte
		switch {
		case first:
			fuHeader = nalType | 0x80
		case last:
			fuHeader = nalType | 0x40
		default:
			fuHeader = nalType
		}

		buf := make([]byte, 2+(end-offset))
		buf[0] = fuIndicator
		buf[1] = fuHeader
		copy(buf[2:], payload[offset:end])

		frags = append(frags, Fragment{Payload: buf, First: first, Last: last})
	}
	return frags
}
