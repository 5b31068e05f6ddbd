package rtp

// FragmentMPEG4 splits an MPEG-4 visual frame into RTP payloads per
// spec.md §4.3: no per-fragment header is added, fragmentation is plain
// slicing at packetSize. Marker-bit inversion for "starter" frames
// (IsMPEG4Starter) is applied by the caller, not here.
func FragmentMPEG4(frame []byte, packetSize int) []Fragment {
	if len(frame) == 0 {
		return nil
	}
	if len(frame) <= packetSize {
		return []Fragment{{Payload: frame, First: true, Last: true}}
	}

	var frags []Fragment
	for offset := 0; offset < len(frame); offset += packetSize {
		end := offset + packetSize
		if end > len(frame) {
			end = len(frame)
		}
		frags = append(frags, Fragment{
			Payload: frame[offset:end],
			First:   offset == 0,
			Last:    end == len(frame),
		})
	}
	return frags
}
