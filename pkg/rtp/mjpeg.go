package rtp

// FragmentMJPEG splits a motion-JPEG frame into RTP type-1 payloads per
// spec.md §4.3: each fragment is prefixed with the 8-byte JPEG header
// (type-specific=0, 24-bit fragment offset, type=1, quality, width/8,
// height/8); fragmentation itself is plain slicing at packetSize.
func FragmentMJPEG(frame []byte, packetSize int, quality uint8, width, height uint16) []Fragment {
	chunk := packetSize - 8
	if chunk < 1 {
		chunk = 1
	}

	var frags []Fragment
	for offset := 0; offset < len(frame); offset += chunk {
		end := offset + chunk
		if end > len(frame) {
			end = len(frame)
		}

		hdr := make([]byte, 8, 8+(end-offset))
		hdr[0] = 0
		hdr[1] = byte(offset >> 16)
		hdr[2] = byte(offset >> 8)
		hdr[3] = byte(offset)
		hdr[4] = 1
		hdr[5] = quality
		hdr[6] = byte(width / 8)
		hdr[7] = byte(height / 8)
		hdr = append(hdr, frame[offset:end]...)

		frags = append(frags, Fragment{
			Payload: hdr,
			First:   offset == 0,
			Last:    end == len(frame),
		})
	}
	if len(frame) == 0 {
		return nil
	}
	return frags
}
