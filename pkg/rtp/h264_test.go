package rtp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamrtp "github.com/ethan/stretch-rtsp-server/pkg/rtp"
)

func TestFragmentH264_SinglePacket(t *testing.T) {
	nal := append([]byte{0x67}, make([]byte, 100)...)
	frags := streamrtp.FragmentH264(nal, 1456)
	require.Len(t, frags, 1)
	assert.True(t, frags[0].First)
	assert.True(t, frags[0].Last)
	assert.Equal(t, nal, frags[0].Payload)
}

func TestFragmentH264_FUA(t *testing.T) {
	// scenario 5 from spec.md §8: 4000 byte IDR frame, packet_size=1456.
	frame := make([]byte, 4000)
	frame[0] = 0x65
	for i := 1; i < len(frame); i++ {
		frame[i] = byte(i)
	}

	frags := streamrtp.FragmentH264(frame, 1456)
	require.Len(t, frags, 3)

	assert.Equal(t, byte(0x7C), frags[0].Payload[0], "FU indicator")
	assert.Equal(t, byte(0x85), frags[0].Payload[1], "first fragment FU header")
	assert.True(t, frags[0].First)
	assert.False(t, frags[0].Last)

	assert.Equal(t, byte(0x7C), frags[1].Payload[0])
	assert.False(t, frags[1].First)
	assert.False(t, frags[1].Last)

	assert.Equal(t, byte(0x7C), frags[2].Payload[0])
	assert.Equal(t, byte(0x45), frags[2].Payload[1], "last fragment FU header")
	assert.True(t, frags[2].Last)

	// reassembled payload must equal the original NAL minus its header byte
	var reassembled []byte
	for _, f := range frags {
		reassembled = append(reassembled, f.Payload[2:]...)
	}
	assert.Equal(t, frame[1:], reassembled)
}

func TestClassifyH264(t *testing.T) {
	assert.Equal(t, streamrtp.FrameTypeSPS, streamrtp.ClassifyH264(0x67))
	assert.Equal(t, streamrtp.FrameTypePPS, streamrtp.ClassifyH264(0x68))
	assert.Equal(t, streamrtp.FrameTypeI, streamrtp.ClassifyH264(0x65))
	assert.Equal(t, streamrtp.FrameTypeP, streamrtp.ClassifyH264(0x61))
	assert.True(t, streamrtp.FrameTypeSPS.ResetsFrameIndex())
	assert.True(t, streamrtp.FrameTypeI.ResetsFrameIndex())
	assert.False(t, streamrtp.FrameTypeP.ResetsFrameIndex())
	assert.True(t, streamrtp.FrameTypeSPS.IsMarkerSuppressed())
	assert.False(t, streamrtp.FrameTypeI.IsMarkerSuppressed())
}

func TestIsMPEG4Starter(t *testing.T) {
	assert.True(t, streamrtp.IsMPEG4Starter([]byte{0x00, 0x00, 0x01, 0xB0, 0x01}))
	assert.False(t, streamrtp.IsMPEG4Starter([]byte{0x00, 0x00, 0x01, 0xB6}))
	assert.False(t, streamrtp.IsMPEG4Starter([]byte{0x00, 0x00, 0x01}))
}
