package rtspid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/rtspid"
)

func TestRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0xFFFFFFFF, 0xDEADBEEF, 0x0000001}
	for _, c := range cases {
		id := rtspid.SessionID(c)
		parsed, err := rtspid.Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.Len(t, id.String(), 8)
	}
}

func TestStringIsUpperHex(t *testing.T) {
	id := rtspid.SessionID(0xabc)
	assert.Equal(t, "00000ABC", id.String())
}

func TestParseRejectsOverlong(t *testing.T) {
	_, err := rtspid.Parse("123456789")
	assert.Error(t, err)
}

func TestNewIsNonDeterministic(t *testing.T) {
	a := rtspid.New()
	b := rtspid.New()
	assert.NotEqual(t, a, b, "two draws should essentially never collide")
}
