package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/ingest"
	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/source"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

func TestFrameIngestCreatesLiveSourceOnFirstFrame(t *testing.T) {
	sources := source.NewSourceMap()
	fi := ingest.NewFrameIngest(sources, 1456, streamer.NewPacer(0))

	require.NoError(t, fi.OnFrame(2, 3, []byte{0x65, 0xAA}, 90000, mediatype.EncoderH264))

	src, ok := sources.FindByID(23) // chan*10+stream = 2*10+3
	require.True(t, ok)
	assert.True(t, src.IsLive())
	assert.Equal(t, mediatype.EncoderH264, src.EncoderType())
}

func TestFrameIngestReusesExistingSource(t *testing.T) {
	sources := source.NewSourceMap()
	fi := ingest.NewFrameIngest(sources, 1456, streamer.NewPacer(0))

	require.NoError(t, fi.OnFrame(0, 1, []byte{0x67, 1, 2, 3}, 0, mediatype.EncoderH264))
	first, _ := sources.FindByID(1)

	require.NoError(t, fi.OnFrame(0, 1, []byte{0x68, 4}, 3000, mediatype.EncoderH264))
	second, _ := sources.FindByID(1)

	assert.Same(t, first, second)
}
