package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan/stretch-rtsp-server/pkg/config"
)

func TestDefaults(t *testing.T) {
	opts := config.Defaults()

	assert.Equal(t, ":554", opts.ListenAddr)
	assert.Equal(t, 1456, opts.PacketSize)
	assert.Equal(t, 30, opts.FPS)
	assert.Equal(t, uint32(90000), opts.TSClock)
	assert.True(t, opts.TCPNoDelay)
	assert.False(t, opts.TCPCork)
	assert.False(t, opts.TemporalLevels)
	assert.Equal(t, 60*time.Second, opts.IncreaseTime)
	assert.Equal(t, time.Duration(0), opts.PacketGap)
}

func TestLoadOverridesEveryKey(t *testing.T) {
	path := writeConfig(t, `
# comment lines and blanks are ignored

listen_addr=0.0.0.0:5540
packet_size=1024
fps=15
ts_clock=48000
send_buff_size=65536
recv_buff_size=65536
tcp_nodelay=false
tcp_cork=true
temporal_levels=true
increase_time=30
packet_gap=5000000
`)

	opts, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5540", opts.ListenAddr)
	assert.Equal(t, 1024, opts.PacketSize)
	assert.Equal(t, 15, opts.FPS)
	assert.Equal(t, uint32(48000), opts.TSClock)
	assert.Equal(t, 65536, opts.SendBuffSize)
	assert.Equal(t, 65536, opts.RecvBuffSize)
	assert.False(t, opts.TCPNoDelay)
	assert.True(t, opts.TCPCork)
	assert.True(t, opts.TemporalLevels)
	assert.Equal(t, 30*time.Second, opts.IncreaseTime)
	assert.Equal(t, 5*time.Millisecond, opts.PacketGap)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t, "not_a_real_key=whatever\npacket_size=2000\n")

	opts, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, opts.PacketSize)
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	path := writeConfig(t, "packet_size=not-a-number\n")

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.Error(t, err)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rtspd.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}
