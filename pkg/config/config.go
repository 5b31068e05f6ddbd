// Package config loads the RTSP server's process-wide Options (spec.md
// §4.7): packetization size, frame rate, RTP clock, socket buffer sizes,
// socket tuning, and the congestion-control knobs. It follows the
// teacher's .env-style key=value loader shape. Of the loaded options,
// only the listen address can be overridden from the command line (the
// -listen flag of cmd/rtspd).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Options holds the server-wide tunables enumerated in spec.md §4.7.
type Options struct {
	ListenAddr     string
	PacketSize     int           // max bytes of RTP payload per packet
	FPS            int           // FileSource pacing rate
	TSClock        uint32        // RTP timestamp clock rate (Hz)
	SendBuffSize   int           // SO_SNDBUF
	RecvBuffSize   int           // SO_RCVBUF
	TCPNoDelay     bool
	TCPCork        bool
	TemporalLevels bool          // enable RTCP-driven congestion control
	IncreaseTime   time.Duration // drives the decrease side of the temporal-level heuristic
	PacketGap      time.Duration // inter-packet pacing gap, 0 disables pacing
}

// Defaults returns the Options spec.md §4.7 lists as server defaults.
func Defaults() Options {
	return Options{
		ListenAddr:     ":554",
		PacketSize:     1456,
		FPS:            30,
		TSClock:        90000,
		SendBuffSize:   0,
		RecvBuffSize:   0,
		TCPNoDelay:     true,
		TCPCork:        false,
		TemporalLevels: false,
		IncreaseTime:   60 * time.Second,
		PacketGap:      0,
	}
}

// Load reads key=value pairs from a config file and overlays them on
// Defaults(). Unknown keys are ignored; this mirrors the teacher's
// tolerant .env parser.
func Load(path string) (Options, error) {
	opts := Defaults()

	file, err := os.Open(path)
	if err != nil {
		return opts, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := opts.apply(key, value); err != nil {
			return opts, fmt.Errorf("config key %q: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return opts, fmt.Errorf("scan config file: %w", err)
	}

	return opts, nil
}

func (o *Options) apply(key, value string) error {
	switch key {
	case "listen_addr":
		o.ListenAddr = value
	case "packet_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.PacketSize = n
	case "fps":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.FPS = n
	case "ts_clock":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		o.TSClock = uint32(n)
	case "send_buff_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.SendBuffSize = n
	case "recv_buff_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.RecvBuffSize = n
	case "tcp_nodelay":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		o.TCPNoDelay = b
	case "tcp_cork":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		o.TCPCork = b
	case "temporal_levels":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		o.TemporalLevels = b
	case "increase_time":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.IncreaseTime = time.Duration(secs) * time.Second
	case "packet_gap":
		ns, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		o.PacketGap = time.Duration(ns)
	}
	return nil
}
