package logger

import (
	"flag"
	"fmt"
	"strings"
)

// Flags holds all logging-related command-line flags.
type Flags struct {
	LogLevel    string
	LogFormat   string
	LogFile     string
	DebugRTSP   bool
	DebugRTP    bool
	DebugRTCP   bool
	DebugSource bool
	DebugTalker bool
	DebugAll    bool
}

// RegisterFlags registers logging flags with the given FlagSet.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&f.LogLevel, "l", "info", "Log level (shorthand)")

	fs.StringVar(&f.LogFormat, "log-format", "text", "Log output format: text, json")

	fs.StringVar(&f.LogFile, "log-file", "", "Log output file path (default: stdout)")
	fs.StringVar(&f.LogFile, "o", "", "Log output file path (shorthand)")

	fs.BoolVar(&f.DebugRTSP, "debug-rtsp", false, "Enable RTSP control-plane debugging (methods, headers, state transitions)")
	fs.BoolVar(&f.DebugRTP, "debug-rtp", false, "Enable RTP packetization debugging (sequence, timestamp, fragmentation)")
	fs.BoolVar(&f.DebugRTCP, "debug-rtcp", false, "Enable RTCP debugging (RR/SDES in, SR/SDES out, congestion control)")
	fs.BoolVar(&f.DebugSource, "debug-source", false, "Enable source-registry debugging (SourceMap lookups, SPS/PPS updates)")
	fs.BoolVar(&f.DebugTalker, "debug-talker", false, "Enable per-connection talker debugging")
	fs.BoolVar(&f.DebugAll, "debug-all", false, "Enable all debug categories")

	return f
}

// ToConfig converts Flags to a logger Config.
func (f *Flags) ToConfig() (*Config, error) {
	cfg := NewConfig()

	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	format, err := ParseFormat(f.LogFormat)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	cfg.OutputFile = f.LogFile

	switch {
	case f.DebugAll:
		cfg.EnableCategory(DebugAll)
		cfg.Level = LevelDebug
	default:
		if f.DebugRTSP {
			cfg.EnableCategory(DebugRTSP)
			cfg.Level = LevelDebug
		}
		if f.DebugRTP {
			cfg.EnableCategory(DebugRTP)
			cfg.Level = LevelDebug
		}
		if f.DebugRTCP {
			cfg.EnableCategory(DebugRTCP)
			cfg.Level = LevelDebug
		}
		if f.DebugSource {
			cfg.EnableCategory(DebugSource)
			cfg.Level = LevelDebug
		}
		if f.DebugTalker {
			cfg.EnableCategory(DebugTalker)
			cfg.Level = LevelDebug
		}
	}

	return cfg, nil
}

// PrintUsageExamples prints usage examples for logging flags.
func PrintUsageExamples() {
	examples := `
Logging Examples:

  Basic usage (INFO level, text format to stdout):
    ./rtspd

  Enable DEBUG level:
    ./rtspd --log-level debug

  Log to file as JSON:
    ./rtspd --log-format json -o rtspd.log

  Debug only the RTP packetizer:
    ./rtspd --debug-rtp

  Debug everything:
    ./rtspd --debug-all -o debug.log
`
	fmt.Println(examples)
}

// String returns a string representation of enabled flags.
func (f *Flags) String() string {
	parts := []string{
		fmt.Sprintf("level=%s", f.LogLevel),
		fmt.Sprintf("format=%s", f.LogFormat),
	}

	if f.LogFile != "" {
		parts = append(parts, fmt.Sprintf("output=%s", f.LogFile))
	} else {
		parts = append(parts, "output=stdout")
	}

	var categories []string
	switch {
	case f.DebugAll:
		categories = append(categories, "all")
	default:
		if f.DebugRTSP {
			categories = append(categories, "rtsp")
		}
		if f.DebugRTP {
			categories = append(categories, "rtp")
		}
		if f.DebugRTCP {
			categories = append(categories, "rtcp")
		}
		if f.DebugSource {
			categories = append(categories, "source")
		}
		if f.DebugTalker {
			categories = append(categories, "talker")
		}
	}
	if len(categories) > 0 {
		parts = append(parts, fmt.Sprintf("debug=[%s]", strings.Join(categories, ",")))
	}

	return strings.Join(parts, " ")
}
