package logger_test

import (
	"os"

	"github.com/ethan/stretch-rtsp-server/pkg/logger"
)

// Example showing basic logger usage.
func ExampleLogger_basic() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatText

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.Info("rtsp server started", "port", 554)
	log.Warn("client sent unsupported transport", "remote", "10.0.0.7:51000")
	log.Error("failed to accept connection", "error", "too many open files")
}

// Example showing per-subsystem debug category usage.
func ExampleLogger_categories() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelDebug
	cfg.EnableCategory(logger.DebugRTP)
	cfg.EnableCategory(logger.DebugRTCP)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.DebugRTP("fragmented NAL into FU-A packets", "seq", 12345, "fragments", 3)
	log.DebugRTCP("receiver report parsed", "fraction_lost", 0)
}

// Example showing JSON format output to a file.
func ExampleLogger_json() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatJSON
	cfg.OutputFile = "rtspd.json"

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()
	defer os.Remove("rtspd.json")

	log.Info("client setup", "session", "0A1B2C3D", "transport", "RTP/AVP/TCP")
}
