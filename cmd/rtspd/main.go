package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethan/stretch-rtsp-server/pkg/config"
	"github.com/ethan/stretch-rtsp-server/pkg/logger"
	streamrtcp "github.com/ethan/stretch-rtsp-server/pkg/rtcp"
	"github.com/ethan/stretch-rtsp-server/pkg/server"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

func main() {
	fs := flag.NewFlagSet("rtspd", flag.ExitOnError)
	logFlags := logger.RegisterFlags(fs)
	configPath := fs.String("config", "", "Path to a key=value config file (options default per spec §4.7 if omitted)")
	listenAddr := fs.String("listen", "", "Override the listen address (default :554)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "RTSP 1.0 media server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		logger.PrintUsageExamples()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logConfig, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	logger.SetDefault(log)

	log.Info("starting RTSP media server", "log_config", logFlags.String())

	opts := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load configuration", "error", err, "path", *configPath)
			os.Exit(1)
		}
		opts = loaded
	}
	if *listenAddr != "" {
		opts.ListenAddr = *listenAddr
	}
	log.Info("configuration loaded",
		"listen_addr", opts.ListenAddr,
		"packet_size", opts.PacketSize,
		"fps", opts.FPS,
		"ts_clock", opts.TSClock,
		"temporal_levels", opts.TemporalLevels,
		"packet_gap", opts.PacketGap)

	streamer.SetDefaultEmitter(streamrtcp.NewEmitter())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	srv := server.New(opts, log)
	if err := srv.Serve(ctx); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	log.Info("graceful shutdown complete")
}
