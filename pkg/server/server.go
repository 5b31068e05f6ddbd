// Package server owns the RTSP listen socket and the process-wide
// state every accepted connection shares: Options, the SourceMap, and
// the packet-pacing limiter (spec.md §4.7).
package server

import (
	"context"
	"net"

	"golang.org/x/sys/unix"

	"github.com/ethan/stretch-rtsp-server/pkg/config"
	"github.com/ethan/stretch-rtsp-server/pkg/logger"
	"github.com/ethan/stretch-rtsp-server/pkg/source"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
	"github.com/ethan/stretch-rtsp-server/pkg/talker"
)

// Server accepts RTSP connections and spawns one Talker per connection
// (spec.md §4.7: "Owns a TCP listen socket, accept loop spawns
// Talkers").
type Server struct {
	opts    config.Options
	sources *source.SourceMap
	pacer   *streamer.Pacer
	log     *logger.Logger
}

// New builds a Server. The SourceMap and Pacer are process-wide and
// shared by every Talker this Server spawns.
func New(opts config.Options, log *logger.Logger) *Server {
	return &Server{
		opts:    opts,
		sources: source.NewSourceMap(),
		pacer:   streamer.NewPacer(opts.PacketGap),
		log:     log,
	}
}

// Serve listens on opts.ListenAddr and accepts connections until ctx is
// canceled. Each accepted connection is handed to its own Talker,
// running on its own goroutine (spec.md §5: "One thread per accepted
// RTSP connection").
func (s *Server) Serve(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.ListenAddr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("listening", "addr", s.opts.ListenAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := s.tuneSocket(tcpConn); err != nil {
				s.log.DebugTalker("socket tuning failed", "remote", conn.RemoteAddr(), "err", err)
			}
		}

		t := talker.New(conn, s.opts, s.sources, s.pacer, s.log)
		go t.Serve(ctx)
	}
}

// tuneSocket applies the connection-level options of spec.md §4.7:
// TCP_NODELAY and, on platforms that support it, TCP_CORK.
func (s *Server) tuneSocket(conn *net.TCPConn) error {
	if err := conn.SetNoDelay(s.opts.TCPNoDelay); err != nil {
		return err
	}
	if s.opts.SendBuffSize > 0 {
		if err := conn.SetWriteBuffer(s.opts.SendBuffSize); err != nil {
			return err
		}
	}
	if s.opts.RecvBuffSize > 0 {
		if err := conn.SetReadBuffer(s.opts.RecvBuffSize); err != nil {
			return err
		}
	}
	if !s.opts.TCPCork {
		return nil
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_CORK, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// GetSource looks up a source by numeric id or by name, trying id
// first (spec.md §4.7 "get_source(id|name)").
func (s *Server) GetSource(id uint32, name string) (source.Source, bool) {
	if src, ok := s.sources.FindByID(id); ok {
		return src, ok
	}
	return s.sources.FindByName(name)
}

// ClientCount reports the number of clients attached to the live
// source identified by id, or 0 if no such source exists.
func (s *Server) ClientCount(id uint32) int {
	src, ok := s.sources.FindByID(id)
	if !ok {
		return 0
	}
	return src.Streamer().ClientCount()
}

// SetTemporalLevel broadcasts a temporal level to every client on
// every streamer (spec.md §4.7: "broadcast to all clients on all
// streamers").
func (s *Server) SetTemporalLevel(level int) {
	for _, src := range s.sources.Sources() {
		src.Streamer().SetTemporalLevel(level)
	}
}

// PacketWait blocks until the pacer admits the next packet, or ctx is
// canceled (spec.md §4.7 "packet_wait()"; §5 notes this suspension
// point may spin sub-millisecond to meet packet_gap precision — the
// token-bucket Wait below is the idiomatic substitute, see DESIGN.md).
func (s *Server) PacketWait(ctx context.Context) error {
	return s.pacer.Wait(ctx)
}

// Sources exposes the process-wide SourceMap for components, such as
// pkg/ingest's FrameIngest, that need to resolve a live source by the
// frame-producer's (chan, stream) id without going through the RTSP
// control path.
func (s *Server) Sources() *source.SourceMap { return s.sources }

// PacketSize returns the configured max RTP payload size, used by
// pkg/ingest when a LiveSource must be created lazily on first frame.
func (s *Server) PacketSize() int { return s.opts.PacketSize }

// Pacer returns the shared packet-pacing limiter every Source's
// Streamer is built with.
func (s *Server) Pacer() *streamer.Pacer { return s.pacer }
