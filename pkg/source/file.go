package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	streamrtp "github.com/ethan/stretch-rtsp-server/pkg/rtp"
	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

var (
	// ErrNotFound is returned by OpenFile when path does not exist;
	// pkg/talker maps it to rtsp.StatusNotFound (spec.md §4.5).
	ErrNotFound = errors.New("source: file not found")
	// ErrInvalidStream is returned when the file is not an H.264
	// elementary stream whose first two NAL units are SPS then PPS;
	// pkg/talker maps it to rtsp.StatusBadRequest (spec.md §4.6).
	ErrInvalidStream = errors.New("source: not a valid H.264 elementary stream")
)

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

// FileSource reads an H.264 elementary stream from disk and loops it
// forever at a fixed frame rate (spec.md §4.6 "FileSource").
type FileSource struct {
	name        string
	file        *os.File
	scanner     *nalScanner
	streamerObj *streamer.Streamer
	sps         *spsCache

	// primedFrames replays the SPS/PPS NALs OpenFile already consumed
	// from scanner while validating the stream, so readLoop's first two
	// frames are SPS then PPS (original_source/file_source.cpp's
	// play_file() streams them first) instead of whatever NAL follows
	// PPS in the file.
	primedFrames [][]byte

	fps       int
	tsClock   uint32
	timestamp uint32

	desc mediatype.StreamDesc

	playOnce sync.Once
	playing  atomic.Bool
	wg       sync.WaitGroup
}

// OpenFile opens path, validates that its first two NAL units are SPS
// then PPS (caching them), and returns a FileSource whose reader
// goroutine has not yet started (spec.md §4.6: "its reader thread
// starts on PLAY").
func OpenFile(name, path string, packetSize, fps int, tsClock uint32, pacer *streamer.Pacer) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	scanner := newNALScanner(file)
	if err := scanner.prime(); err != nil {
		file.Close()
		return nil, ErrInvalidStream
	}

	sps, err := scanner.next()
	if err != nil {
		file.Close()
		return nil, ErrInvalidStream
	}
	pps, err := scanner.next()
	if err != nil {
		file.Close()
		return nil, ErrInvalidStream
	}
	if len(sps) == 0 || streamrtp.ClassifyH264(sps[0]) != streamrtp.FrameTypeSPS {
		file.Close()
		return nil, ErrInvalidStream
	}
	if len(pps) == 0 || streamrtp.ClassifyH264(pps[0]) != streamrtp.FrameTypePPS {
		file.Close()
		return nil, ErrInvalidStream
	}

	desc := mediatype.StreamDesc{EncoderType: mediatype.EncoderH264}
	cache := newSPSCache()
	cache.Observe(sps)
	cache.Observe(pps)

	return &FileSource{
		name:         name,
		file:         file,
		scanner:      scanner,
		streamerObj:  streamer.New(packetSize, desc, pacer),
		sps:          cache,
		primedFrames: [][]byte{sps, pps},
		fps:          fps,
		tsClock:      tsClock,
		desc:         desc,
	}, nil
}

func (f *FileSource) ID() (uint32, bool)                        { return 0, false }
func (f *FileSource) Name() (string, bool)                      { return f.name, true }
func (f *FileSource) IsLive() bool                               { return false }
func (f *FileSource) EncoderType() mediatype.EncoderType         { return mediatype.EncoderH264 }
func (f *FileSource) StreamDesc() (mediatype.StreamDesc, bool)   { return f.desc, true }
func (f *FileSource) WaitSPS(ctx context.Context) ([]byte, []byte, bool) { return f.sps.wait(ctx) }
func (f *FileSource) Streamer() *streamer.Streamer               { return f.streamerObj }

// SendFrame is a no-op: a FileSource is its own producer via readLoop.
func (f *FileSource) SendFrame(frame []byte, timestamp uint32) error { return nil }

// RequestAppPlay starts the reader goroutine exactly once, on the first
// PLAY (spec.md §4.6).
func (f *FileSource) RequestAppPlay() error {
	f.playOnce.Do(func() {
		f.playing.Store(true)
		f.wg.Add(1)
		go f.readLoop()
	})
	return nil
}

// Teardown stops the reader goroutine and closes the file (spec.md §3
// "Lifecycles": "on TEARDOWN after last client leaves, the source and
// its streamer are destroyed"). Cooperative: "the Talker flips playing
// = false on a FileSource then joins its thread" (spec.md §5).
func (f *FileSource) Teardown() {
	f.playing.Store(false)
	f.wg.Wait()
	f.file.Close()
}

// nextFrame returns the primed SPS/PPS frames first, then falls through
// to the scanner, which is already positioned right after PPS.
func (f *FileSource) nextFrame() ([]byte, error) {
	if len(f.primedFrames) > 0 {
		frame := f.primedFrames[0]
		f.primedFrames = f.primedFrames[1:]
		return frame, nil
	}
	return f.scanner.next()
}

func (f *FileSource) readLoop() {
	defer f.wg.Done()

	frameDuration := time.Second / time.Duration(f.fps)
	var nextDeadline time.Time

	for f.playing.Load() {
		frame, err := f.nextFrame()
		if err != nil {
			return
		}
		if len(frame) == 0 {
			continue
		}

		frameType := streamrtp.ClassifyH264(frame[0])
		f.sps.Observe(frame)

		if frameType == streamrtp.FrameTypeSPS || frameType == streamrtp.FrameTypePPS {
			// SPS/PPS frames do not incur a pacing wait (spec.md §4.6).
			_ = f.streamerObj.SendFrame(context.Background(), frame, f.timestamp)
			continue
		}

		// Absolute-deadline sleep avoids cumulative drift (spec.md §4.6:
		// "clock_gettime(MONOTONIC) + absolute-deadline waits").
		if nextDeadline.IsZero() {
			nextDeadline = time.Now()
		} else {
			nextDeadline = nextDeadline.Add(frameDuration)
		}
		if d := time.Until(nextDeadline); d > 0 {
			time.Sleep(d)
		}

		_ = f.streamerObj.SendFrame(context.Background(), frame, f.timestamp)
		f.timestamp += f.tsClock / uint32(f.fps)
	}
}

// nalScanner locates NAL start codes in an elementary stream file,
// refilling its buffer as needed and looping back to offset 0 on EOF
// (spec.md §4.6: "on EOF, seek to 0 and continue"). Go's growable
// slices stand in for the fixed-buffer residual-byte-shift of a C
// implementation: appending newly-read bytes onto whatever remainder
// wasn't yet consumed gives the same "shift remainder, refill" behavior
// without manual memmove bookkeeping.
type nalScanner struct {
	file *os.File
	buf  []byte
	tmp  []byte
}

func newNALScanner(file *os.File) *nalScanner {
	return &nalScanner{file: file, tmp: make([]byte, 32*1024)}
}

// prime reads until the first start code is found and discards
// anything before it.
func (s *nalScanner) prime() error {
	for {
		if idx := bytes.Index(s.buf, startCode); idx >= 0 {
			s.buf = s.buf[idx:]
			return nil
		}
		n, err := s.file.Read(s.tmp)
		if n > 0 {
			s.buf = append(s.buf, s.tmp[:n]...)
		}
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
	}
}

// next returns the bytes between the start code currently at s.buf[0:4]
// and the next one, refilling s.buf as needed. If end-of-file is
// reached before another start code appears, the remaining bytes are
// returned as the final frame of this pass and the file is rewound so
// the next call begins cleanly on the loop's first start code again.
func (s *nalScanner) next() ([]byte, error) {
	for {
		if len(s.buf) >= 4 {
			if idx := bytes.Index(s.buf[4:], startCode); idx >= 0 {
				frame := append([]byte(nil), s.buf[4:idx+4]...)
				s.buf = s.buf[idx+4:]
				return frame, nil
			}
		}

		n, err := s.file.Read(s.tmp)
		if n > 0 {
			s.buf = append(s.buf, s.tmp[:n]...)
		}
		if err == nil {
			continue
		}
		if err == io.EOF {
			frame := append([]byte(nil), s.buf[4:]...)
			if _, serr := s.file.Seek(0, io.SeekStart); serr != nil {
				return nil, serr
			}
			s.buf = nil
			if perr := s.prime(); perr != nil {
				return nil, perr
			}
			return frame, nil
		}
		return nil, err
	}
}
