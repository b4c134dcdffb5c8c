package decode

import (
	"encoding/binary"
	"io"
	"os"
	"sync/atomic"

	"github.com/hraban/opus"

	"github.com/duskvale/vnmix/internal/mixer"
)

// opusFrameSamples is the frame size the encoder side of this pack always
// used (20ms @ 48kHz mono-per-channel sample count), matching the teacher's
// lazyStreamer and pkg/audioengine encoder.
const opusFrameSamples = 960

// opusSource decodes a length-prefixed stream of raw Opus packets, the wire
// format the teacher's lazyStreamer reads directly off disk (minus the
// AES-GCM envelope: vnmix carries no encryption-at-rest, see DESIGN.md).
type opusSource struct {
	file *os.File
	dec  *opus.Decoder
	path string

	sampleRate int

	startFrame int64
	endFrame   int64

	chunks chan pcmChunk
	ready  chan struct{}
	done   chan struct{}

	leftover [][2]int16
	paused   atomic.Bool
	closed   atomic.Bool
}

// OpenOpus opens path, a sequence of `uint16 length | opus packet` records,
// as a mixer.Source at the given engine sample rate.
func OpenOpus(path string, engineSampleRate int) (mixer.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := opus.NewDecoder(engineSampleRate, 2)
	if err != nil {
		f.Close()
		return nil, err
	}
	logOpen("opus", path)
	return &opusSource{
		file:       f,
		dec:        dec,
		path:       path,
		sampleRate: engineSampleRate,
		chunks:     make(chan pcmChunk, 4),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

func (s *opusSource) SetRange(startSec, endSec float64) {
	s.startFrame = int64(startSec * float64(s.sampleRate))
	if endSec > 0 {
		s.endFrame = int64(endSec * float64(s.sampleRate))
	}
}

func (s *opusSource) WantVideo(mode int) {}

func (s *opusSource) Start() { go s.decodeLoop() }

func (s *opusSource) SetPaused(paused bool) { s.paused.Store(paused) }

func (s *opusSource) WaitReady() { <-s.ready }

func (s *opusSource) decodeLoop() {
	defer close(s.chunks)

	out := make([]int16, opusFrameSamples*2)
	var frame int64
	readySent := false

	for {
		select {
		case <-s.done:
			return
		default:
		}

		var sz uint16
		if err := binary.Read(s.file, binary.BigEndian, &sz); err != nil {
			if !readySent {
				close(s.ready)
			}
			return
		}
		packet := make([]byte, sz)
		if _, err := io.ReadFull(s.file, packet); err != nil {
			if !readySent {
				close(s.ready)
			}
			return
		}

		n, err := s.dec.Decode(packet, out)
		if err != nil {
			continue
		}

		skip := int64(0)
		if frame < s.startFrame {
			skip = s.startFrame - frame
			if skip > int64(n) {
				skip = int64(n)
			}
		}
		frame += int64(n)

		keep := n - int(skip)
		reachedEnd := false
		if keep > 0 && s.endFrame > 0 && frame > s.endFrame {
			over := frame - s.endFrame
			if over > int64(keep) {
				over = int64(keep)
			}
			keep -= int(over)
			reachedEnd = true
		}

		if keep > 0 {
			chunk := make([][2]int16, keep)
			for i := 0; i < keep; i++ {
				j := int(skip) + i
				chunk[i] = [2]int16{out[2*j], out[2*j+1]}
			}
			select {
			case s.chunks <- pcmChunk{frames: chunk}:
			case <-s.done:
				return
			}
		}

		if !readySent {
			close(s.ready)
			readySent = true
		}
		if reachedEnd {
			return
		}
	}
}

func (s *opusSource) ReadAudio(dst []int16) (int, error) {
	want := len(dst) / 2
	n := 0
	for n < want {
		if len(s.leftover) == 0 {
			c, ok := <-s.chunks
			if !ok {
				break
			}
			s.leftover = c.frames
		}
		take := want - n
		if take > len(s.leftover) {
			take = len(s.leftover)
		}
		for i := 0; i < take; i++ {
			dst[2*(n+i)] = s.leftover[i][0]
			dst[2*(n+i)+1] = s.leftover[i][1]
		}
		s.leftover = s.leftover[take:]
		n += take
	}
	return n * 2, nil
}

// Duration is unknown for a raw framed Opus stream without an index; the
// mixer treats 0 as "unknown" (spec.md §6).
func (s *opusSource) Duration() float64 { return 0 }

func (s *opusSource) VideoReady() bool                   { return false }
func (s *opusSource) ReadVideo() (mixer.VideoFrame, bool) { return mixer.VideoFrame{}, false }

func (s *opusSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
		logClose("opus", s.path)
	}
	return s.file.Close()
}
