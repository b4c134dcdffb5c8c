// Package decode adapts concrete media decoders to mixer.Source. Both
// adapters here decode ahead of the mixer's demand on a background
// goroutine into a bounded channel of PCM chunks, mirroring the teacher's
// lazyStreamer.buffer pattern in cmd/hdx-server/engine.go, so ReadAudio
// never blocks the audio thread on file or CPU-bound decode work once
// WaitReady has returned.
package decode

import (
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/duskvale/vnmix/internal/mixer"
)

// chunkFrames is the number of stereo frames decoded per background read,
// picked to keep decode latency well under a typical mixer callback period.
const chunkFrames = 4096

type pcmChunk struct {
	frames [][2]int16
}

// wavSource decodes a PCM WAV file. It never resamples: the file must
// already be s16 at the engine's sample rate (spec.md's Non-goals). It must
// also already be stereo, unless Configure has enabled equal-mono mode, in
// which case a mono file's single channel is duplicated into both outputs.
type wavSource struct {
	file *os.File
	dec  *wav.Decoder
	path string

	sampleRate int
	numFrames  int64
	mono       bool

	startFrame int64
	endFrame   int64 // 0 means unbounded

	chunks chan pcmChunk
	ready  chan struct{}
	done   chan struct{}

	leftover [][2]int16
	paused   atomic.Bool
	closed   atomic.Bool
}

// OpenWAV opens path as a WAV mixer.Source at the given engine sample rate.
// It returns an error if the file cannot be opened or is not valid PCM WAV;
// a sample-rate mismatch is reported once decoding begins (SetRange has
// already been called by then), matching spec.md's SOUND_ERROR contract. A
// mono file is only accepted when Configure(_, true) has enabled equal-mono
// mode, in which case its single channel is duplicated equally into both
// output channels; otherwise the file must already be stereo.
func OpenWAV(path string, engineSampleRate int) (mixer.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, errors.New("decode: not a valid WAV file")
	}
	dec.ReadInfo()
	if int(dec.SampleRate) != engineSampleRate {
		f.Close()
		return nil, errors.New("decode: wav sample rate does not match engine sample rate")
	}
	mono := false
	switch dec.NumChans {
	case 2:
	case 1:
		if !monoAllowed() {
			f.Close()
			return nil, errors.New("decode: wav must be stereo")
		}
		mono = true
	default:
		f.Close()
		return nil, errors.New("decode: wav must be mono or stereo")
	}

	s := &wavSource{
		file:       f,
		dec:        dec,
		path:       path,
		sampleRate: int(dec.SampleRate),
		mono:       mono,
		chunks:     make(chan pcmChunk, 4),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	if dur, err := dec.Duration(); err == nil {
		s.numFrames = int64(dur.Seconds() * float64(s.sampleRate))
	}
	logOpen("wav", path)
	return s, nil
}

func (s *wavSource) SetRange(startSec, endSec float64) {
	s.startFrame = int64(startSec * float64(s.sampleRate))
	if endSec > 0 {
		s.endFrame = int64(endSec * float64(s.sampleRate))
	}
}

func (s *wavSource) WantVideo(mode int) {}

func (s *wavSource) Start() {
	go s.decodeLoop()
}

func (s *wavSource) SetPaused(paused bool) { s.paused.Store(paused) }

func (s *wavSource) WaitReady() { <-s.ready }

// decodeLoop reads PCM sequentially from the start of the stream and
// discards frames before startFrame in-process; the wav package exposes no
// public frame-seek, so this trades a bit of startup CPU for staying on
// its documented API surface.
func (s *wavSource) decodeLoop() {
	defer close(s.chunks)

	numChans := 2
	if s.mono {
		numChans = 1
	}
	buf := &audio.IntBuffer{
		Data:   make([]int, chunkFrames*numChans),
		Format: &audio.Format{NumChannels: numChans, SampleRate: s.sampleRate},
	}

	var frame int64
	readySent := false
	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := s.dec.PCMBuffer(buf)
		if n == 0 {
			if !readySent {
				close(s.ready)
			}
			return
		}

		frames := n / numChans
		skip := int64(0)
		if frame < s.startFrame {
			skip = s.startFrame - frame
			if skip > int64(frames) {
				skip = int64(frames)
			}
		}
		frame += int64(frames)

		keep := frames - int(skip)
		if keep > 0 && s.endFrame > 0 && frame > s.endFrame {
			over := frame - s.endFrame
			if over > int64(keep) {
				over = int64(keep)
			}
			keep -= int(over)
		}

		if keep > 0 {
			out := make([][2]int16, keep)
			for i := 0; i < keep; i++ {
				j := int(skip) + i
				if s.mono {
					v := int16(buf.Data[j])
					out[i] = [2]int16{v, v}
				} else {
					out[i] = [2]int16{int16(buf.Data[2*j]), int16(buf.Data[2*j+1])}
				}
			}
			select {
			case s.chunks <- pcmChunk{frames: out}:
			case <-s.done:
				return
			}
		}

		if !readySent {
			close(s.ready)
			readySent = true
		}

		if err == io.EOF || (s.endFrame > 0 && frame >= s.endFrame) {
			return
		}
	}
}

func (s *wavSource) ReadAudio(dst []int16) (int, error) {
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

func (s *wavSource) Duration() float64 {
	if s.sampleRate == 0 {
		return 0
	}
	return float64(s.numFrames) / float64(s.sampleRate)
}

func (s *wavSource) VideoReady() bool             { return false }
func (s *wavSource) ReadVideo() (mixer.VideoFrame, bool) { return mixer.VideoFrame{}, false }

func (s *wavSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
		logClose("wav", s.path)
	}
	return s.file.Close()
}
