package mixer

import "sync/atomic"

// fakeSource is a fully in-memory Source used to drive the callback and
// control API without any real decoder, in the spirit of the mock sources
// the retrieved audio packages build for their own mixer tests.
type fakeSource struct {
	frames [][2]int16
	pos    int
	dur    float64

	ready  chan struct{}
	closed atomic.Bool
	closes *int32 // optional shared counter for ordering assertions

	wantedVideo atomic.Int32
}

func newFakeSource(frames [][2]int16, dur float64) *fakeSource {
	s := &fakeSource{frames: frames, dur: dur, ready: make(chan struct{})}
	s.wantedVideo.Store(-1) // sentinel: WantVideo never called
	return s
}

// constantFrames builds n stereo frames all equal to (l, r).
func constantFrames(n int, l, r int16) [][2]int16 {
	f := make([][2]int16, n)
	for i := range f {
		f[i] = [2]int16{l, r}
	}
	return f
}

func (s *fakeSource) SetRange(startSec, endSec float64) {}
func (s *fakeSource) WantVideo(mode int)                { s.wantedVideo.Store(int32(mode)) }
func (s *fakeSource) Start()                            { close(s.ready) }
func (s *fakeSource) SetPaused(paused bool)             {}
func (s *fakeSource) WaitReady()                        { <-s.ready }

func (s *fakeSource) ReadAudio(dst []int16) (int, error) {
	n := 0
	want := len(dst) / 2
	for n < want && s.pos < len(s.frames) {
		dst[2*n] = s.frames[s.pos][0]
		dst[2*n+1] = s.frames[s.pos][1]
		s.pos++
		n++
	}
	return n * 2, nil
}

func (s *fakeSource) Duration() float64                  { return s.dur }
func (s *fakeSource) VideoReady() bool                    { return false }
func (s *fakeSource) ReadVideo() (VideoFrame, bool)       { return VideoFrame{}, false }

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	if s.closes != nil {
		atomic.AddInt32(s.closes, 1)
	}
	return nil
}

func newTestEngine(t interface{ Fatalf(string, ...interface{}) }) *Engine {
	e := NewEngine()
	if err := e.Init(Config{Freq: 48000, Stereo: 2, Samples: 256}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return e
}
