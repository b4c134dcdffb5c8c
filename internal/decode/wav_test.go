package decode

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV encodes n stereo frames of a constant (l, r) sample at
// sampleRate into a temp file and returns its path.
func writeTestWAV(t *testing.T, sampleRate, n int, l, r int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)

	data := make([]int, 2*n)
	for i := 0; i < n; i++ {
		data[2*i] = l
		data[2*i+1] = r
	}
	buf := &audio.IntBuffer{
		Data:   data,
		Format: &audio.Format{NumChannels: 2, SampleRate: sampleRate},
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("f.Close() error = %v", err)
	}
	return path
}

func waitReadyOrFail(t *testing.T, s interface{ WaitReady() }) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.WaitReady()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitReady() did not return")
	}
}

func TestOpenWAV_RejectsSampleRateMismatch(t *testing.T) {
	t.Parallel()

	path := writeTestWAV(t, 44100, 10, 100, 100)
	if _, err := OpenWAV(path, 48000); err == nil {
		t.Fatalf("OpenWAV() error = nil, want a sample-rate mismatch error")
	}
}

func TestOpenWAV_RejectsMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := OpenWAV(filepath.Join(t.TempDir(), "nope.wav"), 48000); err == nil {
		t.Fatalf("OpenWAV() error = nil, want a file-not-found error")
	}
}

func TestWAVSource_ReadAudioReturnsAllFrames(t *testing.T) {
	t.Parallel()

	path := writeTestWAV(t, 48000, 500, 1000, -1000)
	src, err := OpenWAV(path, 48000)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	defer src.Close()

	src.Start()
	waitReadyOrFail(t, src)

	dst := make([]int16, 2*500)
	total := 0
	for total < 500 {
		n, err := src.ReadAudio(dst[2*total:])
		if err != nil {
			t.Fatalf("ReadAudio() error = %v", err)
		}
		if n == 0 {
			break
		}
		total += n / 2
	}
	if total != 500 {
		t.Fatalf("ReadAudio() delivered %d frames, want 500", total)
	}
	if dst[0] != 1000 || dst[1] != -1000 {
		t.Fatalf("ReadAudio() dst[0:2] = %d,%d, want 1000,-1000", dst[0], dst[1])
	}
}

func TestWAVSource_SetRangeClipsToWindow(t *testing.T) {
	t.Parallel()

	// 100 silent frames, then handled purely via start/end offsets in samples.
	path := writeTestWAV(t, 48000, 100, 7, 7)
	src, err := OpenWAV(path, 48000)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	defer src.Close()

	// Keep only frames [10, 20).
	src.SetRange(10.0/48000, 20.0/48000)
	src.Start()
	waitReadyOrFail(t, src)

	dst := make([]int16, 2*100)
	n, err := src.ReadAudio(dst)
	if err != nil {
		t.Fatalf("ReadAudio() error = %v", err)
	}
	if n/2 != 10 {
		t.Fatalf("ReadAudio() returned %d frames, want 10 after SetRange clipping", n/2)
	}
}
