package decode

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/hraban/opus"
)

// writeTestOpus encodes numPackets frames of silence as length-prefixed Opus
// packets, the wire format opusSource expects.
func writeTestOpus(t *testing.T, sampleRate, numPackets int) string {
	t.Helper()

	enc, err := opus.NewEncoder(sampleRate, 2, opus.AppAudio)
	if err != nil {
		t.Fatalf("opus.NewEncoder() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.opus")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	defer f.Close()

	pcm := make([]int16, opusFrameSamples*2)
	data := make([]byte, 4000)
	for i := 0; i < numPackets; i++ {
		n, err := enc.Encode(pcm, data)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if err := binary.Write(f, binary.BigEndian, uint16(n)); err != nil {
			t.Fatalf("binary.Write() error = %v", err)
		}
		if _, err := f.Write(data[:n]); err != nil {
			t.Fatalf("f.Write() error = %v", err)
		}
	}
	return path
}

func TestOpenOpus_RejectsMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := OpenOpus(filepath.Join(t.TempDir(), "nope.opus"), 48000); err == nil {
		t.Fatalf("OpenOpus() error = nil, want a file-not-found error")
	}
}

func TestOpusSource_ReadAudioDecodesEveryPacket(t *testing.T) {
	t.Parallel()

	const packets = 5
	path := writeTestOpus(t, 48000, packets)

	src, err := OpenOpus(path, 48000)
	if err != nil {
		t.Fatalf("OpenOpus() error = %v", err)
	}
	defer src.Close()

	src.Start()
	src.WaitReady()

	want := packets * opusFrameSamples
	dst := make([]int16, 2*want)
	total := 0
	for total < want {
		n, err := src.ReadAudio(dst[2*total:])
		if err != nil {
			t.Fatalf("ReadAudio() error = %v", err)
		}
		if n == 0 {
			break
		}
		total += n / 2
	}
	if total != want {
		t.Fatalf("ReadAudio() delivered %d frames, want %d", total, want)
	}
}

func TestOpusSource_DurationIsUnknown(t *testing.T) {
	t.Parallel()

	path := writeTestOpus(t, 48000, 1)
	src, err := OpenOpus(path, 48000)
	if err != nil {
		t.Fatalf("OpenOpus() error = %v", err)
	}
	defer src.Close()

	if d := src.Duration(); d != 0 {
		t.Fatalf("Duration() = %v, want 0 (unknown) for a raw framed stream", d)
	}
}
