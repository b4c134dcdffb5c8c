// Package diagnostics is a supplemental, non-core feature: a live
// spectrum/level snapshot of the mixed output, for host-side VU meters or
// reactive backgrounds. It is grounded on the teacher's
// internal/codec/spectrogram.go, retargeted from an offline PNG render of a
// whole track to a live ring-buffer snapshot of the most recent window.
package diagnostics

import (
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// fftSize is the analysis window, matching the teacher's spectrogram.go.
const fftSize = 1024

// buckets is the number of magnitude buckets a Snapshot reports, one octave
// band per bucket rather than one bin per FFT output, since a raw 512-bin
// spectrum is far more resolution than a VU-style display needs.
const buckets = 32

// Meter implements mixer.Meter. It keeps only the most recent fftSize mono
// samples; Observe is called from the audio callback so it must not block
// or allocate on the hot path beyond the fixed-size copy it already does.
type Meter struct {
	mu     sync.Mutex
	ring   []float32
	filled int
	peak   float32
}

// NewMeter returns a Meter with a zeroed analysis window.
func NewMeter() *Meter {
	return &Meter{ring: make([]float32, fftSize)}
}

// Observe folds the interleaved stereo accumulator down to mono and appends
// it to the ring, called once per mixer callback (SPEC_FULL.md §4.8).
func (m *Meter) Observe(mixed []float32, frames int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < frames; i++ {
		l, r := mixed[2*i], mixed[2*i+1]
		mono := (l + r) * 0.5
		if a := float32(math.Abs(float64(mono))); a > m.peak {
			m.peak = a
		}
		if m.filled < len(m.ring) {
			m.ring[m.filled] = mono
			m.filled++
		} else {
			copy(m.ring, m.ring[1:])
			m.ring[len(m.ring)-1] = mono
		}
	}
}

// Snapshot is a point-in-time spectrum/level reading.
type Snapshot struct {
	Peak      float32
	Magnitude [buckets]float32
}

// Snapshot runs an FFT over the current analysis window and returns
// log-spaced magnitude buckets plus the running peak level. Peak resets on
// every call so hosts see a decaying peak-hold rather than an all-time max.
func (m *Meter) Snapshot() Snapshot {
	m.mu.Lock()
	window := make([]float64, fftSize)
	for i, v := range m.ring {
		window[i] = float64(v)
	}
	filled := m.filled
	peak := m.peak
	m.peak = 0
	m.mu.Unlock()

	var out Snapshot
	out.Peak = peak
	if filled < fftSize {
		return out
	}

	coeffs := fft.FFTReal(window)
	half := fftSize / 2
	for b := 0; b < buckets; b++ {
		lo := b * half / buckets
		hi := (b + 1) * half / buckets
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		count := 0
		for i := lo; i < hi && i < half; i++ {
			mag := math.Sqrt(real(coeffs[i])*real(coeffs[i]) + imag(coeffs[i])*imag(coeffs[i]))
			sum += mag
			count++
		}
		if count > 0 {
			out.Magnitude[b] = float32(sum / float64(count))
		}
	}
	return out
}
