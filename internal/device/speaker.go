// Package device wraps the physical audio backend. It is the only place in
// vnmix that imports beep/speaker: the core mixer package stays free of any
// device dependency and merely implements beep.Streamer structurally.
package device

import (
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/duskvale/vnmix/internal/mixer"
)

// SpeakerDevice owns the physical output stream, grounded on the teacher's
// speaker.Init/speaker.Play/speaker.Clear usage in cmd/hdx-server/engine.go.
type SpeakerDevice struct {
	sr beep.SampleRate
}

// Open initializes the speaker backend at cfg.Freq with a buffer of
// cfg.Samples frames. On failure it reports a device error on eng rather
// than returning it as a hard error, matching spec.md §7's model where
// device failure is a recorded state, not a panic.
func Open(eng *mixer.Engine, cfg mixer.Config) (*SpeakerDevice, error) {
	sr := beep.SampleRate(cfg.Freq)
	bufSize := sr.N(time.Duration(cfg.Samples) * time.Second / time.Duration(cfg.Freq))
	if err := speaker.Init(sr, bufSize); err != nil {
		eng.ReportDeviceError(err.Error())
		return nil, err
	}
	return &SpeakerDevice{sr: sr}, nil
}

// Start hands the engine to the speaker as its Streamer. The engine's own
// audioMu still guards the channel table; speaker.Lock/Unlock is the
// coarser device-level lock spec.md's audio lock is realized as.
func (d *SpeakerDevice) Start(eng *mixer.Engine) {
	speaker.Play(eng)
}

// Lock/Unlock expose the device's own callback-exclusion lock, for host code
// that needs to touch channel state alongside a callback-consistent view
// without going through the Control API (spec.md §5's audio lock).
func (d *SpeakerDevice) Lock()   { speaker.Lock() }
func (d *SpeakerDevice) Unlock() { speaker.Unlock() }

// Close stops playback and releases the device. It does not close eng;
// callers call Engine.Quit separately, matching spec.md's out-of-scope
// note on device open/close ordering relative to engine teardown.
func (d *SpeakerDevice) Close() {
	speaker.Clear()
}
