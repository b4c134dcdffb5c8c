// Package mixer implements the core of vnmix: a multi-channel real-time
// audio mixing engine for game and visual-novel playback. See SPEC_FULL.md
// for the full design; this file wires together the pieces described in
// the sibling files (envelope.go, channel.go, table.go, dying.go,
// callback.go, control.go, errors.go).
package mixer

import (
	"log"
	"sync"
	"sync/atomic"
)

// Config configures Engine.Init. Freq/Stereo/Samples mirror spec.md §6 and
// are consumed here. Status and EqualMono mirror the same §6 call's
// remaining two arguments, but the engine itself has no decoder to hand
// them to: internal/mixer cannot import internal/decode without an import
// cycle (decode already imports mixer for Source/VideoFrame). The host
// binary is responsible for calling decode.Configure(cfg.Status,
// cfg.EqualMono) once at startup, before opening any source, using the
// same Config value passed to Init.
type Config struct {
	Freq      int
	Stereo    int
	Samples   int
	Status    bool
	EqualMono bool
}

// Event is posted to Engine.Events() when a channel's playing source
// terminates and its endevent tag is non-zero.
type Event struct {
	Channel int
	Tag     int32
}

// Meter receives the mixer's float accumulator after every callback, for
// host-side spectrum/level displays (SPEC_FULL.md §4.8). It must not
// retain the slice past the call.
type Meter interface {
	Observe(mixed []float32, frames int)
}

// Engine is the process-wide mixing engine singleton (spec.md §9): a
// channel table, a dying list, an error slot, and the two locks that
// separate control-thread mutation from the audio callback.
type Engine struct {
	audioMu sync.Mutex // spec.md's "audio lock"
	nameMu  sync.Mutex // spec.md's "name lock"

	table channelTable
	dying dyingList
	errs  errorSlot

	sampleRate int

	events        chan Event
	droppedEvents uint64 // atomic

	logger *log.Logger

	meter Meter

	accum      []float32
	scratch    []int16
	scratchOut []int16

	initialized bool
}

// NewEngine constructs an uninitialized engine. Call Init before use.
func NewEngine() *Engine {
	return &Engine{logger: log.Default()}
}

// Init records the sample rate and prepares the engine for mixing. It does
// not open any audio device: spec.md §1 places device open/close out of
// scope for the core, leaving only the callback contract specified. The
// caller (e.g. cmd/vnmix-server) opens the device separately and, on
// failure, should call ReportDeviceError instead of Init.
func (e *Engine) Init(cfg Config) error {
	if cfg.Stereo != 2 {
		e.errs.setRange("stereo must be 2")
		return errRange
	}
	if cfg.Freq <= 0 || cfg.Samples <= 0 {
		e.errs.setRange("freq and samples must be positive")
		return errRange
	}

	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	e.sampleRate = cfg.Freq
	e.table = channelTable{}
	e.dying = dyingList{}
	e.events = make(chan Event, 64)
	e.accum = make([]float32, 2*cfg.Samples)
	e.scratch = make([]int16, 2*cfg.Samples)
	e.scratchOut = make([]int16, 2*cfg.Samples)
	e.initialized = true
	e.errs.clear()
	return nil
}

// ReportDeviceError records a DEVICE_ERROR, for use by the host binding
// when opening the physical audio device fails (spec.md §7).
func (e *Engine) ReportDeviceError(msg string) {
	e.errs.setDevice(msg)
}

// Quit stops every channel and resets the channel table so that no channel
// survives (spec.md §3 Lifecycle). It does not touch the physical device;
// callers close that separately, mirroring spec.md's out-of-scope note on
// device open/close.
func (e *Engine) Quit() {
	e.audioMu.Lock()
	n := len(e.table.channels)
	e.audioMu.Unlock()

	for i := 0; i < n; i++ {
		e.Stop(i)
	}

	e.nameMu.Lock()
	dying := e.dying.detach()
	e.nameMu.Unlock()
	closeAll(dying)

	e.audioMu.Lock()
	e.table = channelTable{}
	e.initialized = false
	e.audioMu.Unlock()
}

// SampleRate returns the configured device sample rate.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// Events exposes the channel end-of-source events are posted to.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// DroppedEvents counts events that could not be posted because Events()
// was not being drained quickly enough.
func (e *Engine) DroppedEvents() uint64 {
	return atomic.LoadUint64(&e.droppedEvents)
}

// SetLogger overrides the engine's diagnostic logger (default log.Default()).
func (e *Engine) SetLogger(l *log.Logger) {
	if l != nil {
		e.logger = l
	}
}

// AttachMeter wires an optional diagnostics.Meter into the callback. Pass
// nil to detach; the callback skips the extra copy entirely when unset.
func (e *Engine) AttachMeter(m Meter) {
	e.audioMu.Lock()
	e.meter = m
	e.audioMu.Unlock()
}

func (e *Engine) msToSamples(ms int) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(ms) * uint64(e.sampleRate) / 1000
}

func (e *Engine) samplesToMs(samples uint64) int {
	return int(samples * 1000 / uint64(e.sampleRate))
}

func (e *Engine) postEvent(channel int, tag int32) {
	if tag == 0 {
		return
	}
	select {
	case e.events <- Event{Channel: channel, Tag: tag}:
	default:
		atomic.AddUint64(&e.droppedEvents, 1)
	}
}
