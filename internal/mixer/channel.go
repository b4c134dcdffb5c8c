package mixer

import (
	"math"
	"sync/atomic"
)

// sourceSlot is one of a Channel's two source slots (playing or queued), as
// described in spec.md §3.
type sourceSlot struct {
	src            Source
	name           string
	fadeInMS       int
	tight          bool
	startMS        int
	relativeVolume float32
}

func (s *sourceSlot) occupied() bool {
	return s.src != nil
}

func (s *sourceSlot) reset() {
	*s = sourceSlot{}
}

// video modes for Channel.video.
const (
	VideoNone     = 0
	VideoDropping = 1
	VideoStrict   = 2
)

// Channel is one logical mixer strip. See spec.md §3 for the full field
// list and invariants; field names here mirror it directly so the mixer
// callback and control API read like the spec's prose.
type Channel struct {
	playing sourceSlot
	queued  sourceSlot

	paused bool

	// mixerVolume, event and video are read by the mixer callback and
	// written by control operations that deliberately skip the audio lock
	// (spec.md §4.4, §9 design note "single-word lock-free reads"). They are
	// stored as atomics rather than plain fields so the property holds on
	// platforms without a word-tearing guarantee.
	mixerVolumeBits atomic.Uint32 // math.Float32bits(mixerVolume)
	event           atomic.Int32
	video           atomic.Int32

	secondaryVolume Envelope
	pan             Envelope
	fade            Envelope

	pos uint64

	// stopSamples: -1 means no hard stop scheduled; a value >= 0 counts
	// down once per mixed sample. Mutated only under the audio lock.
	stopSamples int64
}

func (c *Channel) mixerVolume() float32 {
	return math.Float32frombits(c.mixerVolumeBits.Load())
}

func (c *Channel) setMixerVolume(v float32) {
	c.mixerVolumeBits.Store(math.Float32bits(v))
}

// newChannel returns a channel in the zero-initialized state spec.md §3
// mandates for a freshly grown table slot.
func newChannel() Channel {
	c := Channel{
		paused:      true,
		stopSamples: -1,
	}
	c.setMixerVolume(1.0)
	c.fade.Init(1.0)
	c.secondaryVolume.Init(1.0)
	c.pan.Init(0.0)
	return c
}

// queueDepth reports how many of the two slots are occupied.
func (c *Channel) queueDepth() int {
	n := 0
	if c.playing.occupied() {
		n++
	}
	if c.queued.occupied() {
		n++
	}
	return n
}
