package mixer

// Envelope is a linear interpolator over discrete sample counts. It is used
// for the fade, pan and secondary-volume ramps of a Channel. Zero value is
// not meaningful; use Init.
type Envelope struct {
	done     uint64
	duration uint64
	start    float32
	end      float32
}

// Init makes the envelope read v forever, with no ramp in progress.
func (e *Envelope) Init(v float32) {
	e.done = 0
	e.duration = 0
	e.start = v
	e.end = v
}

// Read returns the current interpolated value without advancing it.
func (e *Envelope) Read() float32 {
	if e.duration == 0 || e.done >= e.duration {
		return e.end
	}
	t := float32(e.done) / float32(e.duration)
	return e.start + (e.end-e.start)*t
}

// Retarget starts a new ramp from the envelope's current value to newEnd,
// completing after durationSamples samples of Advance.
func (e *Envelope) Retarget(newEnd float32, durationSamples uint64) {
	e.start = e.Read()
	e.end = newEnd
	e.done = 0
	e.duration = durationSamples
}

// Advance moves the envelope forward by exactly one sample, saturating at
// duration.
func (e *Envelope) Advance() {
	if e.done < e.duration {
		e.done++
	}
}

// Done reports whether the current ramp has reached its target.
func (e *Envelope) Done() bool {
	return e.done >= e.duration
}
