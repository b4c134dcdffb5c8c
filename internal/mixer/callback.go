package mixer

// Stream implements beep.Streamer, letting an *Engine be handed directly to
// beep/speaker.Play. It holds the audio lock for the whole callback
// (spec.md §5): every mutating control operation also takes that lock, so
// no torn slot pointer is ever observed here.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	if !e.initialized {
		for i := range samples {
			samples[i] = [2]float64{}
		}
		return len(samples), true
	}

	need := 2 * len(samples)
	if cap(e.scratchOut) < need {
		e.scratchOut = make([]int16, need)
	}
	buf := e.scratchOut[:need]
	e.mixLocked(buf)

	for i := range samples {
		samples[i][0] = float64(buf[2*i]) / 32768.0
		samples[i][1] = float64(buf[2*i+1]) / 32768.0
	}
	return len(samples), true
}

// Err implements beep.Streamer. The callback never reports errors: a dry
// decoder is treated as end of stream (spec.md §7).
func (e *Engine) Err() error { return nil }

// MixInto runs one mixer callback directly, writing N interleaved stereo
// int16 frames (len(buf) == 2*N) into buf, per spec.md §4.3. It is the
// entry point used by tests and by any device backend that wants raw int16
// rather than beep's float64 frames.
func (e *Engine) MixInto(buf []int16) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	e.mixLocked(buf)
}

// mixLocked implements spec.md §4.3 exactly. Caller must hold audioMu.
func (e *Engine) mixLocked(buf []int16) {
	n := len(buf) / 2

	if cap(e.accum) < 2*n {
		e.accum = make([]float32, 2*n)
	}
	e.accum = e.accum[:2*n]
	for i := range e.accum {
		e.accum[i] = 0
	}

	if cap(e.scratch) < 2*n {
		e.scratch = make([]int16, 2*n)
	}

	for idx := range e.table.channels {
		c := &e.table.channels[idx]
		if !c.playing.occupied() || c.paused {
			continue
		}
		e.mixChannel(idx, c, n)
	}

	if e.meter != nil {
		e.meter.Observe(e.accum, n)
	}

	for i := 0; i < 2*n; i++ {
		v := e.accum[i] * 32767.0
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		buf[i] = int16(v)
	}
}

func (e *Engine) mixChannel(idx int, c *Channel, n int) {
	mixed := 0
	for mixed < n && c.playing.occupied() {
		want := n - mixed
		scratch := e.scratch[: 2*want : 2*want]
		read, _ := c.playing.src.ReadAudio(scratch)
		readFrames := read / 2

		if c.stopSamples == 0 || readFrames == 0 {
			e.transitionEndOfSource(idx, c)
			continue
		}

		f := 0
		for f < readFrames && c.stopSamples != 0 {
			gain := c.mixerVolume() * c.playing.relativeVolume * c.fade.Read() * c.secondaryVolume.Read()
			p := c.pan.Read()
			leftMul := gain * min32(1, 1-p)
			rightMul := gain * min32(1, 1+p)

			l := float32(scratch[2*f]) / 32768.0
			r := float32(scratch[2*f+1]) / 32768.0
			e.accum[2*mixed] += l * leftMul
			e.accum[2*mixed+1] += r * rightMul

			if c.stopSamples > 0 {
				c.stopSamples--
			}
			c.fade.Advance()
			c.secondaryVolume.Advance()
			c.pan.Advance()
			c.pos++
			mixed++
			f++
		}
	}
}

// transitionEndOfSource runs the end-of-playing-source slot transition
// described in spec.md §4.3 step 2b/2c and the "Tight" semantics of §4.3.
// Called with audioMu held; takes nameMu itself for the slot move, in the
// order the spec requires (audio lock outer, name lock inner).
func (e *Engine) transitionEndOfSource(idx int, c *Channel) {
	e.postEvent(idx, c.event.Load())

	e.nameMu.Lock()
	oldTight := c.playing.tight
	e.dying.push(c.playing.src)
	c.playing.reset()
	c.playing = c.queued
	c.queued.reset()
	e.nameMu.Unlock()

	if !c.playing.occupied() {
		return
	}

	if c.playing.fadeInMS != 0 {
		oldTight = false
	}
	resetFade := !oldTight
	c.startStream(e, resetFade)
}

// startStream applies spec.md §4.3's start_stream bookkeeping to a channel
// whose playing slot has just been (re)populated.
func (c *Channel) startStream(e *Engine, resetFade bool) {
	c.pos = 0
	if resetFade {
		c.fade.Init(0)
		c.fade.Retarget(1.0, e.msToSamples(c.playing.fadeInMS))
		c.stopSamples = -1
	}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
