package mixer

// This file implements the Control API table of spec.md §4.4. Every
// mutating operation takes the audio lock over its whole mutation; every
// read that inspects moving slot identity additionally takes the name
// lock, nested inside the audio lock, per spec.md §5's ordering rule
// (never audio-inside-name). Because this Go port keeps the channel table
// as a single Go slice rather than a fixed array, growing it safely
// requires the audio lock for any access at all — see DESIGN.md for why
// the name lock is therefore always taken nested inside the audio lock
// here, rather than standalone as in the original design.

// ensureChannel grows the table to admit ch, under the audio lock.
func (e *Engine) ensureChannel(ch int) error {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	if err := e.table.ensure(ch); err != nil {
		e.errs.setRange("channel index out of range")
		return err
	}
	return nil
}

// Play opens a new source via open and makes it the channel's playing
// source. The existing playing and queued sources are freed unconditionally
// before open is attempted, so a failed open leaves the channel with
// nothing playing rather than preserving what was there (spec.md §4.4).
// open itself is called outside the audio lock (spec.md §5: decoder-open
// "MAY" move outside the audio lock); the returned handle is swapped in
// once ready.
func (e *Engine) Play(ch int, open func() (Source, error), name string, fadeInMS int, tight, paused bool, startS, endS float64, relVol float32) error {
	if err := e.ensureChannel(ch); err != nil {
		return err
	}

	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		e.errs.setRange("channel index out of range")
		return err
	}
	videoMode := int(c.video.Load())

	e.nameMu.Lock()
	if c.playing.occupied() {
		e.dying.push(c.playing.src)
	}
	if c.queued.occupied() {
		e.dying.push(c.queued.src)
	}
	c.playing.reset()
	c.queued.reset()
	e.nameMu.Unlock()
	e.audioMu.Unlock()

	src, err := open()
	if err != nil {
		e.errs.setSound()
		return err
	}
	src.SetRange(startS, endS)
	src.WantVideo(videoMode)
	src.Start()

	e.audioMu.Lock()
	c, err = e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		_ = src.Close()
		e.errs.setRange("channel index out of range")
		return err
	}

	e.nameMu.Lock()
	c.playing = sourceSlot{
		src:            src,
		name:           name,
		fadeInMS:       fadeInMS,
		tight:          tight,
		startMS:        int(startS * 1000),
		relativeVolume: relVol,
	}
	c.queued.reset()
	e.nameMu.Unlock()

	c.paused = paused
	c.startStream(e, true)
	e.audioMu.Unlock()

	e.errs.clear()
	return nil
}

// Queue populates the channel's queued slot, or delegates to Play if
// nothing is currently playing. The existing queued source, if any, is
// freed unconditionally before open is attempted, so a failed open leaves
// the queued slot empty rather than preserving what was there (spec.md
// §4.4).
func (e *Engine) Queue(ch int, open func() (Source, error), name string, fadeInMS int, tight bool, startS, endS float64, relVol float32) error {
	if err := e.ensureChannel(ch); err != nil {
		return err
	}

	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		e.errs.setRange("channel index out of range")
		return err
	}
	e.nameMu.Lock()
	isPlaying := c.playing.occupied()
	e.nameMu.Unlock()
	if !isPlaying {
		e.audioMu.Unlock()
		return e.Play(ch, open, name, fadeInMS, tight, false, startS, endS, relVol)
	}

	videoMode := int(c.video.Load())

	e.nameMu.Lock()
	if c.queued.occupied() {
		e.dying.push(c.queued.src)
	}
	c.queued.reset()
	e.nameMu.Unlock()
	e.audioMu.Unlock()

	src, err := open()
	if err != nil {
		e.errs.setSound()
		return err
	}
	src.SetRange(startS, endS)
	src.WantVideo(videoMode)
	src.Start()

	e.audioMu.Lock()
	c, err = e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		_ = src.Close()
		e.errs.setRange("channel index out of range")
		return err
	}
	e.nameMu.Lock()
	if c.queued.occupied() {
		e.dying.push(c.queued.src)
	}
	c.queued = sourceSlot{
		src:            src,
		name:           name,
		fadeInMS:       fadeInMS,
		tight:          tight,
		startMS:        int(startS * 1000),
		relativeVolume: relVol,
	}
	e.nameMu.Unlock()
	e.audioMu.Unlock()

	e.errs.clear()
	return nil
}

// Stop posts the end-event if a source is playing, then frees both slots.
func (e *Engine) Stop(ch int) {
	if err := e.ensureChannel(ch); err != nil {
		return
	}

	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		return
	}
	wasPlaying := c.playing.occupied()
	tag := c.event.Load()

	e.nameMu.Lock()
	if c.playing.occupied() {
		e.dying.push(c.playing.src)
	}
	if c.queued.occupied() {
		e.dying.push(c.queued.src)
	}
	c.playing.reset()
	c.queued.reset()
	e.nameMu.Unlock()

	c.stopSamples = -1
	e.audioMu.Unlock()

	if wasPlaying {
		e.postEvent(ch, tag)
	}
	e.errs.clear()
}

// Dequeue drops the queued source, unless the playing source is tight and
// evenTight was not requested — in which case only the queued source's own
// tight flag is cleared (spec.md §4.4).
func (e *Engine) Dequeue(ch int, evenTight bool) {
	if err := e.ensureChannel(ch); err != nil {
		return
	}

	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err == nil {
		e.nameMu.Lock()
		if c.queued.occupied() {
			if !c.playing.tight || evenTight {
				e.dying.push(c.queued.src)
				c.queued.reset()
			} else {
				c.queued.tight = false
			}
		}
		e.nameMu.Unlock()
	}
	e.audioMu.Unlock()
	e.errs.clear()
}

// Fadeout schedules the playing source to end. ms == 0 stops on the very
// next mixed sample; otherwise the fade envelope ramps to 0 over ms.
func (e *Engine) Fadeout(ch int, ms int) {
	if err := e.ensureChannel(ch); err != nil {
		return
	}

	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err == nil {
		if ms <= 0 {
			c.stopSamples = 0
		} else {
			dur := e.msToSamples(ms)
			c.fade.Retarget(0, dur)
			c.stopSamples = int64(dur)
			e.nameMu.Lock()
			c.queued.tight = false
			if !c.queued.occupied() {
				c.playing.tight = false
			}
			e.nameMu.Unlock()
		}
	}
	e.audioMu.Unlock()
	e.errs.clear()
}

// Pause sets the paused flag and forwards the request to the decoder.
func (e *Engine) Pause(ch int, flag bool) {
	if err := e.ensureChannel(ch); err != nil {
		return
	}

	e.audioMu.Lock()
	c, err := e.table.get(ch)
	var src Source
	if err == nil {
		c.paused = flag
		if c.playing.occupied() {
			src = c.playing.src
		}
	}
	e.audioMu.Unlock()

	if src != nil {
		src.SetPaused(flag)
	}
	e.errs.clear()
}

// UnpauseAllAtStart clears the paused flag on every channel whose playing
// source has never advanced, once that source's decoder reports ready.
// WaitReady may block; it always runs with no engine lock held.
func (e *Engine) UnpauseAllAtStart() {
	e.audioMu.Lock()
	n := len(e.table.channels)
	e.audioMu.Unlock()

	for i := 0; i < n; i++ {
		e.audioMu.Lock()
		c, err := e.table.get(i)
		var src Source
		if err == nil && c.playing.occupied() && c.paused && c.pos == 0 {
			src = c.playing.src
		}
		e.audioMu.Unlock()
		if src == nil {
			continue
		}

		src.WaitReady()

		e.audioMu.Lock()
		c, err = e.table.get(i)
		if err == nil && c.playing.src == src && c.paused && c.pos == 0 {
			c.paused = false
		}
		e.audioMu.Unlock()
		src.SetPaused(false)
	}
}

// QueueDepth reports how many of the channel's two slots are occupied.
func (e *Engine) QueueDepth(ch int) int {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	c, err := e.table.get(ch)
	if err != nil {
		e.errs.setRange("channel index out of range")
		return 0
	}
	e.nameMu.Lock()
	defer e.nameMu.Unlock()
	e.errs.clear()
	return c.queueDepth()
}

// PlayingName returns the display name of the current playing source, if
// any.
func (e *Engine) PlayingName(ch int) (string, bool) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	c, err := e.table.get(ch)
	if err != nil {
		e.errs.setRange("channel index out of range")
		return "", false
	}
	e.nameMu.Lock()
	defer e.nameMu.Unlock()
	e.errs.clear()
	if !c.playing.occupied() {
		return "", false
	}
	return c.playing.name, true
}

// GetPos returns the playing source's absolute position in milliseconds,
// or -1 if nothing is playing.
func (e *Engine) GetPos(ch int) int {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	c, err := e.table.get(ch)
	if err != nil {
		e.errs.setRange("channel index out of range")
		return -1
	}
	e.nameMu.Lock()
	defer e.nameMu.Unlock()
	e.errs.clear()
	if !c.playing.occupied() {
		return -1
	}
	return e.samplesToMs(c.pos) + c.playing.startMS
}

// GetDuration returns the playing source's total duration in seconds, or 0
// if nothing is playing.
func (e *Engine) GetDuration(ch int) float64 {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	c, err := e.table.get(ch)
	if err != nil {
		e.errs.setRange("channel index out of range")
		return 0
	}
	e.nameMu.Lock()
	src := c.playing.src
	e.nameMu.Unlock()
	e.errs.clear()
	if src == nil {
		return 0
	}
	return src.Duration()
}

// SetEndEvent stores the tag posted when the channel's playing source
// terminates. It deliberately does not take the audio lock (spec.md §9).
func (e *Engine) SetEndEvent(ch int, tag int32) {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	e.audioMu.Unlock()
	if err != nil {
		e.errs.setRange("channel index out of range")
		return
	}
	c.event.Store(tag)
	e.errs.clear()
}

// SetVolume sets the channel's mixer volume, lock-free (spec.md §9).
func (e *Engine) SetVolume(ch int, v float32) {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	e.audioMu.Unlock()
	if err != nil {
		e.errs.setRange("channel index out of range")
		return
	}
	c.setMixerVolume(v)
	e.errs.clear()
}

// GetVolume returns the channel's mixer volume.
func (e *Engine) GetVolume(ch int) float32 {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	e.audioMu.Unlock()
	if err != nil {
		e.errs.setRange("channel index out of range")
		return 0
	}
	e.errs.clear()
	return c.mixerVolume()
}

// SetPan retargets the pan envelope over delaySec seconds. -1 is full
// left, +1 is full right.
func (e *Engine) SetPan(ch int, pan float32, delaySec float64) {
	if err := e.ensureChannel(ch); err != nil {
		return
	}
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err == nil {
		c.pan.Retarget(pan, e.msToSamples(int(delaySec*1000)))
	}
	e.audioMu.Unlock()
	e.errs.clear()
}

// SetSecondaryVolume retargets the secondary-volume envelope over delaySec
// seconds.
func (e *Engine) SetSecondaryVolume(ch int, v float32, delaySec float64) {
	if err := e.ensureChannel(ch); err != nil {
		return
	}
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err == nil {
		c.secondaryVolume.Retarget(v, e.msToSamples(int(delaySec*1000)))
	}
	e.audioMu.Unlock()
	e.errs.clear()
}

// SetVideo stores the channel's video mode, used by subsequent opens.
func (e *Engine) SetVideo(ch int, mode int) {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	e.audioMu.Unlock()
	if err != nil {
		e.errs.setRange("channel index out of range")
		return
	}
	c.video.Store(int32(mode))
	e.errs.clear()
}

// VideoMode returns the channel's stored video mode.
func (e *Engine) VideoMode(ch int) int {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	e.audioMu.Unlock()
	if err != nil {
		e.errs.setRange("channel index out of range")
		return VideoNone
	}
	e.errs.clear()
	return int(c.video.Load())
}

// VideoReady reports whether the playing source has a decoded video frame
// waiting.
func (e *Engine) VideoReady(ch int) bool {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		e.errs.setRange("channel index out of range")
		return true
	}
	e.nameMu.Lock()
	src := c.playing.src
	e.nameMu.Unlock()
	e.audioMu.Unlock()
	e.errs.clear()
	if src == nil {
		return true
	}
	return src.VideoReady()
}

// ReadVideo returns the next decoded video frame from the playing source,
// if any.
func (e *Engine) ReadVideo(ch int) (VideoFrame, bool) {
	e.audioMu.Lock()
	c, err := e.table.get(ch)
	if err != nil {
		e.audioMu.Unlock()
		e.errs.setRange("channel index out of range")
		return VideoFrame{}, false
	}
	e.nameMu.Lock()
	src := c.playing.src
	e.nameMu.Unlock()
	e.audioMu.Unlock()
	e.errs.clear()
	if src == nil {
		return VideoFrame{}, false
	}
	return src.ReadVideo()
}

// Periodic detaches the dying list and closes every handle on it, outside
// the name lock (spec.md §4.5).
func (e *Engine) Periodic() {
	e.nameMu.Lock()
	dying := e.dying.detach()
	e.nameMu.Unlock()
	closeAll(dying)
}
