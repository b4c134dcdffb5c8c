package mixer

// VideoFrame is an opaque decoded video frame, handed back to the host
// unexamined. The core never looks inside it.
type VideoFrame struct {
	Data   []byte
	Width  int
	Height int
	PTS    float64
}

// Source is the narrow interface the mixer consumes from a media decoder
// (spec.md §6). A Source is opened already bound to one stream and one
// engine sample rate; the mixer never resamples.
type Source interface {
	// SetRange confines playback to [startSec, endSec) seconds. endSec == 0
	// means "no upper bound".
	SetRange(startSec, endSec float64)

	// WantVideo enables video frame production. mode 1 drops late frames,
	// mode 2 keeps every frame.
	WantVideo(mode int)

	// Start begins background decoding.
	Start()

	// SetPaused forwards a pause/resume request to the decoder.
	SetPaused(paused bool)

	// WaitReady blocks until the first output is available. May be called
	// from a goroutine that is not holding any engine lock.
	WaitReady()

	// ReadAudio fills dst with interleaved stereo signed-16 samples at the
	// engine's sample rate, returning the number of int16 values written.
	// n == 0 signals end of stream; ReadAudio never returns a non-nil error
	// for ordinary EOF.
	ReadAudio(dst []int16) (n int, err error)

	// Duration reports the stream length in seconds, or 0 if unknown.
	Duration() float64

	// VideoReady reports whether a decoded video frame is waiting.
	VideoReady() bool

	// ReadVideo returns the next decoded video frame, if any.
	ReadVideo() (VideoFrame, bool)

	// Close releases decoder-owned resources. Always called off the audio
	// thread, via the dying list.
	Close() error
}
