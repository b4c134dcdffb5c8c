package decode

import (
	"log"
	"sync"
)

// pkgConfig mirrors spec.md §6's init(rate, status, equal_mono) call: a
// one-shot, process-wide decoder configuration, set once at startup by the
// host binary (mixer.Engine itself has no decoder to hand these to — see
// mixer.Config's doc comment). Guarded by its own mutex rather than piggy-
// backing on any mixer lock, since decoders read it from their own
// goroutines, outside the audio lock entirely.
var pkgConfig struct {
	mu         sync.Mutex
	status     bool
	equalMono  bool
	configured bool
}

// Configure sets the package-wide decode options. status enables per-open
// and per-close logging on every decoder opened afterward; equalMono
// relaxes OpenWAV's stereo-only requirement to also accept mono WAV files,
// duplicating the single channel equally into both output channels. Call
// once before opening any source; safe to call again to change settings.
func Configure(status, equalMono bool) {
	pkgConfig.mu.Lock()
	defer pkgConfig.mu.Unlock()
	pkgConfig.status = status
	pkgConfig.equalMono = equalMono
	pkgConfig.configured = true
}

func statusEnabled() bool {
	pkgConfig.mu.Lock()
	defer pkgConfig.mu.Unlock()
	return pkgConfig.status
}

func monoAllowed() bool {
	pkgConfig.mu.Lock()
	defer pkgConfig.mu.Unlock()
	return pkgConfig.equalMono
}

func logOpen(kind, path string) {
	if statusEnabled() {
		log.Printf("decode: opened %s source %s", kind, path)
	}
}

func logClose(kind, path string) {
	if statusEnabled() {
		log.Printf("decode: closed %s source %s", kind, path)
	}
}
