// Command vnmix-server exposes a mixer.Engine over a Unix-domain-socket
// control surface: one connection at a time owns control, everyone else
// gets read-only status, grounded on the teacher's cmd/hdx-server.
package main

import (
	"log"
	"os"
	"time"

	"github.com/duskvale/vnmix/internal/authtoken"
	"github.com/duskvale/vnmix/internal/decode"
	"github.com/duskvale/vnmix/internal/device"
	"github.com/duskvale/vnmix/internal/diagnostics"
	"github.com/duskvale/vnmix/internal/mixer"
)

const (
	socketFile   = "/tmp/vnmix-server.sock"
	versionMajor = 1
	versionMinor = 0
	serverName   = "vnmix-server"
)

var (
	authSecret = os.Getenv("VNMIX_AUTH_SECRET")
	authSalt   = "vnmix-control-socket"

	decodeStatus = os.Getenv("VNMIX_DECODE_STATUS") == "1"
	allowMono    = os.Getenv("VNMIX_ALLOW_MONO") == "1"
)

func main() {
	logger := log.New(os.Stderr, "vnmix-server: ", log.LstdFlags)

	cfg := mixer.Config{Freq: 48000, Stereo: 2, Samples: 4096, Status: decodeStatus, EqualMono: allowMono}

	// decode.Configure mirrors spec.md §6's init(rate, status, equal_mono):
	// a one-shot global config call made before any source is opened. It
	// must be called by the host, not by Engine.Init, since internal/mixer
	// cannot import internal/decode without an import cycle.
	decode.Configure(cfg.Status, cfg.EqualMono)

	eng := mixer.NewEngine()
	eng.SetLogger(logger)
	if err := eng.Init(cfg); err != nil {
		logger.Fatalf("engine init: %v", err)
	}

	dev, err := device.Open(eng, cfg)
	if err != nil {
		logger.Fatalf("device open: %v", err)
	}
	dev.Start(eng)
	defer dev.Close()

	meter := diagnostics.NewMeter()
	eng.AttachMeter(meter)

	go func() {
		for ev := range eng.Events() {
			logger.Printf("event: channel=%d tag=%d", ev.Channel, ev.Tag)
		}
	}()

	go func() {
		t := time.NewTicker(50 * time.Millisecond)
		defer t.Stop()
		for range t.C {
			eng.Periodic()
		}
	}()

	srv := &server{eng: eng, meter: meter, logger: logger}
	if authSecret != "" {
		srv.requireAuth = true
		logger.Printf("control socket requires AUTH, token: %s", requiredToken())
	}
	srv.serve()
}

func requiredToken() string {
	if authSecret == "" {
		return ""
	}
	return authtoken.Derive(authSecret, authSalt)
}
