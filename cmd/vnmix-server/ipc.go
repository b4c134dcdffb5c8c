package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/duskvale/vnmix/internal/authtoken"
	"github.com/duskvale/vnmix/internal/decode"
	"github.com/duskvale/vnmix/internal/diagnostics"
	"github.com/duskvale/vnmix/internal/mixer"
)

// server holds the socket-layer state that sits outside THE CORE: owner
// tracking and auth, grounded on the teacher's controlOwner/claimOwner
// pattern in ipc.go.
type server struct {
	eng    *mixer.Engine
	meter  *diagnostics.Meter
	logger *log.Logger

	requireAuth bool

	mu    sync.Mutex
	owner net.Conn
}

func (s *server) isOwner(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner == c
}

func (s *server) claimOwner(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == nil {
		s.owner = c
		return true
	}
	return s.owner == c
}

func (s *server) releaseOwner(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == c {
		s.owner = nil
	}
}

func (s *server) serve() {
	_ = removeStaleSocket(socketFile)
	ln, err := net.Listen("unix", socketFile)
	if err != nil {
		s.logger.Fatalf("listen: %v", err)
	}
	s.logger.Printf("listening on %s", socketFile)

	for {
		c, err := ln.Accept()
		if err != nil {
			continue
		}
		go s.handleConn(c)
	}
}

func (s *server) handleConn(c net.Conn) {
	defer func() {
		s.releaseOwner(c)
		c.Close()
	}()

	authed := !s.requireAuth
	sc := bufio.NewScanner(c)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		verb := strings.ToUpper(parts[0])
		var arg string
		if len(parts) == 2 {
			arg = parts[1]
		}

		switch verb {
		case "ABOUT":
			fmt.Fprintf(c, "%s V.%d.%d\n", serverName, versionMajor, versionMinor)
			continue
		case "PING":
			c.Write([]byte("PONG\n"))
			continue
		case "WHOAMI":
			if s.isOwner(c) {
				c.Write([]byte("OWNER\n"))
			} else {
				c.Write([]byte("OBSERVER\n"))
			}
			continue
		case "AUTH":
			if authtoken.Verify(arg, authSecret, authSalt) {
				authed = true
				c.Write([]byte("OK\n"))
			} else {
				c.Write([]byte("ERR AUTH_FAILED\n"))
			}
			continue
		case "ERROR":
			kind, msg := s.eng.GetError()
			fmt.Fprintf(c, "%s %s\n", kind, msg)
			continue
		case "METER":
			snap := s.meter.Snapshot()
			fmt.Fprintf(c, "PEAK %.4f\n", snap.Peak)
			continue
		}

		if !authed {
			c.Write([]byte("ERR UNAUTHENTICATED\n"))
			continue
		}

		if !s.claimOwner(c) {
			c.Write([]byte("ERR CONTROL_LOCKED\n"))
			continue
		}

		s.dispatch(c, verb, arg)
	}
}

func removeStaleSocket(path string) error {
	if !filepath.IsAbs(path) {
		return nil
	}
	return removeIfExists(path)
}

func argInt(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

func argFloat(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

func openSource(path string, rate int) (mixer.Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".opus") {
		return decode.OpenOpus(path, rate)
	}
	return decode.OpenWAV(path, rate)
}
