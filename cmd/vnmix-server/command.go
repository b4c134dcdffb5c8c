package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/duskvale/vnmix/internal/mixer"
)

// dispatch runs one mutating verb. c already owns control by the time this
// is called (see server.handleConn); each verb writes exactly one response
// line, matching the teacher's ipc.go protocol.
func (s *server) dispatch(c net.Conn, verb, arg string) {
	fields := strings.Fields(arg)

	switch verb {
	case "PLAY":
		if len(fields) < 9 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		path := fields[1]
		name := fields[2]
		fadeMS := argInt(fields[3], 0)
		tight := fields[4] == "1"
		paused := fields[5] == "1"
		start := argFloat(fields[6], 0)
		end := argFloat(fields[7], 0)
		relVol := float32(argFloat(fields[8], 1))
		s.playOrQueue(c, true, ch, path, name, fadeMS, tight, paused, start, end, relVol)

	case "QUEUE":
		if len(fields) < 8 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		path := fields[1]
		name := fields[2]
		fadeMS := argInt(fields[3], 0)
		tight := fields[4] == "1"
		start := argFloat(fields[5], 0)
		end := argFloat(fields[6], 0)
		relVol := float32(argFloat(fields[7], 1))
		s.playOrQueue(c, false, ch, path, name, fadeMS, tight, false, start, end, relVol)

	case "STOP":
		ch := argInt(arg, -1)
		s.eng.Stop(ch)
		c.Write([]byte("OK\n"))

	case "DEQUEUE":
		if len(fields) < 1 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		evenTight := len(fields) > 1 && fields[1] == "1"
		s.eng.Dequeue(ch, evenTight)
		c.Write([]byte("OK\n"))

	case "FADEOUT":
		if len(fields) < 2 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		ms := argInt(fields[1], 0)
		s.eng.Fadeout(ch, ms)
		c.Write([]byte("OK\n"))

	case "PAUSE":
		if len(fields) < 2 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		s.eng.Pause(ch, fields[1] == "1")
		c.Write([]byte("OK\n"))

	case "UNPAUSE-ALL":
		go s.eng.UnpauseAllAtStart()
		c.Write([]byte("OK\n"))

	case "VOLUME":
		if len(fields) < 2 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		if strings.EqualFold(fields[1], "GET") {
			fmt.Fprintf(c, "%.4f\n", s.eng.GetVolume(ch))
			return
		}
		v := float32(argFloat(fields[1], 1))
		s.eng.SetVolume(ch, v)
		c.Write([]byte("OK\n"))

	case "PAN":
		if len(fields) < 2 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		pan := float32(argFloat(fields[1], 0))
		delay := 0.0
		if len(fields) > 2 {
			delay = argFloat(fields[2], 0)
		}
		s.eng.SetPan(ch, pan, delay)
		c.Write([]byte("OK\n"))

	case "SECVOL":
		if len(fields) < 2 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		v := float32(argFloat(fields[1], 1))
		delay := 0.0
		if len(fields) > 2 {
			delay = argFloat(fields[2], 0)
		}
		s.eng.SetSecondaryVolume(ch, v, delay)
		c.Write([]byte("OK\n"))

	case "ENDEVENT":
		if len(fields) < 2 {
			c.Write([]byte("ERR ARG\n"))
			return
		}
		ch := argInt(fields[0], -1)
		tag, _ := strconv.Atoi(fields[1])
		s.eng.SetEndEvent(ch, int32(tag))
		c.Write([]byte("OK\n"))

	case "QDEPTH":
		ch := argInt(arg, -1)
		fmt.Fprintf(c, "%d\n", s.eng.QueueDepth(ch))

	case "NAME":
		ch := argInt(arg, -1)
		if name, ok := s.eng.PlayingName(ch); ok {
			fmt.Fprintf(c, "%s\n", name)
		} else {
			c.Write([]byte("NONE\n"))
		}

	case "POS":
		ch := argInt(arg, -1)
		fmt.Fprintf(c, "%d\n", s.eng.GetPos(ch))

	case "DURATION":
		ch := argInt(arg, -1)
		fmt.Fprintf(c, "%.3f\n", s.eng.GetDuration(ch))

	default:
		c.Write([]byte("ERR UNKNOWN\n"))
	}
}

// playOrQueue opens the decoder for path off the audio lock (spec.md §5
// allows this explicitly) and hands the result to the engine.
func (s *server) playOrQueue(c net.Conn, isPlay bool, ch int, path, name string, fadeMS int, tight, paused bool, start, end float64, relVol float32) {
	open := func() (mixer.Source, error) {
		return openSource(path, s.eng.SampleRate())
	}

	var err error
	if isPlay {
		err = s.eng.Play(ch, open, name, fadeMS, tight, paused, start, end, relVol)
	} else {
		err = s.eng.Queue(ch, open, name, fadeMS, tight, start, end, relVol)
	}
	if err != nil {
		c.Write([]byte("ERR SOUND\n"))
		return
	}
	c.Write([]byte("OK\n"))
}
