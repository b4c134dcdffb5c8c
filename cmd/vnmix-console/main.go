// Command vnmix-console is an interactive readline REPL that dials a
// vnmix-server control socket and issues the same line verbs, grounded on
// the teacher's chzyer/readline usage in cmd/hdx-volmaker and
// cmd/hdx-struct.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"strings"

	"github.com/chzyer/readline"
)

const (
	versionMajor = 1
	versionMinor = 0
	appName      = "vnmix-console"
)

func main() {
	socketPath := flag.String("socket", "/tmp/vnmix-server.sock", "vnmix-server control socket")
	token := flag.String("token", "", "AUTH token, if the server requires one")
	flag.Parse()

	conn, err := net.Dial("unix", *socketPath)
	if err != nil {
		fmt.Printf("[FAIL] could not connect to %s: %v\n", *socketPath, err)
		return
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)

	if *token != "" {
		fmt.Fprintf(conn, "AUTH %s\n", *token)
		if sc.Scan() {
			fmt.Println(sc.Text())
		}
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: "vnmix> "})
	if err != nil {
		fmt.Printf("[FAIL] readline: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Printf("%s version %d.%d\n", appName, versionMajor, versionMinor)
	fmt.Println("type HELP for the verb list, or Ctrl-D to quit")

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "HELP") {
			printHelp()
			continue
		}
		if strings.EqualFold(line, "QUIT") || strings.EqualFold(line, "EXIT") {
			return
		}

		if _, err := fmt.Fprintln(conn, line); err != nil {
			fmt.Printf("[FAIL] write: %v\n", err)
			return
		}
		if !sc.Scan() {
			fmt.Println("[FAIL] server closed the connection")
			return
		}
		fmt.Println(sc.Text())
	}
}

func printHelp() {
	fmt.Println(`verbs:
  ABOUT | PING | WHOAMI | ERROR | METER
  AUTH <token>
  PLAY <ch> <path> <name> <fadeMs> <tight 0|1> <paused 0|1> <startSec> <endSec> <relVol>
  QUEUE <ch> <path> <name> <fadeMs> <tight 0|1> <startSec> <endSec> <relVol>
  STOP <ch> | DEQUEUE <ch> [evenTight] | FADEOUT <ch> <ms> | PAUSE <ch> <0|1>
  UNPAUSE-ALL
  VOLUME <ch> <GET|value> | PAN <ch> <value> [delaySec] | SECVOL <ch> <value> [delaySec]
  ENDEVENT <ch> <tag> | QDEPTH <ch> | NAME <ch> | POS <ch> | DURATION <ch>`)
}
