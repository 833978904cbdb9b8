// FILE: internal/engine/enginetest/fake.go

// Package enginetest turns a test binary into a scripted UCI engine, so
// tests can drive real processes without an external engine installed.
//
//	func TestMain(m *testing.M) {
//		enginetest.MaybeServe()
//		os.Exit(m.Run())
//	}
package enginetest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"enginearena/internal/board"
	"enginearena/internal/engine"
)

const (
	EnvMode   = "GO_WANT_HELPER_ENGINE"
	EnvScript = "GO_HELPER_ENGINE_SCRIPT"
)

// Engine behaviours
const (
	ModePlay       = "play"        // scripted moves, then the first legal move
	ModeSilent     = "silent"      // never answers anything
	ModeExit       = "exit"        // exits before the handshake
	ModeCrash      = "crash"       // exits when asked to search
	ModeHang       = "hang"        // answers the handshake, never answers go
	ModeNoMove     = "nomove"      // answers go with bestmove (none)
	ModeIllegal    = "illegal"     // answers go with an illegal move
	ModeShortPromo = "short-promo" // drops the promotion letter from its moves
	ModeMate       = "mate"        // like play, reporting a mate score
	ModeLate       = "late"        // stalls on the first go, answers it only after stop
)

// LateReply is how long a late engine takes to answer stop
const LateReply = 150 * time.Millisecond

// MaybeServe runs the fake engine and exits when the helper environment
// variable is set; otherwise it returns immediately.
func MaybeServe() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}
	Serve(mode, strings.Fields(os.Getenv(EnvScript)), os.Stdin, os.Stdout)
	os.Exit(0)
}

// Config returns an engine configuration that re-executes the current
// binary as a fake engine with short timeouts.
func Config(mode string, script ...string) engine.Config {
	return engine.Config{
		Path: os.Args[0],
		Env: []string{
			EnvMode + "=" + mode,
			EnvScript + "=" + strings.Join(script, " "),
		},
		HandshakeTimeout: 3 * time.Second,
		ReadyTimeout:     3 * time.Second,
		MoveGrace:        2 * time.Second,
		EvalGrace:        time.Second,
		StopGrace:        500 * time.Millisecond,
	}
}

func Serve(mode string, script []string, in io.Reader, out io.Writer) {
	if mode == ModeExit {
		return
	}

	w := bufio.NewWriter(out)
	say := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
		w.Flush()
	}

	var (
		startFEN string
		moves    []string
		stalled  bool
		lateDone bool
	)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" {
			return
		}
		if mode == ModeSilent {
			continue
		}

		switch {
		case line == "uci":
			say("id name Helper %s", mode)
			say("id author enginearena")
			say("option name Hash type spin default 16 min 1 max 1024")
			say("uciok")
		case line == "isready":
			say("readyok")
		case strings.HasPrefix(line, "position"):
			startFEN, moves = parsePosition(line)
		case line == "stop":
			if stalled {
				stalled = false
				time.Sleep(LateReply)
				say("bestmove %s", choose(startFEN, moves, script))
			}
		case strings.HasPrefix(line, "go"):
			switch mode {
			case ModeCrash:
				os.Exit(3)
			case ModeHang:
				continue
			case ModeNoMove:
				say("bestmove (none)")
				continue
			case ModeIllegal:
				say("bestmove e2e5")
				continue
			case ModeLate:
				if !lateDone {
					lateDone, stalled = true, true
					say("info depth 1 score cp 35 nodes 20 time 10")
					continue
				}
			}

			mv := choose(startFEN, moves, script)
			say("info depth x score cp oops")
			say("info string thinking hard")
			if mode == ModeMate {
				say("info depth 3 seldepth 4 score mate 2 nodes 120 nps 12000 time 10 pv %s", mv)
			} else {
				say("info depth 1 seldepth 1 score cp 35 nodes 20 nps 2000 time 10 pv %s", mv)
			}
			if mode == ModeShortPromo && len(mv) == 5 {
				mv = mv[:4]
			}
			say("bestmove %s", mv)
		}
	}
}

func parsePosition(line string) (string, []string) {
	var fen string
	rest := strings.TrimPrefix(line, "position ")
	if strings.HasPrefix(rest, "fen ") {
		rest = strings.TrimPrefix(rest, "fen ")
		fen, rest, _ = strings.Cut(rest, " moves")
		fen = strings.TrimSpace(fen)
	} else {
		_, rest, _ = strings.Cut(rest, " moves")
	}
	return fen, strings.Fields(rest)
}

// choose plays the scripted move for this turn when it is legal, otherwise
// the first legal move.
func choose(startFEN string, moves, script []string) string {
	b := board.New()
	if startFEN != "" {
		var err error
		if b, err = board.FromFEN(startFEN); err != nil {
			return "(none)"
		}
	}
	for _, mv := range moves {
		if _, err := b.ApplyToken(mv); err != nil {
			return "(none)"
		}
	}

	legal := b.LegalMoves()
	if len(legal) == 0 {
		return "(none)"
	}

	if turn := len(moves) / 2; turn < len(script) {
		for _, m := range legal {
			if m.String() == script[turn] {
				return script[turn]
			}
		}
	}
	return legal[0].String()
}
