// FILE: internal/engine/engine.go
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultReadyTimeout     = 10 * time.Second
	DefaultMoveGrace        = 10 * time.Second
	DefaultEvalGrace        = 5 * time.Second
	DefaultStopGrace        = 1 * time.Second

	lineBuffer = 4096
)

var (
	ErrStartup     = errors.New("engine failed to start")
	ErrTimeout     = errors.New("engine timed out")
	ErrProcessDead = errors.New("engine process exited")
	ErrNotReady    = errors.New("engine not ready")
)

// no-move sentinels seen on bestmove lines
var noMove = map[string]bool{"(none)": true, "null": true, "0000": true, "none": true}

type State int32

const (
	StateUnstarted State = iota
	StateReady
	StateTerminated
	StateDead
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	case StateDead:
		return "dead"
	default:
		return "unstarted"
	}
}

// Config describes how to launch and talk to one engine process. Zero
// durations fall back to the package defaults.
type Config struct {
	Path string
	Args []string
	Env  []string // appended to the parent environment

	HandshakeTimeout time.Duration
	ReadyTimeout     time.Duration
	MoveGrace        time.Duration
	EvalGrace        time.Duration
	StopGrace        time.Duration

	Logger zerolog.Logger
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.MoveGrace <= 0 {
		c.MoveGrace = DefaultMoveGrace
	}
	if c.EvalGrace <= 0 {
		c.EvalGrace = DefaultEvalGrace
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
}

// SearchRequest asks for a move or evaluation of the position reached from
// StartFEN (the standard start when empty) after Moves.
type SearchRequest struct {
	StartFEN string
	Moves    []string
	MoveTime time.Duration
	OnInfo   func(Info)
}

// Session owns one UCI engine process. A single background reader feeds
// output lines to the one goroutine issuing requests.
type Session struct {
	cfg Config
	log zerolog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	exited chan struct{}
	quit   chan struct{}
	mu     sync.Mutex

	state    atomic.Int32
	stopOnce sync.Once

	infoMu   sync.Mutex
	lastInfo Info
	name     string

	// a search was abandoned with stop and its bestmove is still owed
	stopPending bool
}

func New(cfg Config) *Session {
	cfg.applyDefaults()
	return &Session{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("engine", cfg.Path).Logger(),
		lines:  make(chan string, lineBuffer),
		exited: make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

// Start launches the process and completes the uci/isready handshake
func (s *Session) Start(ctx context.Context) error {
	if State(s.state.Load()) != StateUnstarted {
		return fmt.Errorf("%w: session already started", ErrStartup)
	}

	cmd := exec.Command(s.cfg.Path, s.cfg.Args...)
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStartup, s.cfg.Path, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStartup, s.cfg.Path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStartup, s.cfg.Path, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.state.Store(int32(StateReady))
	go s.readLoop(stdout)

	s.send("uci")
	if err := s.waitFor(ctx, "uciok", s.cfg.HandshakeTimeout); err != nil {
		s.Stop()
		return fmt.Errorf("%w: %s: waiting for uciok: %v", ErrStartup, s.cfg.Path, err)
	}

	s.send("isready")
	if err := s.waitFor(ctx, "readyok", s.cfg.ReadyTimeout); err != nil {
		s.Stop()
		return fmt.Errorf("%w: %s: waiting for readyok: %v", ErrStartup, s.cfg.Path, err)
	}

	s.log.Debug().Str("id", s.Name()).Msg("engine ready")
	return nil
}

func (s *Session) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.quit:
			// nobody reads after stop, keep consuming until EOF
		}
	}
	close(s.lines)

	if err := s.cmd.Wait(); err != nil {
		s.log.Debug().Err(err).Msg("engine process exited")
	}
	close(s.exited)
}

// send writes one command line. Write errors are swallowed: a dying process
// is detected by the next read or liveness check.
func (s *Session) send(command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return
	}
	if _, err := fmt.Fprintln(s.stdin, command); err != nil {
		s.log.Debug().Err(err).Str("command", command).Msg("engine write failed")
	}
}

func (s *Session) waitFor(ctx context.Context, token string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return ErrProcessDead
			}
			if strings.HasPrefix(line, "id name ") {
				s.infoMu.Lock()
				s.name = strings.TrimPrefix(line, "id name ")
				s.infoMu.Unlock()
				continue
			}
			if line == token || strings.HasPrefix(line, token) {
				return nil
			}
		case <-timer.C:
			return ErrTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drain discards output left over from a previous request
func (s *Session) drain() {
	for {
		select {
		case _, ok := <-s.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// RequestMove asks for the best move. An empty move with a nil error means
// the engine reported no move.
func (s *Session) RequestMove(ctx context.Context, req SearchRequest) (string, error) {
	best, _, _, err := s.search(ctx, req, s.cfg.MoveGrace)
	return best, err
}

// RequestEvaluation returns the last score seen before bestmove, from
// White's point of view. found is false when no score line arrived. On
// ErrTimeout the last score seen so far is still returned with found set.
func (s *Session) RequestEvaluation(ctx context.Context, req SearchRequest) (score Score, found bool, err error) {
	_, score, found, err = s.search(ctx, req, s.cfg.EvalGrace)
	if !found || (err != nil && !errors.Is(err, ErrTimeout)) {
		return Score{}, false, err
	}
	if blackToMove(req) {
		score = score.Negate()
	}
	return score, true, err
}

func (s *Session) search(ctx context.Context, req SearchRequest, grace time.Duration) (string, Score, bool, error) {
	if State(s.state.Load()) != StateReady {
		return "", Score{}, false, ErrNotReady
	}
	if !s.Alive() {
		return "", Score{}, false, ErrProcessDead
	}

	if s.stopPending {
		s.awaitStopped(ctx)
	}
	s.drain()
	s.send(positionCommand(req.StartFEN, req.Moves))
	s.send(fmt.Sprintf("go movetime %d", req.MoveTime.Milliseconds()))

	deadline := time.NewTimer(req.MoveTime + grace)
	defer deadline.Stop()

	var (
		score    Score
		hasScore bool
	)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return "", score, hasScore, ErrProcessDead
			}

			if strings.HasPrefix(line, "info ") {
				info, ok := ParseInfo(line)
				if !ok {
					continue
				}
				s.infoMu.Lock()
				s.lastInfo = info
				s.infoMu.Unlock()
				if info.HasScore {
					score, hasScore = info.Score, true
				}
				if req.OnInfo != nil {
					req.OnInfo(info)
				}
				continue
			}

			if line == "bestmove" || strings.HasPrefix(line, "bestmove ") {
				fields := strings.Fields(line)
				if len(fields) < 2 || noMove[fields[1]] {
					return "", score, hasScore, nil
				}
				return fields[1], score, hasScore, nil
			}

		case <-deadline.C:
			s.send("stop")
			s.stopPending = true
			return "", score, hasScore, fmt.Errorf("%w: no bestmove within %s", ErrTimeout, req.MoveTime+grace)

		case <-ctx.Done():
			s.send("stop")
			s.stopPending = true
			return "", score, hasScore, ctx.Err()
		}
	}
}

// awaitStopped consumes the late bestmove of an abandoned search so it is
// not taken as the answer to the next one. Gives up after StopGrace.
func (s *Session) awaitStopped(ctx context.Context) {
	s.stopPending = false

	timer := time.NewTimer(s.cfg.StopGrace)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			if line == "bestmove" || strings.HasPrefix(line, "bestmove ") {
				s.log.Debug().Str("line", line).Msg("discarded late bestmove")
				return
			}
		case <-timer.C:
			s.log.Warn().Msg("no bestmove after stop")
			return
		case <-ctx.Done():
			return
		}
	}
}

func positionCommand(startFEN string, moves []string) string {
	cmd := "position startpos"
	if startFEN != "" {
		cmd = "position fen " + startFEN
	}
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return cmd
}

func blackToMove(req SearchRequest) bool {
	blackStarts := false
	if fields := strings.Fields(req.StartFEN); len(fields) > 1 {
		blackStarts = fields[1] == "b"
	}
	return blackStarts != (len(req.Moves)%2 == 1)
}

// Alive reports whether the process has been started and not yet exited
func (s *Session) Alive() bool {
	if State(s.state.Load()) == StateUnstarted || s.cmd == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

func (s *Session) State() State {
	st := State(s.state.Load())
	if st == StateReady && !s.Alive() {
		return StateDead
	}
	return st
}

// Name returns the engine's self-reported name, if any
func (s *Session) Name() string {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.name
}

// LastInfo returns the most recent parsed info line
func (s *Session) LastInfo() Info {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.lastInfo
}

// Stop asks the engine to quit and kills it if it does not exit within the
// grace period. Safe to call more than once and on exited processes.
func (s *Session) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.cmd == nil {
			s.state.Store(int32(StateTerminated))
			return
		}

		s.send("stop")
		s.send("quit")
		close(s.quit)

		select {
		case <-s.exited:
		case <-time.After(s.cfg.StopGrace):
			s.log.Warn().Msg("engine ignored quit, killing")
			if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = fmt.Errorf("failed to kill engine: %w", kerr)
			}
			select {
			case <-s.exited:
			case <-time.After(2 * time.Second):
			}
		}

		s.mu.Lock()
		s.stdin.Close()
		s.stdin = nil
		s.mu.Unlock()

		s.state.Store(int32(StateTerminated))
	})
	return err
}
