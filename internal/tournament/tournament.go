// FILE: internal/tournament/tournament.go

// Package tournament implements the tournament controller: roster,
// round generation per format, result recording, tie-breaks and standings.
// A Tournament is not safe for concurrent use; the match runner owns it while
// a run is in progress.
package tournament

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"enginearena/internal/core"
	"enginearena/internal/pairing"

	"github.com/google/uuid"
)

var (
	ErrAlreadyStarted  = errors.New("tournament already started")
	ErrNotStarted      = errors.New("tournament not started")
	ErrFinished        = errors.New("tournament finished")
	ErrResultFinal     = errors.New("game result already recorded")
	ErrDuplicatePlayer = errors.New("duplicate player name")
	ErrTooFewPlayers   = errors.New("at least two players required")
	ErrPlayerHasGames  = errors.New("player has already played")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrUnknownFormat   = errors.New("unknown tournament format")
)

type Format string

const (
	FormatSwiss      Format = "swiss"
	FormatRoundRobin Format = "round-robin"
	FormatKnockout   Format = "knockout"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swiss":
		return FormatSwiss, nil
	case "round-robin", "roundrobin", "round robin", "rr":
		return FormatRoundRobin, nil
	case "knockout", "ko":
		return FormatKnockout, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// State is derived from the controller fields, never stored
type State int

const (
	StateCreated State = iota
	StateRoundInProgress
	StateRoundComplete
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRoundInProgress:
		return "round_in_progress"
	case StateRoundComplete:
		return "round_complete"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Player is a roster entry and its running record
type Player struct {
	Name       string
	EnginePath string
	EngineArgs []string
	Seed       int

	Score           float64
	Wins            int
	Draws           int
	Losses          int
	Buchholz        float64
	SonnebornBerger float64
	Colors          []core.Color
	Opponents       []string
}

func NewPlayer(name, enginePath string, args ...string) *Player {
	return &Player{
		Name:       core.NormalizeName(name),
		EnginePath: enginePath,
		EngineArgs: args,
	}
}

func (p *Player) GamesPlayed() int {
	return p.Wins + p.Draws + p.Losses
}

// record adds one scored result; color is zero for a bye
func (p *Player) record(score float64, opponent string, color core.Color) {
	p.Score += score
	switch score {
	case 1:
		p.Wins++
	case 0.5:
		p.Draws++
	default:
		p.Losses++
	}
	if color != 0 {
		p.Colors = append(p.Colors, color)
	}
	p.Opponents = append(p.Opponents, opponent)
}

func (p *Player) entrant() pairing.Entrant {
	return pairing.Entrant{
		Name:      p.Name,
		Score:     p.Score,
		Wins:      p.Wins,
		Colors:    p.Colors,
		Opponents: p.Opponents,
	}
}

type Config struct {
	ID     string
	Name   string
	Format Format
	// Rounds caps Swiss events; zero picks ceil(log2(players)). Round-robin
	// and knockout derive their own length.
	Rounds           int
	DoubleRoundRobin bool
	// Rand drives colour coin flips, knockout shuffles and tie breaks
	Rand *rand.Rand
}

type Tournament struct {
	ID        string
	Name      string
	Format    Format
	Double    bool
	CreatedAt time.Time

	rounds     int
	players    []*Player
	byName     map[string]*Player
	round      int
	roundGames []*Game
	games      []*Game
	played     pairing.Played
	started    bool
	finished   bool
	winner     *Player
	status     string
	rng        *rand.Rand

	lastPairing pairing.SwissOutcome
	schedule    [][]pairing.Pair
	rrRoster    []*Player
	koPending   []*Player
	eliminated  []*Player
}

func New(cfg Config, players ...*Player) (*Tournament, error) {
	switch cfg.Format {
	case FormatSwiss, FormatRoundRobin, FormatKnockout:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	t := &Tournament{
		ID:        id,
		Name:      cfg.Name,
		Format:    cfg.Format,
		Double:    cfg.DoubleRoundRobin,
		CreatedAt: time.Now(),
		rounds:    cfg.Rounds,
		byName:    make(map[string]*Player),
		played:    pairing.Played{},
		status:    "Ready",
		rng:       rng,
	}
	for _, p := range players {
		if err := t.AddPlayer(p); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddPlayer joins a player to the roster. Swiss players enter the next
// pairing and knockout players the next round; a round-robin schedule is
// fixed once started.
func (t *Tournament) AddPlayer(p *Player) error {
	if t.finished {
		return ErrFinished
	}
	if t.started && t.Format == FormatRoundRobin {
		return ErrAlreadyStarted
	}

	p.Name = core.NormalizeName(p.Name)
	if p.Name == "" || p.Name == pairing.Bye {
		return fmt.Errorf("invalid player name %q", p.Name)
	}
	for _, existing := range t.players {
		if strings.EqualFold(existing.Name, p.Name) {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.Name)
		}
	}

	p.Seed = len(t.players) + 1
	t.players = append(t.players, p)
	t.byName[p.Name] = p
	if t.started && t.Format == FormatKnockout {
		t.koPending = append(t.koPending, p)
	}
	return nil
}

// RemovePlayer drops a player who has no games, scheduled or played
func (t *Tournament) RemovePlayer(name string) error {
	if t.finished {
		return ErrFinished
	}
	if t.started && t.Format == FormatRoundRobin {
		return ErrAlreadyStarted
	}

	p, ok := t.byName[core.NormalizeName(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	if p.GamesPlayed() > 0 {
		return fmt.Errorf("%w: %s", ErrPlayerHasGames, p.Name)
	}
	for _, g := range t.roundGames {
		if g.White == p || g.Black == p {
			return fmt.Errorf("%w: %s", ErrPlayerHasGames, p.Name)
		}
	}

	t.players = removePlayer(t.players, p)
	t.koPending = removePlayer(t.koPending, p)
	delete(t.byName, p.Name)
	return nil
}

func removePlayer(list []*Player, p *Player) []*Player {
	out := list[:0]
	for _, q := range list {
		if q != p {
			out = append(out, q)
		}
	}
	return out
}

func (t *Tournament) Player(name string) (*Player, bool) {
	p, ok := t.byName[core.NormalizeName(name)]
	return p, ok
}

func (t *Tournament) Players() []*Player {
	return append([]*Player(nil), t.players...)
}

// Rounds is the planned number of rounds; for knockout it is the bracket depth
func (t *Tournament) Rounds() int {
	switch t.Format {
	case FormatRoundRobin:
		if t.schedule != nil {
			return len(t.schedule)
		}
		n := len(t.players)
		if n%2 == 1 {
			n++
		}
		if t.Double {
			return 2 * (n - 1)
		}
		return n - 1
	case FormatKnockout:
		return log2Ceil(len(t.players))
	}
	if t.rounds > 0 {
		return t.rounds
	}
	return max(1, log2Ceil(len(t.players)))
}

func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

func (t *Tournament) Round() int { return t.round }
func (t *Tournament) Started() bool { return t.started }
func (t *Tournament) Finished() bool { return t.finished }
func (t *Tournament) Status() string { return t.status }
func (t *Tournament) Winner() *Player { return t.winner }
func (t *Tournament) RoundGames() []*Game { return append([]*Game(nil), t.roundGames...) }
func (t *Tournament) Games() []*Game { return append([]*Game(nil), t.games...) }

// LastPairing reports how the most recent Swiss round was paired
func (t *Tournament) LastPairing() pairing.SwissOutcome { return t.lastPairing }

func (t *Tournament) State() State {
	switch {
	case t.finished:
		return StateFinished
	case !t.started:
		return StateCreated
	case t.RoundComplete():
		return StateRoundComplete
	}
	return StateRoundInProgress
}

// HasPlayed reports whether two players already met
func (t *Tournament) HasPlayed(a, b string) bool {
	return t.played.Has(core.NormalizeName(a), core.NormalizeName(b))
}

func (t *Tournament) CompletedGames() []*Game {
	var out []*Game
	for _, g := range t.games {
		if g.Status == GameDone {
			out = append(out, g)
		}
	}
	return out
}
