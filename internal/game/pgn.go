package game

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"enginearena/internal/board"
	"enginearena/internal/core"
)

const pgnLineWidth = 80

// PGN renders the record as a PGN game
func (r *Record) PGN() string {
	var sb strings.Builder

	date := "????.??.??"
	if !r.StartedAt.IsZero() {
		date = r.StartedAt.Format("2006.01.02")
	}
	event := r.Event
	if event == "" {
		event = "Tournament"
	}
	site := r.Site
	if site == "" {
		site = "?"
	}
	round := "?"
	if r.Round > 0 {
		round = strconv.Itoa(r.Round)
	}

	tag := func(name, value string) {
		fmt.Fprintf(&sb, "[%s \"%s\"]\n", name, escapeTag(value))
	}
	tag("Event", event)
	tag("Site", site)
	tag("Date", date)
	tag("Round", round)
	tag("White", r.White)
	tag("Black", r.Black)
	tag("Result", r.Result.String())
	if r.ECO != "" {
		tag("ECO", r.ECO)
	}
	if r.Opening != "" {
		tag("Opening", r.Opening)
	}
	if fen := r.InitialFEN(); fen != board.StartingFEN {
		tag("SetUp", "1")
		tag("FEN", fen)
	}
	if r.Termination != "" {
		tag("Termination", r.Termination)
	}
	sb.WriteString("\n")

	sb.WriteString(wrap(movetext(r.InitialFEN(), r.SANs(), r.Result), pgnLineWidth))
	sb.WriteString("\n")
	return sb.String()
}

func escapeTag(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// movetext numbers the SAN moves from the starting position's move number
// and side to move
func movetext(startFEN string, sans []string, result core.Result) string {
	number, blackFirst := 1, false
	if pos, err := board.ParseFEN(startFEN); err == nil {
		number = pos.FullmoveNumber()
		blackFirst = pos.Turn() == core.ColorBlack
	}

	var tokens []string
	for i, san := range sans {
		white := (i%2 == 0) != blackFirst
		switch {
		case i == 0 && blackFirst:
			tokens = append(tokens, fmt.Sprintf("%d...", number))
		case white:
			tokens = append(tokens, fmt.Sprintf("%d.", number))
		}
		tokens = append(tokens, san)
		if !white {
			number++
		}
	}
	tokens = append(tokens, result.String())
	return strings.Join(tokens, " ")
}

func wrap(text string, width int) string {
	var sb strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		if lineLen > 0 && lineLen+1+len(word) > width {
			sb.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			sb.WriteString(" ")
			lineLen++
		}
		sb.WriteString(word)
		lineLen += len(word)
	}
	return sb.String()
}

var (
	tagPattern      = regexp.MustCompile(`(?m)^\[(\w+)\s+"((?:[^"\\]|\\.)*)"\]\s*$`)
	commentPattern  = regexp.MustCompile(`\{[^}]*\}|;[^\n]*`)
	moveNumberToken = regexp.MustCompile(`^\d+\.+`)
)

// Tags returns the tag pairs of a PGN game
func Tags(pgn string) map[string]string {
	tags := make(map[string]string)
	for _, m := range tagPattern.FindAllStringSubmatch(pgn, -1) {
		v := strings.ReplaceAll(m[2], `\"`, `"`)
		tags[m[1]] = strings.ReplaceAll(v, `\\`, `\`)
	}
	return tags
}

// Replay plays a PGN game's movetext through a board and returns the move
// tokens and SANs. It stops with an error at the first move that does not
// resolve, returning the moves replayed so far.
func Replay(pgn string) (tokens, sans []string, err error) {
	start := board.StartingFEN
	if fen, ok := Tags(pgn)["FEN"]; ok {
		start = fen
	}
	b, err := board.FromFEN(start)
	if err != nil {
		return nil, nil, err
	}

	body := tagPattern.ReplaceAllString(pgn, "")
	body = commentPattern.ReplaceAllString(body, " ")

	for _, tok := range strings.Fields(body) {
		tok = moveNumberToken.ReplaceAllString(tok, "")
		if tok == "" {
			continue
		}
		if _, err := core.ParseResult(tok); err == nil {
			break
		}
		if _, err := b.ApplySAN(tok); err != nil {
			return b.MoveTokens(), b.SANs(), fmt.Errorf("replay %q: %w", tok, err)
		}
	}
	return b.MoveTokens(), b.SANs(), nil
}
