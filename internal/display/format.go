// FILE: internal/display/format.go
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"enginearena/internal/runner"
	"enginearena/internal/tournament"

	"github.com/mattn/go-runewidth"
)

// Printer writes human readable output; it is not safe for concurrent use
type Printer struct {
	w     io.Writer
	color bool
	theme Theme
	// Moves prints every board update, not only finished games
	Moves bool
}

func New(w io.Writer, color bool) *Printer {
	theme := ThemeOff
	if color {
		theme = ThemeBrown
	}
	return &Printer{w: w, color: color, theme: theme}
}

func (p *Printer) paint(color, text string) string {
	if !p.color {
		return text
	}
	return color + text + Reset
}

// Line prints one message
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.paint(Red, "Error: "+err.Error()))
}

// JSON prints v indented
func (p *Printer) JSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		p.Error(fmt.Errorf("formatting JSON: %w", err))
		return
	}
	fmt.Fprintln(p.w, string(data))
}

// Standings prints the table; names are padded by display width so wide
// runes keep the columns aligned
func (p *Printer) Standings(rows []tournament.Standing) {
	width := runewidth.StringWidth("Engine")
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.Name))
	}

	header := fmt.Sprintf("%4s  %s  %5s  %5s  %8s  %8s",
		"#", runewidth.FillRight("Engine", width), "Score", "W/D/L", "Buchholz", "S-B")
	fmt.Fprintln(p.w, p.paint(Cyan, header))
	fmt.Fprintln(p.w, strings.Repeat("-", runewidth.StringWidth(header)))

	for _, r := range rows {
		name := runewidth.FillRight(r.Name, width)
		if r.Eliminated {
			name = p.paint(Red, name)
		} else if r.Rank == 1 {
			name = p.paint(Green, name)
		}
		fmt.Fprintf(p.w, "%4d  %s  %5s  %5s  %8s  %8s\n",
			r.Rank, name, score(r.Score),
			fmt.Sprintf("%d/%d/%d", r.Wins, r.Draws, r.Losses),
			score(r.Buchholz), score(r.SonnebornBerger))
	}
}

// Event prints one runner event. Board updates are shown only with Moves.
func (p *Printer) Event(ev runner.Event) {
	switch ev.Kind {
	case runner.GameStarted:
		fmt.Fprintln(p.w, p.paint(Cyan, ev.Status))
	case runner.BoardUpdated:
		if !p.Moves {
			return
		}
		line := fmt.Sprintf("  %3d. %-7s", (ev.Ply+1)/2, ev.SAN)
		if ev.Ply%2 == 0 {
			line = fmt.Sprintf("  %3d. ... %-7s", ev.Ply/2, ev.SAN)
		}
		if ev.Eval != nil {
			line += fmt.Sprintf(" [%+.2f]", float64(*ev.Eval)/100)
		}
		if ev.Opening != "" {
			line += "  " + p.paint(Magenta, ev.Opening)
		}
		fmt.Fprintln(p.w, line)
	case runner.GameEnded:
		fmt.Fprintf(p.w, "%s %s (%s)\n",
			p.paint(Yellow, ev.White+" - "+ev.Black+":"), p.paint(Green, ev.Result.String()), ev.Reason)
	case runner.RoundEnded:
		fmt.Fprintln(p.w, p.paint(Yellow, ev.Status))
		if ev.Snapshot != nil {
			p.Standings(ev.Snapshot.Standings)
		}
	case runner.TournamentEnded:
		fmt.Fprintln(p.w, p.paint(Green, ev.Status))
		if ev.Snapshot != nil {
			p.Standings(ev.Snapshot.Standings)
			if ev.Snapshot.Winner != "" {
				fmt.Fprintf(p.w, "Winner: %s\n", p.paint(Green, ev.Snapshot.Winner))
			}
		}
	case runner.StatusChanged:
		fmt.Fprintln(p.w, p.paint(White, ev.Status))
	}
}

// Games lists a snapshot's schedule
func (p *Printer) Games(games []tournament.GameSummary) {
	for _, g := range games {
		result := g.Result
		if g.Status != "done" {
			result = g.Status
		}
		fmt.Fprintf(p.w, "R%-3d %s vs %s  %s", g.Round, g.White, g.Black, result)
		if g.Reason != "" {
			fmt.Fprintf(p.w, " (%s)", g.Reason)
		}
		fmt.Fprintln(p.w)
	}
}

func score(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
