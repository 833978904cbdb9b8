// FILE: internal/elo/elo.go
package elo

import (
	"math"
	"sort"

	"enginearena/internal/core"
	"enginearena/internal/storage"
)

const (
	KFactor = 32
	Initial = 1500
)

// Game is one rated result; games are applied in the order given
type Game struct {
	White  string
	Black  string
	Result core.Result
}

type Rating struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Games  int    `json:"games"`
	Wins   int    `json:"wins"`
	Draws  int    `json:"draws"`
	Losses int    `json:"losses"`
	Peak   int    `json:"peak"`
}

// Point is an engine's rating after its n-th rated game
type Point struct {
	Game   int `json:"game"`
	Rating int `json:"rating"`
}

// Expected returns the expected score of a player rated ra against rb
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

type calculator struct {
	ratings map[string]float64
}

// apply updates both players and returns the normalized names, ok is false
// for an undecided result
func (c *calculator) apply(g Game) (w, b string, ok bool) {
	sw, sb, ok := g.Result.Scores()
	if !ok {
		return "", "", false
	}
	w, b = core.NormalizeName(g.White), core.NormalizeName(g.Black)
	rw, rb := c.get(w), c.get(b)
	ew := Expected(rw, rb)

	c.ratings[w] = rw + KFactor*(sw-ew)
	c.ratings[b] = rb + KFactor*(sb-(1-ew))
	return w, b, true
}

func (c *calculator) get(name string) float64 {
	if r, ok := c.ratings[name]; ok {
		return r
	}
	return Initial
}

// Compute rates every engine over the full history and returns them best
// first
func Compute(games []Game) []Rating {
	c := &calculator{ratings: make(map[string]float64)}
	stats := make(map[string]*Rating)

	stat := func(name string) *Rating {
		s, ok := stats[name]
		if !ok {
			s = &Rating{Name: name, Peak: Initial}
			stats[name] = s
		}
		return s
	}

	for _, g := range games {
		w, b, ok := c.apply(g)
		if !ok {
			continue
		}
		ws, bs := stat(w), stat(b)
		ws.Games++
		bs.Games++
		switch g.Result {
		case core.ResultWhiteWins:
			ws.Wins++
			bs.Losses++
		case core.ResultBlackWins:
			ws.Losses++
			bs.Wins++
		default:
			ws.Draws++
			bs.Draws++
		}
		ws.Peak = max(ws.Peak, round(c.ratings[w]))
		bs.Peak = max(bs.Peak, round(c.ratings[b]))
	}

	out := make([]Rating, 0, len(stats))
	for name, s := range stats {
		s.Rating = round(c.ratings[name])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Ratings maps each engine to its rounded rating
func Ratings(games []Game) map[string]int {
	out := make(map[string]int)
	for _, r := range Compute(games) {
		out[r.Name] = r.Rating
	}
	return out
}

// History traces one engine's rating after each of its rated games
func History(games []Game, engine string) []Point {
	engine = core.NormalizeName(engine)
	c := &calculator{ratings: make(map[string]float64)}

	var points []Point
	for _, g := range games {
		w, b, ok := c.apply(g)
		if !ok || (w != engine && b != engine) {
			continue
		}
		points = append(points, Point{Game: len(points) + 1, Rating: round(c.ratings[engine])})
	}
	return points
}

// FromStored converts stored rows, dropping results that do not parse
func FromStored(rows []storage.RatedGame) []Game {
	games := make([]Game, 0, len(rows))
	for _, r := range rows {
		res, err := core.ParseResult(r.Result)
		if err != nil {
			continue
		}
		games = append(games, Game{White: r.White, Black: r.Black, Result: res})
	}
	return games
}

func round(v float64) int {
	return int(math.Round(v))
}

// Tier is a display band for a rating
type Tier struct {
	Min   int
	Label string
}

var tiers = []Tier{
	{2900, "Super Computer"},
	{2700, "Super GM"},
	{2400, "GM"},
	{2000, "IM"},
	{1800, "FM"},
	{1600, "Candidate"},
	{1400, "Beta"},
	{0, "Unrated"},
}

func TierFor(rating int) Tier {
	for _, t := range tiers {
		if rating >= t.Min {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
