// FILE: internal/book/book.go

// Package book loads a YAML opening book and matches played move sequences
// against it. Moves in the file may be written as UCI tokens or SAN.
package book

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"enginearena/internal/board"

	"gopkg.in/yaml.v3"
)

// Entry is one opening as written in the book file
type Entry struct {
	ECO   string `yaml:"eco"`
	Name  string `yaml:"name"`
	Moves string `yaml:"moves"`
}

type bookFile struct {
	Openings []Entry `yaml:"openings"`
}

// Line is an opening resolved to move tokens
type Line struct {
	ECO   string
	Name  string
	Moves []string
}

type Book struct {
	lines   []Line
	invalid []string
}

var (
	uciToken   = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbnQRBN]?$`)
	moveNumber = regexp.MustCompile(`^\d+\.+`)
)

func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read opening book: %w", err)
	}
	return Parse(data)
}

// Parse builds a book from YAML. Entries whose moves do not replay legally
// from the starting position are skipped and reported by Invalid.
func Parse(data []byte) (*Book, error) {
	var f bookFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse opening book: %w", err)
	}

	b := &Book{}
	for _, e := range f.Openings {
		moves, err := resolve(e.Moves)
		if err != nil || len(moves) == 0 {
			b.invalid = append(b.invalid, e.Name)
			continue
		}
		b.lines = append(b.lines, Line{
			ECO:   strings.TrimSpace(e.ECO),
			Name:  strings.TrimSpace(e.Name),
			Moves: moves,
		})
	}

	// most specific opening first
	sort.SliceStable(b.lines, func(i, j int) bool {
		return len(b.lines[i].Moves) > len(b.lines[j].Moves)
	})
	return b, nil
}

func resolve(raw string) ([]string, error) {
	bd := board.New()
	for _, tok := range strings.Fields(raw) {
		tok = moveNumber.ReplaceAllString(tok, "")
		if tok == "" {
			continue
		}
		if uciToken.MatchString(tok) {
			if _, err := bd.ApplyToken(strings.ToLower(tok)); err == nil {
				continue
			}
		}
		if _, err := bd.ApplySAN(tok); err != nil {
			return nil, err
		}
	}
	return bd.MoveTokens(), nil
}

func (b *Book) Len() int {
	return len(b.lines)
}

// Invalid names the entries skipped at load time
func (b *Book) Invalid() []string {
	return append([]string(nil), b.invalid...)
}

// Lookup returns the most specific opening whose moves prefix the played
// sequence
func (b *Book) Lookup(moves []string) (eco, name string, ok bool) {
	for _, l := range b.lines {
		if len(moves) >= len(l.Moves) && hasPrefix(moves, l.Moves) {
			return l.ECO, l.Name, true
		}
	}
	return "", "", false
}

// NextMove returns the book continuation of the played sequence from the
// most specific line that extends it
func (b *Book) NextMove(moves []string) (string, bool) {
	for _, l := range b.lines {
		if len(l.Moves) > len(moves) && hasPrefix(l.Moves, moves) {
			return l.Moves[len(moves)], true
		}
	}
	return "", false
}

func hasPrefix(seq, prefix []string) bool {
	for i, m := range prefix {
		if seq[i] != m {
			return false
		}
	}
	return true
}
