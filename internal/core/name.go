package core

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var colorSuffixes = []string{" (White)", " (Black)"}

// NormalizeName canonicalises an engine display name so that ratings and
// pairings treat "Stockfish (White)" and "Stockfish" as the same player.
func NormalizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	for _, suffix := range colorSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.TrimSpace(name)
}
