// FILE: internal/display/board.go
package display

import (
	"fmt"
	"strings"

	"enginearena/internal/board"
	"enginearena/internal/core"
)

type Theme string

const (
	ThemeOff   Theme = "off"
	ThemeBrown Theme = "brown"
	ThemeGreen Theme = "green"
	ThemeGray  Theme = "gray"
)

type themeColors struct {
	lightBg string
	darkBg  string
	white   string
	black   string
}

var themes = map[Theme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg: "\033[48;5;230m", // Beige
		darkBg:  "\033[48;5;94m",  // Brown
		white:   "\033[97m",
		black:   "\033[30m",
	},
	ThemeGreen: {
		lightBg: "\033[48;5;157m",
		darkBg:  "\033[48;5;22m",
		white:   "\033[97m",
		black:   "\033[30m",
	},
	ThemeGray: {
		lightBg: "\033[48;5;251m",
		darkBg:  "\033[48;5;240m",
		white:   "\033[97m",
		black:   "\033[30m",
	},
}

// SetTheme selects the board squares' colors
func (p *Printer) SetTheme(theme Theme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	p.theme = theme
	return nil
}

// Board draws the position of a FEN. Without colors, or with the off theme,
// the plain ASCII diagram is printed with colored pieces only.
func (p *Printer) Board(fen string) error {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}

	if !p.color || p.theme == ThemeOff {
		p.renderASCII(pos.ToASCII())
		return nil
	}

	theme := themes[p.theme]
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for r := 0; r < 8; r++ {
		sb.WriteString(fmt.Sprintf("%d ", 8-r))
		for f := 0; f < 8; f++ {
			piece := pos.PieceAt(fmt.Sprintf("%c%c", 'a'+f, '8'-r))

			bg := theme.darkBg
			if (r+f)%2 == 0 {
				bg = theme.lightBg
			}
			if piece == 0 {
				sb.WriteString(fmt.Sprintf("%s  %s", bg, Reset))
				continue
			}
			color := theme.black
			if piece >= 'A' && piece <= 'Z' {
				color = theme.white
			}
			sb.WriteString(fmt.Sprintf("%s%s%c %s", bg, color, piece, Reset))
		}
		sb.WriteString(fmt.Sprintf(" %d\n", 8-r))
	}
	sb.WriteString("  a b c d e f g h\n")
	fmt.Fprint(p.w, sb.String())
	return nil
}

// renderASCII prints an ASCII board with colored pieces
func (p *Printer) renderASCII(asciiBoard string) {
	lines := strings.Split(asciiBoard, "\n")
	last := len(lines) - 1

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !p.color {
			fmt.Fprintln(p.w, line)
			continue
		}

		isFileLine := i == 0 || i == last
		for _, char := range line {
			switch {
			case char >= 'a' && char <= 'h' && isFileLine:
				fmt.Fprintf(p.w, "%s%c%s", Cyan, char, Reset)
			case char >= 'A' && char <= 'Z':
				fmt.Fprintf(p.w, "%s%c%s", Blue, char, Reset)
			case char >= 'a' && char <= 'z':
				fmt.Fprintf(p.w, "%s%c%s", Red, char, Reset)
			case char >= '1' && char <= '8':
				fmt.Fprintf(p.w, "%s%c%s", Cyan, char, Reset)
			default:
				fmt.Fprintf(p.w, "%c", char)
			}
		}
		fmt.Fprintln(p.w)
	}
}

// ColorForTurn returns colored turn indicator
func (p *Printer) ColorForTurn(c core.Color) string {
	if c == core.ColorWhite {
		return p.paint(Blue, "White")
	}
	return p.paint(Red, "Black")
}
