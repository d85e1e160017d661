// Package wcwidth provides the display width of strings in a terminal, used to
// align the columns of tables.
package wcwidth

import (
	"strings"
	"unicode"
)

// Ranges of runes that take up two columns.
var wide = [][2]rune{
	{0x1100, 0x115F}, {0x231A, 0x231B}, {0x2329, 0x232A},
	{0x2E80, 0x303E}, {0x3041, 0x33FF}, {0x3400, 0x4DBF},
	{0x4E00, 0x9FFF}, {0xA000, 0xA4CF}, {0xA960, 0xA97F},
	{0xAC00, 0xD7A3}, {0xF900, 0xFAFF}, {0xFE10, 0xFE19},
	{0xFE30, 0xFE6F}, {0xFF00, 0xFF60}, {0xFFE0, 0xFFE6},
	{0x1F300, 0x1F64F}, {0x1F900, 0x1F9FF},
	{0x20000, 0x2FFFD}, {0x30000, 0x3FFFD},
}

// OfRune returns the column width of a rune.
func OfRune(r rune) int {
	switch {
	case r == 0,
		unicode.Is(unicode.Mn, r), unicode.Is(unicode.Me, r), unicode.Is(unicode.Cf, r):
		return 0
	case unicode.IsControl(r):
		return 0
	}
	for _, rg := range wide {
		if rg[0] <= r && r <= rg[1] {
			return 2
		}
	}
	return 1
}

// Of returns the column width of a string.
func Of(s string) int {
	w := 0
	for _, r := range s {
		w += OfRune(r)
	}
	return w
}

// Trim trims s to at most wmax columns.
func Trim(s string, wmax int) string {
	w := 0
	for i, r := range s {
		w += OfRune(r)
		if w > wmax {
			return s[:i]
		}
	}
	return s
}

// Force trims or pads s with spaces to exactly w columns. A wide rune that
// would straddle the boundary is replaced by padding.
func Force(s string, w int) string {
	s = Trim(s, w)
	return s + strings.Repeat(" ", w-Of(s))
}
