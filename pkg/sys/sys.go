// Package sys provides terminal queries with the same API across OSes.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Size is the size of a terminal in character cells.
type Size struct {
	Rows, Cols int
}

// Fallback size for terminals that report zero, such as some serial consoles.
var fallbackSize = Size{Rows: 24, Cols: 80}

// TermSize returns the size of the terminal file refers to. The second return
// value is false if file is not a terminal.
func TermSize(file *os.File) (Size, bool) {
	size, ok := termSize(file)
	if !ok {
		return Size{}, false
	}
	if size.Rows <= 0 {
		size.Rows = fallbackSize.Rows
	}
	if size.Cols <= 0 {
		size.Cols = fallbackSize.Cols
	}
	return size, true
}

// Width returns the number of columns of the terminal file refers to, or 0 if
// file is not a terminal.
func Width(file *os.File) int {
	size, ok := TermSize(file)
	if !ok {
		return 0
	}
	return size.Cols
}

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
