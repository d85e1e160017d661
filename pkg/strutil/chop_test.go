package strutil

import (
	"testing"

	. "src.tabl.sh/pkg/tt"
)

func TestChopLineEnding(t *testing.T) {
	Test(t, ChopLineEnding,
		Args("").Rets(""),
		Args("text").Rets("text"),
		Args("text\n").Rets("text"),
		Args("text\r\n").Rets("text"),
		// Only chop off one line ending
		Args("text\n\n").Rets("text\n"),
	)
}

func TestEllipsize(t *testing.T) {
	Test(t, Ellipsize,
		Args("price", 0).Rets("price"),
		Args("price", 5).Rets("price"),
		Args("price", 4).Rets("pri…"),
		Args("héllo wörld", 6).Rets("héllo…"),
	)
}
