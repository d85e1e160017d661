package wcwidth

import (
	"testing"

	. "src.tabl.sh/pkg/tt"
)

func TestOf(t *testing.T) {
	Test(t, Of,
		Args("").Rets(0),
		Args("a").Rets(1),
		Args("Ω").Rets(1),
		Args("好").Rets(2),
		Args("か").Rets(2),
		Args("e\u0301").Rets(1), // e with a combining acute accent
		Args("\t").Rets(0),

		Args("price").Rets(5),
		Args("#DIVIDEBYZERO").Rets(13),
		Args("价格").Rets(4),
		Args("📈 up").Rets(5),
	)
}

func TestTrim(t *testing.T) {
	Test(t, Trim,
		Args("price", 1).Rets("p"),
		Args("price", 5).Rets("price"),
		Args("price", 9).Rets("price"),

		Args("价格", 1).Rets(""),
		Args("价格", 2).Rets("价"),
		Args("价格", 3).Rets("价"),
		Args("价格", 4).Rets("价格"),
		Args("1  价格", 4).Rets("1  "),
	)
}

func TestForce(t *testing.T) {
	Test(t, Force,
		// Trimming
		Args("price", 2).Rets("pr"),
		Args("价格", 2).Rets("价"),
		// Padding
		Args("12", 4).Rets("12  "),
		Args("价格", 5).Rets("价格 "),
		// A wide rune that does not fit is replaced by padding.
		Args("价格", 3).Rets("价 "),
		Args("", 2).Rets("  "),
	)
}
