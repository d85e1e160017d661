package strutil

import (
	"testing"

	. "src.tabl.sh/pkg/tt"
)

func TestCamelToDashed(t *testing.T) {
	Test(t, CamelToDashed,
		Args("DivideByZero").Rets("divide-by-zero"),
		Args("NaN").Rets("nan"),
		Args("CircularReference").Rets("circular-reference"),
		Args("").Rets(""),
	)
}
