package strutil

import (
	"testing"

	. "src.tabl.sh/pkg/tt"
)

func TestTitle(t *testing.T) {
	Test(t, Title,
		Args("").Rets(""),
		Args("parse error").Rets("Parse error"),
		Args("\xf0").Rets("\xf0"),
		Args("FOO").Rets("FOO"),
	)
}
