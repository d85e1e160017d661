package diag

import (
	"testing"

	. "src.tabl.sh/pkg/tt"
)

func TestContext(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	show := func(c *Context) string { return c.Show() }

	Test(t, Fn(show).Named("Show"),
		Args(NewContext("f", "1+2", Ranging{1, 2})).Rets("f:2: 1<+>2"),
		Args(NewContext("f", "1+", Ranging{2, 2})).Rets("f:3: 1+<^>"),
		Args(NewContext("f", "é+x", Ranging{3, 4})).Rets("f:3: é+<x>"),
		Args(NewContext("f", "1", Ranging{-1, -1})).Rets("f, unknown position"),
		Args(NewContext("f", "1", Ranging{0, 5})).Rets("f, invalid position 0-5"),
	)
}
