package shell

import (
	"testing"

	"src.tabl.sh/pkg/env"
	. "src.tabl.sh/pkg/prog/progtest"
	"src.tabl.sh/pkg/testutil"
)

// setup isolates the test from the configuration and database of the user.
func setup(t *testing.T) {
	t.Helper()
	dir := testutil.InTempDir(t)
	testutil.Setenv(t, env.TABL_CONFIG, "")
	testutil.Setenv(t, env.XDG_CONFIG_HOME, dir)
}

func TestScript(t *testing.T) {
	setup(t)
	testutil.MustWriteFile("prices.tabl", `# prices
table prices 2 2
set cell 1,1 = 2
set cell 2,1 = 3
let col 2 = col 1 * 10
get col 2
`)
	testutil.MustWriteFile("invalid-utf8.tabl", "\xff")

	Test(t, Program{},
		ThatTabl("prices.tabl").WritesStdout("20\t30\n"),
		ThatTabl("-c", "table t 1 1\nset cell 1,1 = 'a b'\nget cell 1,1").
			WritesStdout("a b\n"),

		ThatTabl("invalid-utf8.tabl").
			ExitsWith(2).
			WritesStderrContaining("cannot read script"),
		ThatTabl("non-existent.tabl").
			ExitsWith(2).
			WritesStderrContaining("cannot read script"),
		ThatTabl("-c").
			ExitsWith(2).
			WritesStderrContaining("-c requires an argument"),

		// Stops at the first failing line.
		ThatTabl("-c", "nope\nhelp").
			ExitsWith(2).
			WritesStderrContaining(`code from -c:1: `),
		ThatTabl("-c", "table t 1 1\nlet col 1 = 1 +").
			ExitsWith(2).
			WritesStderrContaining("code from -c:2: "),
		ThatTabl("-c", "set cell 1,1 = 2").
			ExitsWith(2).
			WritesStderrContaining("no such element"),
		ThatTabl("-c", "table t 3 3\nlet col 1 = col 2\nlet col 2 = col 1").
			ExitsWith(2).
			WritesStderrContaining("code from -c:3: "),
	)
}

func TestScript_CheckOnly(t *testing.T) {
	setup(t)
	Test(t, Program{},
		ThatTabl("-checkonly", "-c", "table t 1 2\nlet col 2 = sum(col 1) + 1"),
		// Nothing is run.
		ThatTabl("-checkonly", "-c", "get col 9"),
		ThatTabl("-checkonly", "-c", "let col 2 = 1 +\nnope").
			ExitsWith(2).
			WritesStderrContaining("code from -c:2: "),
		ThatTabl("-checkonly", "-json", "-c", "table t 1 1\nnope").
			ExitsWith(2).
			WritesStdout(`[{"fileName":"code from -c","line":2,"start":12,"end":16,"message":"unknown command \"nope\"; try help"}]` + "\n"),
		ThatTabl("-checkonly", "-json", "-c", "let col 2 = 1 +").
			ExitsWith(2).
			WritesStdoutContaining(`"line":1,`).
			WritesStdoutContaining(`"code":"missing-operand"`),
		ThatTabl("-checkonly", "-json", "-c", "table t 1 1").
			WritesStdout("[]\n"),
		ThatTabl("-checkonly").
			ExitsWith(2).
			WritesStderrContaining("-checkonly requires a script"),
	)
}

func TestInteract(t *testing.T) {
	setup(t)
	Test(t, Program{},
		ThatTabl().WithStdin("table t 2 2\nset cell 1,1 = 1\nshow\n").
			WritesStdout("   1  2\n1  1\n2\n"),
		// Long values are shortened with an ellipsis.
		ThatTabl().WithStdin("table t 1 1\nset cell 1,1 = 'abcdefghijklmnopqrstuvwxyz'\nshow\n").
			WritesStdout("   1\n1  abcdefghijklmnopqrstuvw…\n"),
		// Errors do not stop the session.
		ThatTabl().WithStdin("nope\ntable t 1 1\nset cell 1,1 = 5\nget cell 1,1").
			WritesStdout("5\n").
			WritesStderrContaining(`unknown command "nope"`),
		ThatTabl().WithStdin("auto\nauto off\nauto\n").
			WritesStdout("on\noff\n"),
	)
}

func TestCommands(t *testing.T) {
	setup(t)
	Test(t, Program{},
		ThatTabl("-c", `table prices 3 2
label col 1 price
label col 2 tax
set cell 1,1 = 10
set cell 2,1 = 20
set cell 3,1 = 30
let col "tax" = col "price" * 0.5
formulas
get col 2`).
			WritesStdout("col 2 = col \"price\" * 0.5\n5\t10\t15\n"),

		ThatTabl("-c", `table a 1 1
table b 1 1
use a
tables`).
			WritesStdout("* a 1x1\n  b 1x1\n"),

		ThatTabl("-c", `table t 2 1
set cell 1,1 = 1
set cell 2,1 = 2
append col
let col 2 = col 1 + 1
append row
set cell 3,1 = 3
get col 2`).
			WritesStdout("2\t3\t4\n"),

		ThatTabl("-c", `table t 2 2
set cell 1,1 = 1
let col 2 = col 1
unset col 2
formulas
set cell 1,1 = 9
get cell 1,2`).
			WritesStdout("1\n"),

		ThatTabl("-c", `table t 1 2
auto off
set cell 1,1 = 4
let cell 1,2 = cell 1,1 * 2
get cell 1,2
recalc cell 1,2
get cell 1,2`).
			WritesStdout("\n8\n"),

		ThatTabl("-c", `table t 2 2
set cell 1,1 = 3
set cell 2,1 = 4
subset top cell 1,1; cell 2,1
let cell 1,2 = sum(subset top)
get cell 1,2
delete subset top
formulas`).
			WritesStdout("7\n"),

		ThatTabl("-c", "table t 1 1\nlet cell 1,1 = delay(20, 42)\nwait\nget cell 1,1").
			WritesStdout("42\n"),

		ThatTabl("-c", "table t 0 2\nseries col 1 1h\nts col 2 = 7\ntick\ntick\nget col 2\nformulas").
			WritesStdout("7\t7\ncol 2 = 7 (time series)\n"),

		ThatTabl("-c", "ops max").WritesStdoutContaining("max("),
		ThatTabl("-c", "help").WritesStdoutContaining("let ADDR = FORMULA"),

		ThatTabl("-c", "save x").
			ExitsWith(2).
			WritesStderrContaining("no database"),
	)
}

func TestDatabase(t *testing.T) {
	setup(t)
	Test(t, Program{},
		ThatTabl("-db", "db", "-c", "table t 1 2\nset cell 1,1 = 5\nlet col 2 = col 1 + 1\nsave b"),
		ThatTabl("-db", "db", "-c", "load b\nget cell 1,2\nbooks").
			WritesStdout("6\nb\n"),
		ThatTabl("-db", "db", "-c", "forget b\nbooks"),
		ThatTabl("-db", "db", "-c", "load b").
			ExitsWith(2).
			WritesStderrContaining("no such book"),
	)
	Test(t, Program{},
		ThatTabl("-db", "db").WithStdin("tables\nhistory 1\n").
			WritesStdout("    2  history 1\n"),
	)
}

func TestConfig(t *testing.T) {
	setup(t)
	testutil.MustWriteFile("c.yaml", `
auto-recalculate: false
tables:
  - name: t
    rows: 1
    cols: 2
    labels: [a, b]
    formulas:
      col "b": col "a" + 1
`)
	testutil.MustWriteFile("bad.toml", "colour = 1\n")
	Test(t, Program{},
		ThatTabl("-config", "c.yaml", "-c", "auto\nformulas").
			WritesStdout("off\ncol 2 = col \"a\" + 1\n"),
		ThatTabl("-config", "bad.toml", "-c", "help").
			ExitsWith(2).
			WritesStderrContaining("unknown settings"),
	)
}
