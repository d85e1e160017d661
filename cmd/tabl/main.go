// Tabl is a shell for tables of values derived from formulas. Columns, rows
// and cells can hold formulas over other parts of the book, which are
// recalculated as their inputs change. It also serves as a language server
// for tabl scripts when run with -lsp.
package main

import (
	"os"

	"src.tabl.sh/pkg/buildinfo"
	"src.tabl.sh/pkg/lsp"
	"src.tabl.sh/pkg/prog"
	"src.tabl.sh/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(buildinfo.Program{}, lsp.Program{}, shell.Program{})))
}
