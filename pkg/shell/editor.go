package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"src.tabl.sh/pkg/strutil"
)

// This type is the interface that the line editor has to satisfy.
type editor interface {
	ReadCode() (string, error)
}

type minEditor struct {
	in     *bufio.Reader
	out    io.Writer
	prompt bool
}

func newMinEditor(in, out *os.File, prompt bool) *minEditor {
	return &minEditor{bufio.NewReader(in), out, prompt}
}

func (ed *minEditor) ReadCode() (string, error) {
	if ed.prompt {
		fmt.Fprint(ed.out, "tabl> ")
	}
	line, err := ed.in.ReadString('\n')
	return strutil.ChopLineEnding(line), err
}
