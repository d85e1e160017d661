// Package progtest contains utilities for testing [prog.Program] instances by
// running them with pipes in place of the standard files.
package progtest

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"src.tabl.sh/pkg/prog"
)

// Case is a test case for Test.
type Case struct {
	args   []string
	stdin  string
	exit   int
	stdout output
	stderr output
}

type output struct {
	content  string
	contains bool
	set      bool
}

func (o output) match(s string) bool {
	switch {
	case !o.set:
		return true
	case o.contains:
		return strings.Contains(s, o.content)
	default:
		return s == o.content
	}
}

// ThatTabl returns a new Case that runs the program with the given
// command-line arguments. Unless further constrained, the program is expected
// to exit with 0 and write nothing.
func ThatTabl(args ...string) Case {
	return Case{args: append([]string{"tabl"}, args...)}
}

// WithStdin returns an altered Case that feeds s to the program's stdin.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c itself. It is useful to mark tests that otherwise
// don't have any expectations, for example:
//
//	ThatTabl("-cpuprofile", "cpuprof").DoesNothing()
func (c Case) DoesNothing() Case { return c }

// ExitsWith returns an altered Case that requires the program to exit with
// the given code.
func (c Case) ExitsWith(code int) Case {
	c.exit = code
	return c
}

// WritesStdout returns an altered Case that requires the program to write
// exactly the given text to stdout.
func (c Case) WritesStdout(s string) Case {
	c.stdout = output{s, false, true}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the program to
// write output to stdout that contains the given text.
func (c Case) WritesStdoutContaining(s string) Case {
	c.stdout = output{s, true, true}
	return c
}

// WritesStderr returns an altered Case that requires the program to write
// exactly the given text to stderr.
func (c Case) WritesStderr(s string) Case {
	c.stderr = output{s, false, true}
	return c
}

// WritesStderrContaining returns an altered Case that requires the program to
// write output to stderr that contains the given text.
func (c Case) WritesStderrContaining(s string) Case {
	c.stderr = output{s, true, true}
	return c
}

// Test runs test cases against a given program.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Helper()
			exit, stdout, stderr := Run(p, c.stdin, c.args...)
			if exit != c.exit {
				t.Errorf("got exit %v, want %v", exit, c.exit)
			}
			if !c.stdout.set {
				c.stdout = output{"", false, true}
			}
			if !c.stdout.match(stdout) {
				t.Errorf("got stdout %q, want %s", stdout, c.stdout.describe())
			}
			if !c.stderr.set {
				c.stderr = output{"", false, true}
			}
			if !c.stderr.match(stderr) {
				t.Errorf("got stderr %q, want %s", stderr, c.stderr.describe())
			}
		})
	}
}

func (o output) describe() string {
	if o.contains {
		return fmt.Sprintf("containing %q", o.content)
	}
	return fmt.Sprintf("%q", o.content)
}

// Run runs a program with the given stdin and arguments, and returns its exit
// status and output.
func Run(p prog.Program, stdin string, args ...string) (exit int, stdout, stderr string) {
	r0, w0 := mustPipe()
	r1, w1 := mustPipe()
	r2, w2 := mustPipe()
	go func() {
		io.WriteString(w0, stdin)
		w0.Close()
	}()
	outCh, errCh := readAll(r1), readAll(r2)
	exit = prog.Run([3]*os.File{r0, w1, w2}, args, p)
	r0.Close()
	w1.Close()
	w2.Close()
	return exit, <-outCh, <-errCh
}

func readAll(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(r)
		r.Close()
		ch <- string(b)
	}()
	return ch
}

func mustPipe() (*os.File, *os.File) {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return r, w
}
