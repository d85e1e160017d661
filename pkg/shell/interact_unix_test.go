//go:build unix

package shell

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"src.tabl.sh/pkg/prog"
	"src.tabl.sh/pkg/testutil"
)

func TestInteract_Terminal(t *testing.T) {
	setup(t)
	ptm, tty, err := pty.Open()
	if err != nil {
		t.Skip("cannot open pty:", err)
	}
	defer ptm.Close()
	if err := pty.Setsize(ptm, &pty.Winsize{Rows: 24, Cols: 12}); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var out []byte
	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := ptm.Read(buf)
			mu.Lock()
			out = append(out, buf[:n]...)
			mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
	output := func() string {
		mu.Lock()
		defer mu.Unlock()
		return string(out)
	}

	done := make(chan error, 1)
	go func() {
		done <- Program{}.Run([3]*os.File{tty, tty, tty}, &prog.Flags{}, nil)
		tty.Close()
	}()
	// ^D at the start of a line ends the input.
	ptm.WriteString("table t 1 2\nset cell 1,1 = 'abcdefghijklmnopqrstuvwxyz'\nshow\n\x04")

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("got error %v", err)
		}
	case <-time.After(testutil.Scaled(5 * time.Second)):
		t.Fatal("shell did not exit at the end of input")
	}

	// The row is cut at the width of the terminal.
	for _, want := range []string{"tabl> ", "1  abcdefghi\r\n"} {
		ok := testutil.Eventually(func() bool { return strings.Contains(output(), want) },
			time.Second, 10*time.Millisecond)
		if !ok {
			t.Errorf("output %q does not contain %q", output(), want)
		}
	}
}
