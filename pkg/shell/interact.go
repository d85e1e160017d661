package shell

import (
	"fmt"
	"io"
	"os"

	"src.tabl.sh/pkg/diag"
)

// interact reads command lines from fds[0] until EOF. Errors are shown and
// do not stop the session. The prompt is only written when tty is true.
func interact(fds [3]*os.File, sess *Session, tty bool) {
	var ed editor = newMinEditor(fds[0], fds[1], tty)
	for cmdNum := 1; ; cmdNum++ {
		line, err := ed.ReadCode()
		if err != nil && err != io.EOF {
			fmt.Fprintln(fds[2], "Editor error:", err)
			return
		}
		if line != "" {
			sess.history(line)
			d, evalErr := evalLine(sess, line)
			logger.Printf("command %d took %v", cmdNum, d)
			if evalErr != nil {
				diag.ShowError(fds[2], evalErr)
			}
		}
		if err == io.EOF {
			if tty {
				fmt.Fprintln(fds[1])
			}
			return
		}
	}
}
