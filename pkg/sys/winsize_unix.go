//go:build unix

package sys

import (
	"os"

	"golang.org/x/sys/unix"
)

func termSize(file *os.File) (Size, bool) {
	ws, err := unix.IoctlGetWinsize(int(file.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return Size{}, false
	}
	return Size{Rows: int(ws.Row), Cols: int(ws.Col)}, true
}
