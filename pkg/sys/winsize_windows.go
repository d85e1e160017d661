package sys

import (
	"os"

	"golang.org/x/sys/windows"
)

func termSize(file *os.File) (Size, bool) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(file.Fd()), &info); err != nil {
		return Size{}, false
	}
	// The window coordinates are inclusive.
	w := info.Window
	return Size{Rows: int(w.Bottom-w.Top) + 1, Cols: int(w.Right-w.Left) + 1}, true
}
