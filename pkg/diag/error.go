// Package diag contains building blocks for formatting and processing
// diagnostic information.
package diag

import (
	"errors"
	"fmt"
	"io"

	"src.tabl.sh/pkg/strutil"
)

// Error represents an error with context that can be showed.
type Error struct {
	Type    string
	Message string
	Context Context
}

// Variables controlling the style of the message in Show.
var (
	messageStart = "\033[31;1m"
	messageEnd   = "\033[m"
)

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Context.Describe(), e.Message)
}

// Range returns the range of the error.
func (e *Error) Range() Ranging {
	return e.Context.Range()
}

// Show shows the error.
func (e *Error) Show(indent string) string {
	header := fmt.Sprintf("%s: %s%s%s\n", strutil.Title(e.Type), messageStart, e.Message, messageEnd)
	return header + indent + "  " + e.Context.Show()
}

// Shower wraps the Show function.
type Shower interface {
	// Show takes an indentation string and shows.
	Show(indent string) string
}

// ShowError writes err to w. It uses the Show method if err (or an error it
// wraps) implements Shower, and the plain message otherwise.
func ShowError(w io.Writer, err error) {
	var shower Shower
	if errors.As(err, &shower) {
		fmt.Fprintln(w, shower.Show(""))
		return
	}
	fmt.Fprintf(w, "%s%s%s\n", messageStart, err.Error(), messageEnd)
}
