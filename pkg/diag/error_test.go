package diag

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	setMessageMarkers(t, "{", "}")

	err := &Error{
		Type:    "parse error",
		Message: "no such operator",
		Context: *NewContext("[formula]", "1 + foo(2)", Ranging{4, 7}),
	}

	wantErrorString := "parse error: [formula]:5: no such operator"
	if got := err.Error(); got != wantErrorString {
		t.Errorf("Error() -> %q, want %q", got, wantErrorString)
	}

	wantRanging := Ranging{From: 4, To: 7}
	if got := err.Range(); got != wantRanging {
		t.Errorf("Range() -> %v, want %v", got, wantRanging)
	}

	wantShow := "Parse error: {no such operator}\n  [formula]:5: 1 + <foo>(2)"
	if got := err.Show(""); got != wantShow {
		t.Errorf("Show() -> %q, want %q", got, wantShow)
	}
}

func TestShowError(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	setMessageMarkers(t, "{", "}")

	var buf bytes.Buffer
	err := &Error{Type: "parse error", Message: "bad",
		Context: *NewContext("f", "'abc", Ranging{0, 4})}
	ShowError(&buf, fmt.Errorf("wrapped: %w", err))
	if want := "Parse error: {bad}\n  f:1: <'abc>\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	ShowError(&buf, errors.New("plain"))
	if want := "{plain}\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
