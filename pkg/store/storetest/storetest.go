// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	. "src.tabl.sh/pkg/store/storedefs"
)

var (
	cmds     = []string{"set col 1 = 1", "let col 2 = col 1*2", "show", "let col 3 = col 2+1"}
	cmdsDupe = []string{"show", "recalc"}
)

// TestCmd tests the command history functionality of a Store.
func TestCmd(t *testing.T, store Store) {
	startSeq, err := store.NextCmdSeq()
	if startSeq != 1 || err != nil {
		t.Errorf("store.NextCmdSeq() -> %v, %v, want %v, nil", startSeq, err, 1)
	}

	for i, cmd := range append(cmds, cmdsDupe...) {
		wantSeq := startSeq + i
		seq, err := store.AddCmd(cmd)
		if seq != wantSeq || err != nil {
			t.Errorf("store.AddCmd(%v) -> %v, %v, want %v, nil",
				cmd, seq, err, wantSeq)
		}
	}

	endSeq, err := store.NextCmdSeq()
	wantEndSeq := startSeq + len(cmds) + len(cmdsDupe)
	if endSeq != wantEndSeq || err != nil {
		t.Errorf("store.NextCmdSeq() -> %v, %v, want %v, nil",
			endSeq, err, wantEndSeq)
	}

	for i, wantCmd := range cmds {
		seq := i + startSeq
		cmd, err := store.Cmd(seq)
		if cmd != wantCmd || err != nil {
			t.Errorf("store.Cmd(%v) -> %v, %v, want %v, nil",
				seq, cmd, err, wantCmd)
		}
	}

	got, err := store.CmdsWithSeq(startSeq+1, startSeq+3)
	want := []Cmd{{Text: cmds[1], Seq: startSeq + 1}, {Text: cmds[2], Seq: startSeq + 2}}
	if diff := cmp.Diff(want, got); diff != "" || err != nil {
		t.Errorf("store.CmdsWithSeq -> (-want +got):\n%s, err %v", diff, err)
	}

	prevTests := []struct {
		upto   int
		prefix string
		want   Cmd
		err    error
	}{
		{endSeq, "show", Cmd{Text: "show", Seq: startSeq + 4}, nil},
		{startSeq + 4, "show", Cmd{Text: "show", Seq: startSeq + 2}, nil},
		{endSeq, "let", Cmd{Text: cmds[3], Seq: startSeq + 3}, nil},
		{endSeq + 10, "recalc", Cmd{Text: "recalc", Seq: startSeq + 5}, nil},
		{startSeq + 1, "let", Cmd{}, ErrNoMatchingCmd},
		{endSeq, "nope", Cmd{}, ErrNoMatchingCmd},
	}
	for _, tt := range prevTests {
		cmd, err := store.PrevCmd(tt.upto, tt.prefix)
		if cmd != tt.want || !errors.Is(err, tt.err) {
			t.Errorf("store.PrevCmd(%v, %q) -> (%v, %v), want (%v, %v)",
				tt.upto, tt.prefix, cmd, err, tt.want, tt.err)
		}
	}

	err = store.DelCmd(startSeq)
	if err != nil {
		t.Errorf("store.DelCmd(%v) -> %v, want nil", startSeq, err)
	}
	if _, err := store.Cmd(startSeq); !errors.Is(err, ErrNoMatchingCmd) {
		t.Errorf("store.Cmd(%v) after deletion -> %v, want ErrNoMatchingCmd", startSeq, err)
	}
}

// TestBook tests the book functionality of a Store.
func TestBook(t *testing.T, store Store) {
	if _, err := store.Book("prices"); !errors.Is(err, ErrNoBook) {
		t.Errorf("store.Book(prices) -> %v, want ErrNoBook", err)
	}

	snap := &Snapshot{
		Engine: uuid.New(),
		Saved:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Tables: []Table{{
			Name: "prices", Rows: 2, Cols: 3,
			ColLabels: []string{"time", "price", ""},
			Values: []Value{
				{Row: 1, Col: 2, Kind: KindNum, Num: 1.5},
				{Row: 2, Col: 3, Kind: KindStr, Str: "n/a"},
			},
		}},
		Formulas: []Formula{
			{Table: "prices", Kind: KindColumn, Col: 3, Text: "col price * 2"},
			{Table: "prices", Kind: KindColumn, Col: 2, Text: "rand()", TimeSeries: true},
		},
		Series: []Series{{Table: "prices", Stamp: 1, Interval: time.Minute}},
	}
	if err := store.SaveBook("prices", snap); err != nil {
		t.Errorf("store.SaveBook -> %v, want nil", err)
	}
	if err := store.SaveBook("empty", &Snapshot{}); err != nil {
		t.Errorf("store.SaveBook -> %v, want nil", err)
	}

	got, err := store.Book("prices")
	if err != nil {
		t.Errorf("store.Book(prices) -> %v, want nil", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("store.Book(prices) (-want +got):\n%s", diff)
	}

	names, err := store.Books()
	if diff := cmp.Diff([]string{"empty", "prices"}, names); diff != "" || err != nil {
		t.Errorf("store.Books() (-want +got):\n%s, err %v", diff, err)
	}

	if err := store.DelBook("prices"); err != nil {
		t.Errorf("store.DelBook -> %v, want nil", err)
	}
	if err := store.DelBook("prices"); err != nil {
		t.Errorf("store.DelBook of deleted book -> %v, want nil", err)
	}
	if _, err := store.Book("prices"); !errors.Is(err, ErrNoBook) {
		t.Errorf("store.Book(prices) after deletion -> %v, want ErrNoBook", err)
	}
}
