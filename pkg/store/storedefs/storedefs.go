// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store API
// does not need to depend on the concrete implementation.
package storedefs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoMatchingCmd is the error returned when a Cmd or PrevCmd query
// completes with no result.
var ErrNoMatchingCmd = errors.New("no matching command line")

// ErrNoBook is returned by Book when there is no book with the given name.
var ErrNoBook = errors.New("no such book")

// Store is an interface satisfied by the storage service.
type Store interface {
	NextCmdSeq() (int, error)
	AddCmd(text string) (int, error)
	DelCmd(seq int) error
	Cmd(seq int) (string, error)
	CmdsWithSeq(from, upto int) ([]Cmd, error)
	PrevCmd(upto int, prefix string) (Cmd, error)

	SaveBook(name string, snap *Snapshot) error
	Book(name string) (*Snapshot, error)
	Books() ([]string, error)
	DelBook(name string) error

	Close() error
}

// Cmd is an entry in the command history.
type Cmd struct {
	Text string
	Seq  int
}

// Snapshot is the saved state of a book: its tables, the values that were
// entered by hand, and the formulas and time series defined on it.
type Snapshot struct {
	// Engine is the ID of the engine the snapshot was captured from.
	Engine   uuid.UUID `json:"engine"`
	Saved    time.Time `json:"saved"`
	Tables   []Table   `json:"tables"`
	Formulas []Formula `json:"formulas,omitempty"`
	Series   []Series  `json:"series,omitempty"`
}

// Table is the shape of a table.
type Table struct {
	Name      string   `json:"name"`
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
	RowLabels []string `json:"rowLabels,omitempty"`
	ColLabels []string `json:"colLabels,omitempty"`
	Values    []Value  `json:"values,omitempty"`
}

// Value is a literal value of a cell. Row and Col are 1-based.
type Value struct {
	Row  int     `json:"row"`
	Col  int     `json:"col"`
	Kind string  `json:"kind"`
	Num  float64 `json:"num,omitempty"`
	Str  string  `json:"str,omitempty"`
	Bool bool    `json:"bool,omitempty"`
}

// Kinds of targets of a Formula, and kinds of a Value.
const (
	KindColumn = "col"
	KindRow    = "row"
	KindCell   = "cell"

	KindNum  = "num"
	KindStr  = "str"
	KindBool = "bool"
)

// Formula is a derivation. Row is 0 for column targets, and Col is 0 for row
// targets.
type Formula struct {
	Table      string `json:"table"`
	Kind       string `json:"kind"`
	Row        int    `json:"row,omitempty"`
	Col        int    `json:"col,omitempty"`
	Text       string `json:"text"`
	TimeSeries bool   `json:"timeSeries,omitempty"`
}

// Series is the time series setting of a table.
type Series struct {
	Table    string        `json:"table"`
	Stamp    int           `json:"stamp"`
	Interval time.Duration `json:"interval"`
}
