package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"src.tabl.sh/pkg/config"
	"src.tabl.sh/pkg/derive"
	"src.tabl.sh/pkg/store/storedefs"
	"src.tabl.sh/pkg/table"
	"src.tabl.sh/pkg/token"
)

// Session is the state the commands of the shell work on: a book of tables,
// the engine deriving it and, optionally, a store to save books to.
type Session struct {
	Book   *table.Book
	Engine *derive.Engine
	// Store may be nil, in which case save, load and history fail.
	Store storedefs.Store

	out io.Writer
	// Current table. References without a qualifier resolve in it.
	cur token.ElementID
	// Interval of time series enabled without an explicit interval.
	interval time.Duration
	// Width of the terminal, or a non-positive value if unlimited.
	width func() int
}

// ErrNoTable is returned by commands that need a current table when there is
// none.
var ErrNoTable = errors.New("no current table; create one with table NAME ROWS COLS")

// ErrNoStore is returned by commands that need a database when there is none.
var ErrNoStore = errors.New("no database; start tabl with -db or set db in the configuration")

// NewSession creates a Session with an empty book, writing output to out.
func NewSession(out io.Writer, cfg *config.Config, st storedefs.Store) *Session {
	b := table.New()
	e := derive.NewEngine(b)
	e.SetAutoRecalculate(cfg.AutoRecalculate)
	return &Session{Book: b, Engine: e, Store: st,
		out: out, interval: time.Duration(cfg.Interval), width: func() int { return 0 }}
}

// Close stops the engine of the session.
func (s *Session) Close() { s.Engine.Close() }

// Apply creates the tables described in a configuration.
func (s *Session) Apply(tables []config.Table) error {
	for _, ct := range tables {
		t, err := s.Book.AddTable(ct.Name, ct.Rows, ct.Cols)
		if err != nil {
			return err
		}
		s.cur = t
		cols := s.Book.Columns(t)
		for i, l := range ct.Labels {
			if i < len(cols) {
				s.Book.SetLabel(cols[i], l)
			}
		}
		// Map order is random; apply formulas in a stable order.
		addrs := make([]string, 0, len(ct.Formulas))
		for addr := range ct.Formulas {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			if err := s.let(addr, ct.Formulas[addr]); err != nil {
				return fmt.Errorf("table %s: %w", ct.Name, err)
			}
		}
	}
	return nil
}

// Eval runs one command line. Empty lines and lines starting with # do
// nothing. The context bounds commands that wait.
func (s *Session) Eval(ctx context.Context, line string) error {
	name, rest := splitWord(line)
	if name == "" || strings.HasPrefix(name, "#") {
		return nil
	}
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q; try help", name)
	}
	return c.run(s, ctx, rest)
}

// Check checks a command line without running it: the command must exist and
// any formula in it must parse on its own.
func Check(line string) error {
	name, _ := splitWord(line)
	if name == "" || strings.HasPrefix(name, "#") {
		return nil
	}
	if _, ok := commands[name]; !ok {
		return fmt.Errorf("unknown command %q; try help", name)
	}
	if _, formula, ok := Formula(line); ok {
		return CheckFormula(formula)
	}
	return nil
}

// Formula returns the formula of a let or ts command line and its byte
// offset in the line.
func Formula(line string) (offset int, formula string, ok bool) {
	name, rest := splitWord(line)
	if name != "let" && name != "ts" {
		return 0, "", false
	}
	i := strings.IndexByte(rest, '=')
	if i < 0 {
		return 0, "", false
	}
	offset = len(line) - len(rest) + i + 1
	return offset, line[offset:], true
}

func splitWord(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// splitAssign splits "ADDR = VALUE".
func splitAssign(s string) (string, string, error) {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return "", "", fmt.Errorf("missing = in %q", strings.TrimSpace(s))
	}
	return strings.TrimSpace(s[:i]), s[i+1:], nil
}

// CommandNames returns the names of all commands, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandUsage returns the usage line and summary of a command.
func CommandUsage(name string) (usage, summary string, ok bool) {
	c, ok := commands[name]
	if !ok {
		return "", "", false
	}
	return c.usage, c.summary, true
}
