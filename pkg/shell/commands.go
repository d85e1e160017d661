package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"src.tabl.sh/pkg/derive"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/store"
	"src.tabl.sh/pkg/table"
	"src.tabl.sh/pkg/token"
)

type command struct {
	usage   string
	summary string
	run     func(s *Session, ctx context.Context, args string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"table":    {"table NAME ROWS COLS", "create a table and make it current", (*Session).cmdTable},
		"use":      {"use NAME", "make a table current", (*Session).cmdUse},
		"tables":   {"tables", "list tables", (*Session).cmdTables},
		"append":   {"append row|col [N]", "append rows or columns to the current table", (*Session).cmdAppend},
		"label":    {"label ADDR LABEL", "label a row or column", (*Session).cmdLabel},
		"subset":   {"subset NAME ADDR; ADDR...", "define a subset of the current table", (*Session).cmdSubset},
		"delete":   {"delete ADDR", "delete a table, row, column or subset", (*Session).cmdDelete},
		"set":      {"set CELL = VALUE", "set the value of a cell", (*Session).cmdSet},
		"let":      {"let ADDR = FORMULA", "set the formula of a column, row or cell", (*Session).cmdLet},
		"ts":       {"ts COL = FORMULA", "set the time-series formula of a column", (*Session).cmdTs},
		"series":   {"series COL [INTERVAL]", "append a row every interval, timestamped in COL", (*Session).cmdSeries},
		"unset":    {"unset ADDR", "remove the formula of ADDR", (*Session).cmdUnset},
		"get":      {"get ADDR", "print the values of ADDR", (*Session).cmdGet},
		"show":     {"show [NAME]", "print a table", (*Session).cmdShow},
		"formulas": {"formulas", "list formulas", (*Session).cmdFormulas},
		"recalc":   {"recalc [ADDR]", "recalculate one formula or all of them", (*Session).cmdRecalc},
		"auto":     {"auto [on|off]", "show or set automatic recalculation", (*Session).cmdAuto},
		"tick":     {"tick", "append time-series rows now", (*Session).cmdTick},
		"wait":     {"wait [ADDR] [TIMEOUT]", "wait for pending values", (*Session).cmdWait},
		"save":     {"save NAME", "save the book to the database", (*Session).cmdSave},
		"load":     {"load NAME", "replace the book with one from the database", (*Session).cmdLoad},
		"books":    {"books", "list saved books", (*Session).cmdBooks},
		"forget":   {"forget NAME", "delete a saved book", (*Session).cmdForget},
		"history":  {"history [N]", "list the last N command lines", (*Session).cmdHistory},
		"ops":      {"ops [NAME]", "list operators, or show the signatures of one", (*Session).cmdOps},
		"help":     {"help", "list commands", (*Session).cmdHelp},
	}
}

func (s *Session) table() (token.ElementID, error) {
	if s.cur == 0 || s.Book.Kind(s.cur) != token.TableRef {
		return 0, ErrNoTable
	}
	return s.cur, nil
}

func (s *Session) cmdTable(_ context.Context, args string) error {
	f := strings.Fields(args)
	if len(f) != 3 {
		return errors.New("usage: table NAME ROWS COLS")
	}
	rows, err1 := strconv.Atoi(f[1])
	cols, err2 := strconv.Atoi(f[2])
	if err1 != nil || err2 != nil || rows < 0 || cols < 0 {
		return fmt.Errorf("invalid size %s x %s", f[1], f[2])
	}
	t, err := s.Book.AddTable(f[0], rows, cols)
	if err != nil {
		return err
	}
	s.cur = t
	return nil
}

func (s *Session) cmdUse(_ context.Context, args string) error {
	name := strings.TrimSpace(args)
	t, ok := s.Book.TableNamed(name)
	if !ok {
		return fmt.Errorf("table %q: %w", name, table.ErrNoSuchElement)
	}
	s.cur = t
	return nil
}

func (s *Session) cmdTables(context.Context, string) error {
	for _, t := range s.Book.Tables() {
		mark := " "
		if t == s.cur {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %s %dx%d\n", mark, s.Book.Label(t),
			len(s.Book.Rows(t)), len(s.Book.Columns(t)))
	}
	return nil
}

func (s *Session) cmdAppend(_ context.Context, args string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	f := strings.Fields(args)
	if len(f) == 0 || len(f) > 2 {
		return errors.New("usage: append row|col [N]")
	}
	n := 1
	if len(f) == 2 {
		if n, err = strconv.Atoi(f[1]); err != nil || n < 1 {
			return fmt.Errorf("invalid count %q", f[1])
		}
	}
	add := s.Book.AppendRow
	switch f[0] {
	case "row":
	case "col", "column":
		add = s.Book.AppendColumn
	default:
		return fmt.Errorf("cannot append %q", f[0])
	}
	var added []token.ElementID
	for i := 0; i < n; i++ {
		id, err := add(t)
		if err != nil {
			return err
		}
		added = append(added, id)
	}
	s.Engine.ValueChanged(added...)
	return nil
}

func (s *Session) cmdLabel(_ context.Context, args string) error {
	i := strings.LastIndexAny(args, " \t")
	if i < 0 {
		return errors.New("usage: label ADDR LABEL")
	}
	ref, err := s.resolve(args[:i])
	if err != nil {
		return err
	}
	return s.Book.SetLabel(ref.Ref.Elem, strings.TrimSpace(args[i+1:]))
}

func (s *Session) cmdSubset(_ context.Context, args string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	name, rest := splitWord(args)
	if name == "" {
		return errors.New("usage: subset NAME ADDR; ADDR...")
	}
	var members []token.ElementID
	for _, addr := range strings.Split(rest, ";") {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		ref, err := s.resolve(addr)
		if err != nil {
			return err
		}
		members = append(members, ref.Ref.Elem)
	}
	_, err = s.Book.AddSubset(t, name, members...)
	return err
}

func (s *Session) cmdDelete(_ context.Context, args string) error {
	ref, err := s.resolve(args)
	if err != nil {
		return err
	}
	id := ref.Ref.Elem
	if err := s.Book.Delete(id); err != nil {
		return err
	}
	s.Engine.ElementDeleted(id)
	if id == s.cur {
		s.cur = 0
		if ts := s.Book.Tables(); len(ts) > 0 {
			s.cur = ts[0]
		}
	}
	return nil
}

func (s *Session) cmdSet(_ context.Context, args string) error {
	addr, value, err := splitAssign(args)
	if err != nil {
		return err
	}
	ref, err := s.resolve(addr)
	if err != nil {
		return err
	}
	v, err := literal(value)
	if err != nil {
		return err
	}
	return s.Engine.SetValue(ref.Ref.Elem, v)
}

// literal parses the value in a set command: a number, true or false, a
// quoted string, nothing at all, or any other text taken as a string.
func literal(text string) (token.Token, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return token.Token{}, nil
	case strings.EqualFold(text, "true"):
		return token.Bool(true), nil
	case strings.EqualFold(text, "false"):
		return token.Bool(false), nil
	case text[0] == '"' || text[0] == '\'':
		s, err := parse.Parse(parse.Source{Name: "[value]", Code: text}, &looseResolver{reg: checkRegistry})
		if err != nil {
			return token.Token{}, err
		}
		if len(s) != 1 || s[0].Kind != token.String {
			return token.Token{}, fmt.Errorf("%s is not a single string", text)
		}
		return token.Str(s[0].Str), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return token.FromFloat(f), nil
	}
	return token.Str(text), nil
}

func (s *Session) let(addr, formula string) error {
	ref, err := s.resolve(addr)
	if err != nil {
		return err
	}
	_, err = s.Engine.SetDerivation(ref.Ref.Elem, strings.TrimSpace(formula))
	return err
}

func (s *Session) cmdLet(_ context.Context, args string) error {
	addr, formula, err := splitAssign(args)
	if err != nil {
		return err
	}
	return s.let(addr, formula)
}

func (s *Session) cmdTs(_ context.Context, args string) error {
	addr, formula, err := splitAssign(args)
	if err != nil {
		return err
	}
	ref, err := s.resolve(addr)
	if err != nil {
		return err
	}
	_, err = s.Engine.SetTimeSeries(ref.Ref.Elem, strings.TrimSpace(formula))
	return err
}

func (s *Session) cmdSeries(_ context.Context, args string) error {
	addr, interval := splitDuration(args, s.interval)
	ref, err := s.resolve(addr)
	if err != nil {
		return err
	}
	return s.Engine.EnableTimeSeries(ref.Ref.Elem, interval)
}

// splitDuration splits an optional duration off the end of args.
func splitDuration(args string, def time.Duration) (string, time.Duration) {
	args = strings.TrimSpace(args)
	i := strings.LastIndexAny(args, " \t")
	if d, err := time.ParseDuration(args[i+1:]); err == nil {
		return strings.TrimSpace(args[:i+1]), d
	}
	return args, def
}

func (s *Session) cmdUnset(_ context.Context, args string) error {
	ref, err := s.resolve(args)
	if err != nil {
		return err
	}
	id := ref.Ref.Elem
	d, ok := s.Engine.Lookup(id)
	switch {
	case !ok:
		return fmt.Errorf("%s: %w", s.describe(id), derive.ErrNoDerivation)
	case d.IsTimeSeries():
		s.Engine.ClearTimeSeries(id)
	default:
		s.Engine.ClearDerivation(id)
	}
	return nil
}

func (s *Session) cmdGet(_ context.Context, args string) error {
	ref, err := s.resolve(args)
	if err != nil {
		return err
	}
	var vals []string
	for _, cell := range s.Book.Members(ref.Ref.Elem) {
		vals = append(vals, s.Book.Value(cell).String())
	}
	fmt.Fprintln(s.out, strings.Join(vals, "\t"))
	return nil
}

func (s *Session) cmdFormulas(context.Context, string) error {
	for _, d := range s.Engine.Derivations() {
		suffix := ""
		if d.IsTimeSeries() {
			suffix = " (time series)"
		}
		fmt.Fprintf(s.out, "%s = %s%s\n", s.describe(d.Target()), d.Infix(), suffix)
	}
	return nil
}

func (s *Session) cmdRecalc(_ context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		s.Engine.RecalculateAll()
		return nil
	}
	ref, err := s.resolve(args)
	if err != nil {
		return err
	}
	return s.Engine.Recalculate(ref.Ref.Elem)
}

func (s *Session) cmdAuto(_ context.Context, args string) error {
	switch strings.TrimSpace(args) {
	case "":
		if s.Engine.AutoRecalculate() {
			fmt.Fprintln(s.out, "on")
		} else {
			fmt.Fprintln(s.out, "off")
		}
	case "on":
		s.Engine.SetAutoRecalculate(true)
	case "off":
		s.Engine.SetAutoRecalculate(false)
	default:
		return errors.New("usage: auto [on|off]")
	}
	return nil
}

func (s *Session) cmdTick(context.Context, string) error {
	s.Engine.Tick()
	return nil
}

const defaultWaitTimeout = 10 * time.Second

func (s *Session) cmdWait(ctx context.Context, args string) error {
	args, timeout := splitDuration(args, defaultWaitTimeout)
	var targets []token.ElementID
	if args == "" {
		targets = s.Book.Tables()
	} else {
		ref, err := s.resolve(args)
		if err != nil {
			return err
		}
		targets = []token.ElementID{ref.Ref.Elem}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for _, t := range targets {
		if err := s.Engine.WaitPending(ctx, t); err != nil {
			return fmt.Errorf("waiting for %s: %w", s.describe(t), err)
		}
	}
	return nil
}

func (s *Session) cmdSave(_ context.Context, args string) error {
	if s.Store == nil {
		return ErrNoStore
	}
	name := strings.TrimSpace(args)
	if name == "" {
		return errors.New("usage: save NAME")
	}
	return s.Store.SaveBook(name, store.Capture(s.Engine, s.Book))
}

func (s *Session) cmdLoad(_ context.Context, args string) error {
	if s.Store == nil {
		return ErrNoStore
	}
	snap, err := s.Store.Book(strings.TrimSpace(args))
	if err != nil {
		return err
	}
	b := table.New()
	e := derive.NewEngine(b)
	e.SetAutoRecalculate(s.Engine.AutoRecalculate())
	err = store.Restore(e, b, snap)
	s.Engine.Close()
	s.Book, s.Engine, s.cur = b, e, 0
	if ts := b.Tables(); len(ts) > 0 {
		s.cur = ts[0]
	}
	return err
}

func (s *Session) cmdBooks(context.Context, string) error {
	if s.Store == nil {
		return ErrNoStore
	}
	names, err := s.Store.Books()
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
	return err
}

func (s *Session) cmdForget(_ context.Context, args string) error {
	if s.Store == nil {
		return ErrNoStore
	}
	return s.Store.DelBook(strings.TrimSpace(args))
}

func (s *Session) cmdHistory(_ context.Context, args string) error {
	if s.Store == nil {
		return ErrNoStore
	}
	n := 10
	if args = strings.TrimSpace(args); args != "" {
		var err error
		if n, err = strconv.Atoi(args); err != nil || n < 1 {
			return fmt.Errorf("invalid count %q", args)
		}
	}
	next, err := s.Store.NextCmdSeq()
	if err != nil {
		return err
	}
	cmds, err := s.Store.CmdsWithSeq(max(next-n, 0), next)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		fmt.Fprintf(s.out, "%5d  %s\n", cmd.Seq, cmd.Text)
	}
	return nil
}

func (s *Session) cmdOps(_ context.Context, args string) error {
	reg := s.Engine.Registry()
	if name := strings.TrimSpace(args); name != "" {
		op, ok := reg.Lookup(name)
		if !ok {
			op, ok = reg.LookupPrefix(name)
		}
		if !ok {
			return fmt.Errorf("no operator %q", name)
		}
		for _, sig := range op.Signatures {
			fmt.Fprintln(s.out, ops.FormatSignature(op.Label, sig))
		}
		return nil
	}
	fmt.Fprintln(s.out, strings.Join(reg.Labels(), " "))
	return nil
}

func (s *Session) cmdHelp(context.Context, string) error {
	for _, name := range CommandNames() {
		c := commands[name]
		fmt.Fprintf(s.out, "%-28s %s\n", c.usage, c.summary)
	}
	return nil
}

// history records a command line in the store, if there is one.
func (s *Session) history(line string) {
	if s.Store == nil || strings.TrimSpace(line) == "" {
		return
	}
	if _, err := s.Store.AddCmd(line); err != nil {
		logger.Println("cannot add command to history:", err)
	}
}
