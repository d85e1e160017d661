// Package shell is the entry point for the terminal interface of tabl: a
// line-oriented command interpreter over a book of tables and the engine
// deriving it.
package shell

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"src.tabl.sh/pkg/config"
	"src.tabl.sh/pkg/logutil"
	"src.tabl.sh/pkg/prog"
	"src.tabl.sh/pkg/store"
	"src.tabl.sh/pkg/store/storedefs"
	"src.tabl.sh/pkg/sys"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram. It is always suitable.
type Program struct{}

func (p Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if f.CheckOnly {
		if len(args) == 0 {
			return prog.BadUsage("-checkonly requires a script")
		}
		return prog.Exit(checkScript(fds, args, f.CodeInArg, f.JSON))
	}
	if f.CodeInArg && len(args) == 0 {
		return prog.BadUsage("-c requires an argument")
	}

	cfg, err := loadConfig(f.Config)
	if err != nil {
		return err
	}
	if f.Log == "" && cfg.Log != "" {
		if err := logutil.SetOutputFile(cfg.Log); err != nil {
			fmt.Fprintln(fds[2], "Warning:", err)
		}
	}

	var st storedefs.Store
	if db := firstNonEmpty(f.DB, cfg.DB); db != "" {
		dbStore, err := store.NewStore(db)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot open database:", err)
		} else {
			defer dbStore.Close()
			st = dbStore
		}
	}

	sess := NewSession(fds[1], cfg, st)
	defer sess.Close()
	if err := sess.Apply(cfg.Tables); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	if len(args) > 0 {
		return prog.Exit(script(fds, sess, args, f.CodeInArg))
	}
	if sys.IsATTY(fds[1].Fd()) {
		sess.width = func() int { return sys.Width(fds[1]) }
	}
	interact(fds, sess, sys.IsATTY(fds[0].Fd()))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			logger.Println("cannot find configuration:", err)
		}
		if path == "" {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// evalLine runs one command line, cancelling it on an interrupt.
func evalLine(sess *Session, line string) (time.Duration, error) {
	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals...)
	defer stop()
	start := time.Now()
	err := sess.Eval(ctx, line)
	return time.Since(start), err
}
