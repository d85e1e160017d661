package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"src.tabl.sh/pkg/diag"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/strutil"
)

// script runs the commands of a script file, or of the first argument if cmd
// is true. It stops at the first failing command.
func script(fds [3]*os.File, sess *Session, args []string, cmd bool) int {
	name, code, err := readScript(args, cmd)
	if err != nil {
		fmt.Fprintln(fds[2], err)
		return 2
	}
	for i, line := range strings.Split(code, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if _, err := evalLine(sess, line); err != nil {
			fmt.Fprintf(fds[2], "%s:%d: ", name, i+1)
			diag.ShowError(fds[2], err)
			return 2
		}
	}
	return 0
}

func readScript(args []string, cmd bool) (name, code string, err error) {
	arg0 := args[0]
	if cmd {
		return "code from -c", arg0, nil
	}
	name, err = filepath.Abs(arg0)
	if err != nil {
		return "", "", fmt.Errorf("cannot get full path of script %q: %v", arg0, err)
	}
	code, err = readFileUTF8(name)
	if err != nil {
		return "", "", fmt.Errorf("cannot read script %q: %v", name, err)
	}
	return name, code, nil
}

var errSourceNotUTF8 = errors.New("source is not UTF-8")

func readFileUTF8(fname string) (string, error) {
	bytes, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", errSourceNotUTF8
	}
	return string(bytes), nil
}

// An auxiliary struct for converting check errors to JSON. Start and End are
// byte offsets in the whole script.
type errorInJSON struct {
	FileName string `json:"fileName"`
	Line     int    `json:"line"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
}

// checkScript checks every line of a script with Check, without running it.
func checkScript(fds [3]*os.File, args []string, cmd, jsonOut bool) int {
	name, code, err := readScript(args, cmd)
	if err != nil {
		fmt.Fprintln(fds[2], err)
		return 2
	}
	var errs []errorInJSON
	lineStart := 0
	for i, line := range strings.Split(code, "\n") {
		if err := Check(strings.TrimSuffix(line, "\r")); err != nil {
			e := errorInJSON{
				FileName: name, Line: i + 1,
				Start: lineStart, End: lineStart + len(line), Message: err.Error()}
			var perr *parse.Error
			if errors.As(err, &perr) {
				offset, _, _ := Formula(line)
				e.Start = lineStart + offset + perr.Context.From
				e.End = lineStart + offset + perr.Context.To
				e.Message = perr.Message
				e.Code = strutil.CamelToDashed(perr.Code.String())
			}
			errs = append(errs, e)
			if !jsonOut {
				fmt.Fprintf(fds[2], "%s:%d: ", name, i+1)
				diag.ShowError(fds[2], err)
			}
		}
		lineStart += len(line) + 1
	}
	if jsonOut {
		fmt.Fprintf(fds[1], "%s\n", errorsToJSON(errs))
	}
	if len(errs) > 0 {
		return 2
	}
	return 0
}

func errorsToJSON(errs []errorInJSON) []byte {
	if errs == nil {
		errs = []errorInJSON{}
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return []byte(`[{"message":"Unable to convert the errors to JSON"}]`)
	}
	return data
}
