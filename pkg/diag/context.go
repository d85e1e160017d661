package diag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Context is a range of text in a formula. It is used by errors that can be
// pinned to a part of the source.
type Context struct {
	Name   string
	Source string
	Ranging
}

// NewContext creates a new Context.
func NewContext(name, source string, r Ranger) *Context {
	return &Context{name, source, r.Range()}
}

// Variables controlling the style of the culprit.
var (
	culpritStart       = "\033[1;4m"
	culpritEnd         = "\033[m"
	culpritPlaceHolder = "^"
)

// Column returns the 1-based column, counted in codepoints, where the range
// starts.
func (c *Context) Column() int {
	if c.From < 0 || c.From > len(c.Source) {
		return 0
	}
	return utf8.RuneCountInString(c.Source[:c.From]) + 1
}

// Describe returns "name:column", the short position used in error messages.
func (c *Context) Describe() string {
	if err := c.checkPosition(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s:%d", c.Name, c.Column())
}

// Show returns the position followed by the source with the culprit
// highlighted.
func (c *Context) Show() string {
	if err := c.checkPosition(); err != nil {
		return err.Error()
	}
	culprit := c.Source[c.From:c.To]
	if culprit == "" {
		culprit = culpritPlaceHolder
	}
	var sb strings.Builder
	sb.WriteString(c.Describe())
	sb.WriteString(": ")
	sb.WriteString(c.Source[:c.From])
	sb.WriteString(culpritStart)
	sb.WriteString(culprit)
	sb.WriteString(culpritEnd)
	sb.WriteString(c.Source[c.To:])
	return sb.String()
}

func (c *Context) checkPosition() error {
	if c.From == -1 {
		return fmt.Errorf("%s, unknown position", c.Name)
	} else if c.From < 0 || c.To > len(c.Source) || c.From > c.To {
		return fmt.Errorf("%s, invalid position %d-%d", c.Name, c.From, c.To)
	}
	return nil
}
