package token

import (
	"strconv"
	"strings"
)

// Stack is an ordered token sequence. The parser produces a Stack in infix
// order; the postfix generator produces one in postfix order.
type Stack []Token

// Push appends t.
func (s *Stack) Push(t Token) { *s = append(*s, t) }

// Pop removes and returns the last token. It panics on an empty stack.
func (s *Stack) Pop() Token {
	t := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return t
}

// PopN removes the last n tokens and returns them in their original order.
// The returned slice does not alias s.
func (s *Stack) PopN(n int) []Token {
	top := len(*s) - n
	out := make([]Token, n)
	copy(out, (*s)[top:])
	*s = (*s)[:top]
	return out
}

// Peek returns the last token and whether the stack is non-empty.
func (s Stack) Peek() (Token, bool) {
	if len(s) == 0 {
		return Token{}, false
	}
	return s[len(s)-1], true
}

// Clone returns a copy of s that does not share storage.
func (s Stack) Clone() Stack {
	if s == nil {
		return nil
	}
	c := make(Stack, len(s))
	copy(c, s)
	return c
}

// Refs returns the reference tokens in s, in order of appearance.
func (s Stack) Refs() []Token {
	var refs []Token
	for _, t := range s {
		if t.Kind.IsRef() {
			refs = append(refs, t)
		}
	}
	return refs
}

// Equal reports whether s and o contain equal tokens, ignoring positions.
func (s Stack) Equal(o Stack) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// String joins the tokens with spaces; for a postfix stack, operator tokens
// are shown with their argument count, as in "+/2".
func (s Stack) String() string {
	var sb strings.Builder
	for i, t := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch t.Kind {
		case String:
			sb.WriteString(Quote(t.Str))
		case Operator:
			sb.WriteString(t.Str)
			if t.Argc > 0 {
				sb.WriteByte('/')
				sb.WriteString(strconv.Itoa(t.Argc))
			}
		default:
			sb.WriteString(t.String())
		}
	}
	return sb.String()
}
