package ops

import (
	"strings"

	"src.tabl.sh/pkg/token"
)

// String operators. Positions and lengths count runes, and positions are
// 1-based.

func strOps() []*Operator {
	str1 := func(f func(string) string) Impl {
		return func(_ *Call, args []token.Token) token.Token {
			return token.Str(f(args[0].Str))
		}
	}
	return []*Operator{
		infix("&", precConcat, Left, sig(Text, concat, Text, Text)),
		fn("concat", variadicSig(Text, concat, Text, Text)),
		fn("len", sig(Number, func(_ *Call, args []token.Token) token.Token {
			return token.Num(float64(len([]rune(args[0].Str))))
		}, Text)),
		fn("upper", sig(Text, str1(strings.ToUpper), Text)),
		fn("lower", sig(Text, str1(strings.ToLower), Text)),
		fn("trim", sig(Text, str1(strings.TrimSpace), Text)),
		fn("left", sig(Text, left, Text, Number), sig(Text, left, Text)),
		fn("right", sig(Text, right, Text, Number), sig(Text, right, Text)),
		fn("mid", sig(Text, mid, Text, Number, Number)),
		fn("contains", sig(Logical, func(_ *Call, args []token.Token) token.Token {
			return token.Bool(strings.Contains(args[0].Str, args[1].Str))
		}, Text, Text)),
	}
}

func concat(_ *Call, args []token.Token) token.Token {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.Str)
	}
	return token.Str(sb.String())
}

// charCount returns the optional character count argument, which defaults to 1.
func charCount(args []token.Token, i int) (int, bool) {
	if i >= len(args) {
		return 1, true
	}
	n := args[i].Num
	if n < 0 || n != float64(int(n)) {
		return 0, false
	}
	return int(n), true
}

func left(_ *Call, args []token.Token) token.Token {
	rs := []rune(args[0].Str)
	n, ok := charCount(args, 1)
	if !ok {
		return invalid("count must be a non-negative integer")
	}
	if n > len(rs) {
		n = len(rs)
	}
	return token.Str(string(rs[:n]))
}

func right(_ *Call, args []token.Token) token.Token {
	rs := []rune(args[0].Str)
	n, ok := charCount(args, 1)
	if !ok {
		return invalid("count must be a non-negative integer")
	}
	if n > len(rs) {
		n = len(rs)
	}
	return token.Str(string(rs[len(rs)-n:]))
}

func mid(_ *Call, args []token.Token) token.Token {
	rs := []rune(args[0].Str)
	start := args[1].Num
	n, ok := charCount(args, 2)
	if !ok || start < 1 || start != float64(int(start)) {
		return invalid("start must be a positive integer and count a non-negative integer")
	}
	i := int(start) - 1
	if i > len(rs) {
		i = len(rs)
	}
	j := i + n
	if j > len(rs) {
		j = len(rs)
	}
	return token.Str(string(rs[i:j]))
}
