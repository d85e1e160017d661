package ops

import (
	"context"
	"time"

	"src.tabl.sh/pkg/token"
)

func asyncOps() []*Operator {
	return []*Operator{
		fn("delay", Signature{Params: []Type{Number, Any}, Result: Any, Async: delay}),
	}
}

// delay(ms, value) resolves to value after ms milliseconds.
func delay(c *Call, args []token.Token, resolve func(token.Token)) {
	d := time.Duration(args[0].Num * float64(time.Millisecond))
	if d < 0 {
		resolve(invalid("negative delay"))
		return
	}
	v := args[1]
	t := time.AfterFunc(d, func() { resolve(v) })
	if c.Context != nil {
		context.AfterFunc(c.Context, func() { t.Stop() })
	}
}

// Blocking adapts a blocking function into an AsyncImpl. The function runs on
// its own goroutine and its result is delivered through resolve; ctx is
// cancelled when the evaluation is abandoned, after which the result is
// discarded.
//
// Operators backed by network lookups are typically built this way:
//
//	reg.Register(&ops.Operator{Label: "quote", Signatures: []ops.Signature{{
//		Params: []ops.Type{ops.Text}, Result: ops.Number,
//		Async: ops.Blocking(fetchQuote),
//	}}})
func Blocking(f func(ctx context.Context, args []token.Token) token.Token) AsyncImpl {
	return func(c *Call, args []token.Token, resolve func(token.Token)) {
		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}
		args = append([]token.Token(nil), args...)
		go func() {
			result := f(ctx, args)
			if ctx.Err() == nil {
				resolve(result)
			}
		}()
	}
}
