package ops

import (
	"math"
	"time"

	"src.tabl.sh/pkg/token"
)

// Date and time functions. Times are numbers of seconds since the Unix
// epoch and are interpreted in UTC.

func timeOps() []*Operator {
	part := func(f func(time.Time) int) Impl {
		return func(_ *Call, args []token.Token) token.Token {
			return token.Num(float64(f(FromUnix(args[0].Num))))
		}
	}
	return []*Operator{
		fn("now", sig(Number, func(c *Call, _ []token.Token) token.Token {
			return token.Num(Unix(c.now()))
		})),
		fn("today", sig(Number, func(c *Call, _ []token.Token) token.Token {
			return token.Num(Unix(c.now().UTC().Truncate(24 * time.Hour)))
		})),
		fn("year", sig(Number, part(time.Time.Year), Number)),
		fn("month", sig(Number, part(func(t time.Time) int { return int(t.Month()) }), Number)),
		fn("day", sig(Number, part(time.Time.Day), Number)),
		fn("hour", sig(Number, part(time.Time.Hour), Number)),
		fn("minute", sig(Number, part(time.Time.Minute), Number)),
		fn("second", sig(Number, part(time.Time.Second), Number)),
		fn("date", sig(Number, func(_ *Call, args []token.Token) token.Token {
			t := time.Date(int(args[0].Num), time.Month(int(args[1].Num)), int(args[2].Num),
				0, 0, 0, 0, time.UTC)
			return token.Num(Unix(t))
		}, Number, Number, Number)),
	}
}

// Unix converts a time to the number representation used by formulas.
func Unix(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// FromUnix is the inverse of Unix.
func FromUnix(f float64) time.Time {
	sec := math.Floor(f)
	return time.Unix(int64(sec), int64((f-sec)*float64(time.Second))).UTC()
}
