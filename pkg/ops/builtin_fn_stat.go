package ops

import (
	"math"
	"sort"

	"src.tabl.sh/pkg/stats"
	"src.tabl.sh/pkg/token"
)

// Aggregates and transforms. Both consume whole elements through reference
// arguments; scalar arguments are rejected when the formula is converted.
// Non-numeric values in the referenced elements are skipped, while error and
// pending values poison the result.

func statOps() []*Operator {
	refs := func(k stats.Kind) Signature {
		return variadicSig(Number, aggregate(k), Reference, Reference)
	}
	return []*Operator{
		fn("sum", refs(stats.Sum)),
		fn("count", refs(stats.Count)),
		alias(fn("mean", refs(stats.Mean)), "avg", "average"),
		fn("stdev", refs(stats.StdDev)),
		fn("stdevp", refs(stats.PopulationStdDev)),
		fn("var", refs(stats.Variance)),
		fn("varp", refs(stats.PopulationVariance)),
		fn("range", refs(stats.Range)),
		fn("min", refs(stats.Min), variadicSig(Number, extreme(math.Min), Number, Number)),
		fn("max", refs(stats.Max), variadicSig(Number, extreme(math.Max), Number, Number)),
		fn("median", variadicSig(Number, median, Reference, Reference)),
		fn("slope", sig(Number, regression(stats.Slope), Reference, Reference)),
		fn("intercept", sig(Number, regression(stats.Intercept), Reference, Reference)),
		alias(fn("correl", sig(Number, regression(stats.Correlation), Reference, Reference)), "correlation"),
		fn("rsq", sig(Number, regression(stats.RSquared), Reference, Reference)),
		fn("normalize",
			sig(Number, transform(zscore), Reference),
			sig(Number, transform(zscore), Number, Reference)),
		fn("rank",
			sig(Number, transform(rank), Reference),
			sig(Number, transform(rank), Number, Reference)),
	}
}

// numbers calls f with every numeric value covered by refs. If an error or
// pending value is found, it is returned with ok set to false.
func numbers(c *Call, refs []token.Token, f func(float64)) (poison token.Token, ok bool) {
	for _, ref := range refs {
		for _, v := range c.Env.Values(ref) {
			switch v.Kind {
			case token.Error, token.Pending:
				return v, false
			case token.Numeric:
				f(v.Num)
			}
		}
	}
	return token.Token{}, true
}

func aggregate(k stats.Kind) Impl {
	return func(c *Call, args []token.Token) token.Token {
		var acc stats.Accumulator
		if poison, ok := numbers(c, args, func(x float64) { acc.Enter(x) }); !ok {
			return poison
		}
		if acc.N() == 0 && k != stats.Count && k != stats.Sum {
			return token.Err(token.NotAvailable, "no numeric values")
		}
		return token.FromFloat(acc.Calc(k))
	}
}

func extreme(pick func(a, b float64) float64) Impl {
	return func(_ *Call, args []token.Token) token.Token {
		x := args[0].Num
		for _, a := range args[1:] {
			x = pick(x, a.Num)
		}
		return token.FromFloat(x)
	}
}

func median(c *Call, args []token.Token) token.Token {
	var xs []float64
	if poison, ok := numbers(c, args, func(x float64) { xs = append(xs, x) }); !ok {
		return poison
	}
	if len(xs) == 0 {
		return token.Err(token.NotAvailable, "no numeric values")
	}
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return token.Num(xs[n/2])
	}
	return token.Num((xs[n/2-1] + xs[n/2]) / 2)
}

// regression computes a two-variable statistic; the first argument holds the
// y values and the second the x values. Values are paired by position and a
// pair is skipped unless both values are numbers.
func regression(k stats.Kind) Impl {
	return func(c *Call, args []token.Token) token.Token {
		ys := c.Env.Values(args[0])
		xs := c.Env.Values(args[1])
		var acc stats.Accumulator2
		for i := 0; i < len(ys) && i < len(xs); i++ {
			y, x := ys[i], xs[i]
			for _, v := range []token.Token{y, x} {
				if v.IsError() || v.IsPending() {
					return v
				}
			}
			if y.Kind == token.Numeric && x.Kind == token.Numeric {
				acc.Enter(x.Num, y.Num)
			}
		}
		return token.FromFloat(acc.Calc(k))
	}
}

// transform adapts a function of one value and the values of an element. In
// the one-argument form, the value is the element's own value at the acting
// slot.
func transform(f func(x float64, acc *stats.Accumulator, xs []float64) token.Token) Impl {
	return func(c *Call, args []token.Token) token.Token {
		ref := args[len(args)-1]
		var x token.Token
		if len(args) == 2 {
			x = args[0]
		} else if x = c.Env.Deref(ref); x.Kind != token.Empty {
			x = Coerce(Number, x)
		}
		switch {
		case x.IsError() || x.IsPending():
			return x
		case x.Kind != token.Numeric:
			return token.Err(token.NotAvailable, "no value at the acting slot")
		}
		var acc stats.Accumulator
		var xs []float64
		if poison, ok := numbers(c, []token.Token{ref}, func(v float64) {
			acc.Enter(v)
			xs = append(xs, v)
		}); !ok {
			return poison
		}
		return f(x.Num, &acc, xs)
	}
}

// zscore returns the standard score of x within the element.
func zscore(x float64, acc *stats.Accumulator, _ []float64) token.Token {
	sd := acc.Calc(stats.PopulationStdDev)
	if sd == 0 {
		return token.Err(token.DivideByZero, "values have no spread")
	}
	return token.FromFloat((x - acc.Calc(stats.Mean)) / sd)
}

// rank returns the 1-based descending rank of x within the element.
func rank(x float64, _ *stats.Accumulator, xs []float64) token.Token {
	r := 1
	for _, v := range xs {
		if v > x {
			r++
		}
	}
	return token.Num(float64(r))
}
