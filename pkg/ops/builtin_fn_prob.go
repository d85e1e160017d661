package ops

import (
	"math"
	"math/rand"

	"src.tabl.sh/pkg/token"
)

// Probability distributions and random numbers.

func probOps() []*Operator {
	return []*Operator{
		fn("normdist", sig(Number, normDist, Number, Number, Number, Logical)),
		fn("norminv", sig(Number, normInv, Number, Number, Number)),
		fn("binomdist", sig(Number, binomDist, Number, Number, Number, Logical)),
		fn("poisson", sig(Number, poisson, Number, Number, Logical)),
		fn("rand", sig(Number, func(*Call, []token.Token) token.Token {
			return token.Num(rand.Float64())
		})),
		fn("randbetween", sig(Number, randBetween, Number, Number)),
	}
}

// normDist(x, mean, sd, cumulative)
func normDist(_ *Call, args []token.Token) token.Token {
	x, mean, sd := args[0].Num, args[1].Num, args[2].Num
	if sd <= 0 {
		return invalid("standard deviation must be positive")
	}
	z := (x - mean) / sd
	if args[3].Bool {
		return token.FromFloat(0.5 * math.Erfc(-z/math.Sqrt2))
	}
	return token.FromFloat(math.Exp(-z*z/2) / (sd * math.Sqrt(2*math.Pi)))
}

// normInv(p, mean, sd)
func normInv(_ *Call, args []token.Token) token.Token {
	p, mean, sd := args[0].Num, args[1].Num, args[2].Num
	if p <= 0 || p >= 1 {
		return invalid("probability must be between 0 and 1")
	}
	if sd <= 0 {
		return invalid("standard deviation must be positive")
	}
	return token.FromFloat(mean + sd*math.Sqrt2*math.Erfinv(2*p-1))
}

// binomDist(k, n, p, cumulative)
func binomDist(_ *Call, args []token.Token) token.Token {
	k, n, p := math.Trunc(args[0].Num), math.Trunc(args[1].Num), args[2].Num
	if k < 0 || n < 0 || k > n || p < 0 || p > 1 {
		return invalid("need 0 <= k <= n and 0 <= p <= 1")
	}
	pmf := func(i float64) float64 {
		return math.Exp(lnChoose(n, i) + i*math.Log(p) + (n-i)*math.Log1p(-p))
	}
	if p == 0 || p == 1 {
		// The logarithms above are infinite at the bounds.
		pmf = func(i float64) float64 {
			if (p == 0 && i == 0) || (p == 1 && i == n) {
				return 1
			}
			return 0
		}
	}
	if !args[3].Bool {
		return token.FromFloat(pmf(k))
	}
	sum := 0.0
	for i := 0.0; i <= k; i++ {
		sum += pmf(i)
	}
	return token.FromFloat(math.Min(sum, 1))
}

// poisson(k, lambda, cumulative)
func poisson(_ *Call, args []token.Token) token.Token {
	k, lambda := math.Trunc(args[0].Num), args[1].Num
	if k < 0 || lambda < 0 {
		return invalid("k and lambda must not be negative")
	}
	pmf := func(i float64) float64 {
		if lambda == 0 {
			if i == 0 {
				return 1
			}
			return 0
		}
		lg, _ := math.Lgamma(i + 1)
		return math.Exp(i*math.Log(lambda) - lambda - lg)
	}
	if !args[2].Bool {
		return token.FromFloat(pmf(k))
	}
	sum := 0.0
	for i := 0.0; i <= k; i++ {
		sum += pmf(i)
	}
	return token.FromFloat(math.Min(sum, 1))
}

func lnChoose(n, k float64) float64 {
	a, _ := math.Lgamma(n + 1)
	b, _ := math.Lgamma(k + 1)
	c, _ := math.Lgamma(n - k + 1)
	return a - b - c
}

// randBetween(lo, hi) returns a random integer in [ceil(lo), floor(hi)].
func randBetween(_ *Call, args []token.Token) token.Token {
	lo, hi := math.Ceil(args[0].Num), math.Floor(args[1].Num)
	if lo > hi {
		return invalid("empty range")
	}
	return token.Num(lo + float64(rand.Int63n(int64(hi-lo)+1)))
}
