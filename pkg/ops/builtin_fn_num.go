package ops

import "math"

// Math functions. Domain errors surface as NaN or Infinity error tokens
// through token.FromFloat.

func numOps() []*Operator {
	return []*Operator{
		fn("abs", sig(Number, num1(math.Abs), Number)),
		fn("sqrt", sig(Number, num1(math.Sqrt), Number)),
		fn("exp", sig(Number, num1(math.Exp), Number)),
		fn("ln", sig(Number, num1(math.Log), Number)),
		fn("log",
			sig(Number, num1(math.Log10), Number),
			sig(Number, num2(func(x, base float64) float64 { return math.Log(x) / math.Log(base) }), Number, Number)),
		fn("log10", sig(Number, num1(math.Log10), Number)),
		fn("sin", sig(Number, num1(math.Sin), Number)),
		fn("cos", sig(Number, num1(math.Cos), Number)),
		fn("tan", sig(Number, num1(math.Tan), Number)),
		fn("asin", sig(Number, num1(math.Asin), Number)),
		fn("acos", sig(Number, num1(math.Acos), Number)),
		fn("atan", sig(Number, num1(math.Atan), Number)),
		fn("atan2", sig(Number, num2(math.Atan2), Number, Number)),
		fn("floor", sig(Number, num1(math.Floor), Number)),
		fn("ceil", sig(Number, num1(math.Ceil), Number)),
		fn("round",
			sig(Number, num1(math.Round), Number),
			sig(Number, num2(roundTo), Number, Number)),
		fn("trunc", sig(Number, num1(math.Trunc), Number)),
		fn("sign", sig(Number, num1(sign), Number)),
		fn("mod", sig(Number, modulo, Number, Number)),
		fn("pow", sig(Number, num2(math.Pow), Number, Number)),
		fn("pi", sig(Number, constant(math.Pi))),
		fn("e", sig(Number, constant(math.E))),
	}
}

// roundTo rounds x to the given number of decimal places, which may be
// negative.
func roundTo(x, places float64) float64 {
	p := math.Pow(10, math.Trunc(places))
	return math.Round(x*p) / p
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
