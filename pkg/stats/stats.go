// Package stats implements streaming statistics accumulators.
//
// Entering a value is O(1) and so is computing any statistic: only running
// sums are kept, so results do not depend on the order of entry.
package stats

import "math"

// Kind is the kind of statistic to compute.
type Kind uint8

// Statistics. The two-variable ones (Slope, Intercept, Correlation,
// RSquared) are only available from an Accumulator2.
const (
	Count Kind = iota
	Sum
	Mean
	Min
	Max
	Range
	// Variance and StdDev are sample statistics, with Bessel's correction.
	Variance
	StdDev
	PopulationVariance
	PopulationStdDev
	Slope
	Intercept
	Correlation
	RSquared
)

var kindNames = [...]string{
	Count:              "count",
	Sum:                "sum",
	Mean:               "mean",
	Min:                "min",
	Max:                "max",
	Range:              "range",
	Variance:           "variance",
	StdDev:             "stdev",
	PopulationVariance: "population variance",
	PopulationStdDev:   "population stdev",
	Slope:              "slope",
	Intercept:          "intercept",
	Correlation:        "correlation",
	RSquared:           "r-squared",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Accumulator keeps running sums of one variable. The zero value is ready to
// use.
type Accumulator struct {
	n          int
	sumX       float64
	sumX2      float64
	minX, maxX float64
}

// Enter adds values.
func (a *Accumulator) Enter(xs ...float64) {
	for _, x := range xs {
		if a.n == 0 || x < a.minX {
			a.minX = x
		}
		if a.n == 0 || x > a.maxX {
			a.maxX = x
		}
		a.n++
		a.sumX += x
		a.sumX2 += x * x
	}
}

// N returns the number of values entered.
func (a *Accumulator) N() int { return a.n }

// Reset zeroes the accumulator.
func (a *Accumulator) Reset() { *a = Accumulator{} }

// Calc computes a statistic. It returns NaN when the statistic is undefined
// for the values entered so far, such as the mean of nothing or the sample
// variance of a single value.
func (a *Accumulator) Calc(k Kind) float64 {
	n := float64(a.n)
	switch k {
	case Count:
		return n
	case Sum:
		return a.sumX
	}
	if a.n == 0 {
		return math.NaN()
	}
	mean := a.sumX / n
	switch k {
	case Mean:
		return mean
	case Min:
		return a.minX
	case Max:
		return a.maxX
	case Range:
		return a.maxX - a.minX
	case PopulationVariance:
		return nonNegative(a.sumX2/n - mean*mean)
	case PopulationStdDev:
		return math.Sqrt(a.Calc(PopulationVariance))
	case Variance:
		if a.n < 2 {
			return math.NaN()
		}
		return nonNegative((a.sumX2 - n*mean*mean) / (n - 1))
	case StdDev:
		return math.Sqrt(a.Calc(Variance))
	}
	return math.NaN()
}

// Accumulator2 keeps running sums of paired values. The zero value is ready
// to use.
type Accumulator2 struct {
	x, y  Accumulator
	sumXY float64
}

// Enter adds one (x, y) pair.
func (a *Accumulator2) Enter(x, y float64) {
	a.x.Enter(x)
	a.y.Enter(y)
	a.sumXY += x * y
}

// N returns the number of pairs entered.
func (a *Accumulator2) N() int { return a.x.n }

// X returns the accumulator of the x values.
func (a *Accumulator2) X() *Accumulator { return &a.x }

// Y returns the accumulator of the y values.
func (a *Accumulator2) Y() *Accumulator { return &a.y }

// Reset zeroes the accumulator.
func (a *Accumulator2) Reset() { *a = Accumulator2{} }

// Calc computes a two-variable statistic by least squares; one-variable
// kinds are computed over the y values.
func (a *Accumulator2) Calc(k Kind) float64 {
	n := float64(a.x.n)
	sxx := a.x.sumX2 - a.x.sumX*a.x.sumX/n
	syy := a.y.sumX2 - a.y.sumX*a.y.sumX/n
	sxy := a.sumXY - a.x.sumX*a.y.sumX/n
	switch k {
	case Slope:
		if a.x.n < 2 || sxx == 0 {
			return math.NaN()
		}
		return sxy / sxx
	case Intercept:
		slope := a.Calc(Slope)
		return (a.y.sumX - slope*a.x.sumX) / n
	case Correlation:
		if a.x.n < 2 || sxx == 0 || syy == 0 {
			return math.NaN()
		}
		return sxy / math.Sqrt(sxx*syy)
	case RSquared:
		r := a.Calc(Correlation)
		return r * r
	}
	return a.y.Calc(k)
}

// Rounding can make a variance computed from sums slightly negative.
func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
