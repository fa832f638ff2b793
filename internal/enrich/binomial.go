package enrich

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// relErr absorbs rounding when comparing point probabilities in the
// two-sided test.
const relErr = 1 + 1e-7

// BinomialGreater returns P(X >= k) for X ~ Binomial(n, p).
func BinomialGreater(k, n int, p float64) float64 {
	switch {
	case k <= 0:
		return 1
	case k > n:
		return 0
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	// P(X >= k) = I_p(k, n-k+1)
	return clamp01(mathext.RegIncBeta(float64(k), float64(n-k+1), p))
}

// BinomialTwoSided returns the exact two-sided p-value: the total
// probability of every outcome no more likely than the observed one.
func BinomialTwoSided(k, n int, p float64) float64 {
	if n <= 0 {
		return 1
	}
	switch {
	case p <= 0:
		if k == 0 {
			return 1
		}
		return 0
	case p >= 1:
		if k == n {
			return 1
		}
		return 0
	}

	dist := distuv.Binomial{N: float64(n), P: p}
	observed := dist.Prob(float64(k))
	var sum float64
	for i := 0; i <= n; i++ {
		if d := dist.Prob(float64(i)); d <= observed*relErr {
			sum += d
		}
	}
	return clamp01(sum)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
