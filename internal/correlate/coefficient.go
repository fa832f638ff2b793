// Package correlate computes sample-aligned correlations between genotype
// dosage, regulatory-activity signal and gene expression.
package correlate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inodb/regsnp/internal/config"
	"github.com/inodb/regsnp/internal/matrix"
)

// Result is one correlation. Undefined results carry NaN coefficient and
// p-value.
type Result struct {
	Coefficient float64
	PValue      float64
	N           int // pairwise-complete samples used
	Defined     bool
}

// Undefined returns an undefined result over n samples.
func Undefined(n int) Result {
	return Result{Coefficient: math.NaN(), PValue: math.NaN(), N: n}
}

// Relation is the direction of a correlation.
type Relation string

const (
	Positive          Relation = "positive"
	Negative          Relation = "negative"
	UndefinedRelation Relation = "undefined"
)

// Relation returns the direction of a defined, non-zero coefficient.
func (r Result) Relation() Relation {
	switch {
	case !r.Defined:
		return UndefinedRelation
	case r.Coefficient > 0:
		return Positive
	case r.Coefficient < 0:
		return Negative
	}
	return UndefinedRelation
}

// Align pairs the values of x and y by sample name, keeping samples where
// both are observed. Order follows x.
func Align(x, y matrix.Series) (xs, ys []float64) {
	idx := make(map[string]int, len(y.Samples))
	for i, s := range y.Samples {
		idx[s] = i
	}
	for i, s := range x.Samples {
		j, ok := idx[s]
		if !ok {
			continue
		}
		a, b := x.Values[i], y.Values[j]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		xs = append(xs, a)
		ys = append(ys, b)
	}
	return xs, ys
}

// Pairwise correlates x and y over their pairwise-complete samples. Fewer
// than minSamples shared observations, or a constant vector, gives an
// undefined result.
func Pairwise(x, y matrix.Series, method config.Method, minSamples int) Result {
	xs, ys := Align(x, y)
	n := len(xs)
	if n < minSamples || n < 3 {
		return Undefined(n)
	}
	if method == config.MethodSpearman {
		xs, ys = Rank(xs), Rank(ys)
	}
	if constant(xs) || constant(ys) {
		return Undefined(n)
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return Undefined(n)
	}
	r = math.Max(-1, math.Min(1, r))
	return Result{Coefficient: r, PValue: PValue(r, n), N: n, Defined: true}
}

// PValue is the two-sided p-value of coefficient r over n samples from a
// Student t distribution with n-2 degrees of freedom.
func PValue(r float64, n int) float64 {
	df := float64(n - 2)
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.Survival(math.Abs(t)))
}

// Rank returns 1-based ranks of xs, giving tied values their average rank.
func Rank(xs []float64) []float64 {
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && xs[order[j]] == xs[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1..j
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}
	return ranks
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
