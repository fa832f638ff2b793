package enrich

import (
	"math"
	"sort"
)

// alphaTolerance lets a q-value that equals alpha up to float rounding
// (e.g. 0.006*5/3) count as significant.
const alphaTolerance = 1e-12

// BenjaminiHochberg returns BH-adjusted q-values in the order of p.
// NaN entries are undefined tests: they stay NaN and do not count toward
// the number of hypotheses.
func BenjaminiHochberg(p []float64) []float64 {
	q := make([]float64, len(p))
	order := make([]int, 0, len(p))
	for i, v := range p {
		q[i] = math.NaN()
		if !math.IsNaN(v) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })

	m := float64(len(order))
	running := 1.0
	for rank := len(order) - 1; rank >= 0; rank-- {
		i := order[rank]
		adj := p[i] * m / float64(rank+1)
		if adj < running {
			running = adj
		}
		q[i] = running
	}
	return q
}

// Significant reports whether q passes alpha. Undefined q-values never do.
func Significant(q, alpha float64) bool {
	if math.IsNaN(q) {
		return false
	}
	return q <= alpha+alphaTolerance
}
