package enrich

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenjaminiHochberg_StepUp(t *testing.T) {
	p := []float64{0.001, 0.004, 0.006, 0.02, 0.5}
	q := BenjaminiHochberg(p)

	want := []float64{0.005, 0.01, 0.01, 0.025, 0.5}
	for i := range want {
		assert.InDelta(t, want[i], q[i], 1e-12, "rank %d", i+1)
	}

	// Rank 3 meets its line exactly (0.006 <= 3/5 * 0.01), so the standard
	// step-up procedure accepts three hypotheses.
	var accepted int
	for _, v := range q {
		if Significant(v, 0.01) {
			accepted++
		}
	}
	assert.Equal(t, 3, accepted)
}

func TestBenjaminiHochberg_PreservesInputOrder(t *testing.T) {
	p := []float64{0.5, 0.001, 0.02, 0.006, 0.004}
	q := BenjaminiHochberg(p)
	assert.InDelta(t, 0.5, q[0], 1e-12)
	assert.InDelta(t, 0.005, q[1], 1e-12)
	assert.InDelta(t, 0.025, q[2], 1e-12)
}

func TestBenjaminiHochberg_MonotoneInSortedOrder(t *testing.T) {
	p := []float64{0.04, 0.01, 0.03, 0.2, 0.011, 0.9, 0.0001, 0.04}
	q := BenjaminiHochberg(p)

	order := make([]int, len(p))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })
	for i := 1; i < len(order); i++ {
		assert.LessOrEqual(t, q[order[i-1]], q[order[i]])
	}
	for i := range p {
		assert.GreaterOrEqual(t, q[i], p[i])
		assert.LessOrEqual(t, q[i], 1.0)
	}
}

func TestBenjaminiHochberg_AcceptedSetMonotoneInAlpha(t *testing.T) {
	p := []float64{0.001, 0.008, 0.012, 0.03, 0.04, 0.2, 0.7}
	q := BenjaminiHochberg(p)

	prev := map[int]bool{}
	for _, alpha := range []float64{0.001, 0.01, 0.02, 0.05, 0.1, 0.5, 1} {
		cur := map[int]bool{}
		for i, v := range q {
			if Significant(v, alpha) {
				cur[i] = true
			}
		}
		for i := range prev {
			assert.True(t, cur[i], "alpha %v dropped index %d", alpha, i)
		}
		prev = cur
	}
	assert.Len(t, prev, len(p))
}

func TestBenjaminiHochberg_UndefinedExcluded(t *testing.T) {
	q := BenjaminiHochberg([]float64{0.01, math.NaN(), 0.02})
	require.Len(t, q, 3)
	assert.True(t, math.IsNaN(q[1]))
	// m counts only the two defined tests.
	assert.InDelta(t, 0.02, q[0], 1e-12)
	assert.InDelta(t, 0.02, q[2], 1e-12)
	assert.False(t, Significant(q[1], 1))
}

func TestBenjaminiHochberg_Empty(t *testing.T) {
	assert.Empty(t, BenjaminiHochberg(nil))
}
