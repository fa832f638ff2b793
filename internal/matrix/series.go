package matrix

import "math"

// Series is one per-sample measurement vector. Missing values are NaN.
type Series struct {
	Samples []string
	Values  []float64
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Samples)
}

// Observed returns the number of non-missing values.
func (s Series) Observed() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Restrict keeps only the samples in keep, preserving order.
func (s Series) Restrict(keep map[string]bool) Series {
	var out Series
	for i, name := range s.Samples {
		if keep[name] {
			out.Samples = append(out.Samples, name)
			out.Values = append(out.Values, s.Values[i])
		}
	}
	return out
}
