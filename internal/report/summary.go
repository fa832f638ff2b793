package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/wcharczuk/go-chart/v2"
)

// Chart file names.
const (
	SummaryChartFileName     = "summary.png"
	CorrelationChartFileName = "correlations.png"
)

// CorrSummary describes the defined correlations of one relationship.
type CorrSummary struct {
	Relationship string
	Defined      int
	Undefined    int
	MedianAbsR   float64 // NaN when nothing is defined
	P90AbsR      float64
}

// Summary condenses the final tables.
type Summary struct {
	// Counts maps "element/evidence" to the number of rows.
	Counts       map[string]int
	Correlations []CorrSummary
}

// Summarize computes evidence counts and |r| statistics per relationship.
func Summarize(rows []Row) Summary {
	s := Summary{Counts: make(map[string]int)}
	abs := map[string][]float64{}
	undefined := map[string]int{}
	names := []string{"signal-expression", "genotype-expression", "genotype-signal"}

	for _, r := range rows {
		s.Counts[string(r.Kind)+"/"+string(r.Evidence)]++
		for i, c := range []Corr{r.SignalExpression, r.GenotypeExpression, r.GenotypeSignal} {
			if c.Defined && !math.IsNaN(c.Coefficient) {
				abs[names[i]] = append(abs[names[i]], math.Abs(c.Coefficient))
			} else {
				undefined[names[i]]++
			}
		}
	}

	for _, name := range names {
		cs := CorrSummary{
			Relationship: name,
			Defined:      len(abs[name]),
			Undefined:    undefined[name],
			MedianAbsR:   math.NaN(),
			P90AbsR:      math.NaN(),
		}
		if med, err := stats.Median(abs[name]); err == nil {
			cs.MedianAbsR = med
		}
		if p90, err := stats.Percentile(abs[name], 90); err == nil {
			cs.P90AbsR = p90
		}
		s.Correlations = append(s.Correlations, cs)
	}
	return s
}

// CountKeys returns the keys of Counts in sorted order.
func (s Summary) CountKeys() []string {
	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrNothingToPlot is returned when a chart would have no visible bars.
var ErrNothingToPlot = fmt.Errorf("nothing to plot")

// RenderCounts draws a bar chart of rows per element and evidence kind.
func RenderCounts(w io.Writer, s Summary) error {
	var bars []chart.Value
	for _, k := range s.CountKeys() {
		bars = append(bars, chart.Value{Label: k, Value: float64(s.Counts[k])})
	}
	return renderBars(w, "Evidence rows", bars)
}

// RenderCorrelations draws a bar chart of the median |r| per relationship.
func RenderCorrelations(w io.Writer, s Summary) error {
	var bars []chart.Value
	for _, c := range s.Correlations {
		if c.Defined == 0 {
			continue
		}
		bars = append(bars, chart.Value{Label: c.Relationship, Value: c.MedianAbsR})
	}
	return renderBars(w, "Median |r|", bars)
}

func renderBars(w io.Writer, title string, bars []chart.Value) error {
	top := 0.0
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	if len(bars) == 0 || top <= 0 {
		return ErrNothingToPlot
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    160 * max(len(bars), 3),
		Height:   400,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", title, err)
	}
	return nil
}
