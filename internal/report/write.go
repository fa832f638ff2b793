package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Writer emits the final tables and charts into a directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a writer for dir, which must exist.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (w *Writer) SetLogger(l *zap.Logger) {
	w.logger = l
}

// Write writes promoter_snps.tsv, enhancer_snps.tsv and the summary charts.
// It returns the summary of rows.
func (w *Writer) Write(rows []Row) (Summary, error) {
	promoters, enhancers := Split(rows)
	for _, t := range []struct {
		name string
		rows []Row
	}{
		{PromoterFileName, promoters},
		{EnhancerFileName, enhancers},
	} {
		if err := w.writeTable(t.name, t.rows); err != nil {
			return Summary{}, err
		}
		w.logger.Info("wrote evidence table",
			zap.String("path", filepath.Join(w.dir, t.name)),
			zap.Int("rows", len(t.rows)))
	}

	s := Summarize(rows)
	for _, k := range s.CountKeys() {
		w.logger.Info("evidence rows", zap.String("kind", k), zap.Int("count", s.Counts[k]))
	}
	for _, c := range s.Correlations {
		w.logger.Info("correlation summary",
			zap.String("relationship", c.Relationship),
			zap.Int("defined", c.Defined),
			zap.Int("undefined", c.Undefined),
			zap.Float64("median_abs_r", c.MedianAbsR),
			zap.Float64("p90_abs_r", c.P90AbsR))
	}

	if err := w.writeChart(SummaryChartFileName, func(b *bytes.Buffer) error { return RenderCounts(b, s) }); err != nil {
		return s, err
	}
	if err := w.writeChart(CorrelationChartFileName, func(b *bytes.Buffer) error { return RenderCorrelations(b, s) }); err != nil {
		return s, err
	}
	return s, nil
}

func (w *Writer) writeTable(name string, rows []Row) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := WriteRows(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func (w *Writer) writeChart(name string, render func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, ErrNothingToPlot) {
			w.logger.Info("skipping empty chart", zap.String("chart", name))
			return nil
		}
		return err
	}
	if err := os.WriteFile(filepath.Join(w.dir, name), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
