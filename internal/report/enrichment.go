package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/enrich"
)

// Enrichment table file names. Every tested variant is listed, including
// undefined tests.
const (
	PromoterEnrichmentFileName = "promoter_enrichment.tsv"
	EnhancerEnrichmentFileName = "enhancer_enrichment.tsv"
)

// EnrichmentColumns is the header of an enrichment table.
var EnrichmentColumns = []string{
	"#SNP", "Chrom", "Pos", "Ref", "Alt", "Element", "Regions",
	"Alt_count", "Total_count", "Cohort_AF", "Reference_AF",
	"P_value", "Q_value", "Defined", "Significant",
}

// RegionKeys joins the keys of a result's regions with commas.
func RegionKeys(r *enrich.Result) string {
	keys := make([]string, len(r.Regions))
	for i, reg := range r.Regions {
		keys[i] = reg.Key()
	}
	return strings.Join(keys, ",")
}

// WriteEnrichment writes a header and one line per result to w. Undefined
// p- and q-values are written as NA.
func WriteEnrichment(w io.Writer, results []*enrich.Result) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(EnrichmentColumns, "\t") + "\n"); err != nil {
		return err
	}
	for _, r := range results {
		v := r.Variant
		values := []string{
			r.Key(),
			v.NormalizeChrom(),
			strconv.FormatInt(v.Pos, 10),
			v.Ref,
			v.Alt,
			string(r.Kind),
			RegionKeys(r),
			strconv.Itoa(r.AltCount),
			strconv.Itoa(r.TotalCount),
			assign.FormatFloat(r.CohortFreq),
			assign.FormatFloat(r.RefFreq),
			assign.FormatFloat(r.PValue),
			assign.FormatFloat(r.QValue),
			strconv.FormatBool(r.Defined),
			strconv.FormatBool(r.Significant),
		}
		if _, err := bw.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteEnrichment writes the promoter and enhancer enrichment tables.
func (w *Writer) WriteEnrichment(res *enrich.Results) error {
	for _, t := range []struct {
		name    string
		results []*enrich.Result
	}{
		{PromoterEnrichmentFileName, res.Promoters},
		{EnhancerEnrichmentFileName, res.Enhancers},
	} {
		path := filepath.Join(w.dir, t.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if err := WriteEnrichment(f, t.results); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", t.name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		undefined := 0
		for _, r := range t.results {
			if !r.Defined {
				undefined++
			}
		}
		w.logger.Info("wrote enrichment table",
			zap.String("path", path),
			zap.Int("tested", len(t.results)),
			zap.Int("undefined", undefined))
	}
	return nil
}
