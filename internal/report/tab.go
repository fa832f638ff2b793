package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/regsnp/internal/assign"
)

// Output file names.
const (
	PromoterFileName = "promoter_snps.tsv"
	EnhancerFileName = "enhancer_snps.tsv"
)

// TabWriter writes evidence rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	columns := []string{
		"#SNP",
		"Chrom",
		"Pos",
		"Ref",
		"Alt",
		"Element",
		"Region",
		"Gene",
		"Evidence",
		"Evidence_strength",
		"Cohort_AF",
		"Reference_AF",
		"P_value",
		"Q_value",
	}
	for _, prefix := range []string{"Signal_expression", "Genotype_expression", "Genotype_signal"} {
		columns = append(columns,
			prefix+"_feature",
			prefix+"_r",
			prefix+"_p",
			prefix+"_n",
			prefix+"_relation",
		)
	}
	return &TabWriter{w: bufio.NewWriter(w), columns: columns}
}

// Columns returns the header column names.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single row.
func (tw *TabWriter) Write(r Row) error {
	values := []string{
		r.SNP,
		r.Chrom,
		strconv.FormatInt(r.Pos, 10),
		r.Ref,
		r.Alt,
		string(r.Kind),
		r.Region,
		dash(r.Gene),
		string(r.Evidence),
		assign.FormatFloat(r.Strength),
		assign.FormatFloat(r.CohortFreq),
		assign.FormatFloat(r.RefFreq),
		assign.FormatFloat(r.PValue),
		assign.FormatFloat(r.QValue),
	}
	for _, c := range []Corr{r.SignalExpression, r.GenotypeExpression, r.GenotypeSignal} {
		n := "NA"
		if c.N > 0 {
			n = strconv.Itoa(c.N)
		}
		values = append(values,
			dash(c.Feature),
			assign.FormatFloat(c.Coefficient),
			assign.FormatFloat(c.PValue),
			n,
			dash(c.Relation),
		)
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteRows writes a header and every row to w.
func WriteRows(w io.Writer, rows []Row) error {
	tw := NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.Write(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}
