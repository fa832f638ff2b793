package genes

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/regsnp/internal/vcf"
)

// LoadGTF reads the "gene" features of a GTF file (plain or gzip).
// Malformed lines are skipped.
func LoadGTF(path string) (*Annotation, error) {
	in, err := vcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer in.Close()

	genes, err := parseGTF(in)
	if err != nil {
		return nil, err
	}
	return NewAnnotation(genes), nil
}

func parseGTF(r io.Reader) ([]*Gene, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var genes []*Gene
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		g, ok := parseGeneLine(line)
		if !ok {
			continue
		}
		genes = append(genes, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	return genes, nil
}

func parseGeneLine(line string) (*Gene, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 || fields[2] != "gene" {
		return nil, false
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, false
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil || end < start {
		return nil, false
	}

	attrs := parseAttributes(fields[8])
	id := stripVersion(attrs["gene_id"])
	name := attrs["gene_name"]
	if name == "" {
		name = id
	}
	if name == "" {
		return nil, false
	}

	strand := int8(1)
	if fields[6] == "-" {
		strand = -1
	}

	return &Gene{
		ID:      id,
		Name:    name,
		Chrom:   vcf.NormalizeChrom(fields[0]),
		Start:   start - 1, // GTF is 1-based closed
		End:     end,
		Strand:  strand,
		Biotype: firstNonEmpty(attrs["gene_type"], attrs["gene_biotype"]),
	}, true
}

// parseAttributes parses the GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		// Repeated keys (e.g. tag) keep the first value.
		if _, dup := attrs[key]; !dup {
			attrs[key] = strings.Trim(strings.TrimSpace(value), "\"")
		}
	}
	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENSG00000133703.12" -> "ENSG00000133703"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
