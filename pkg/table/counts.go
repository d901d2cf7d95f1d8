package table

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// annotation columns featureCounts writes before the per-sample counts
var countAnnotationColumns = []string{"Geneid", "Chr", "Start", "End", "Strand", "Length"}

// CountMatrix is a feature by sample table of read counts.
type CountMatrix struct {
	// Samples holds the sample column headers, as written by the counting tool.
	Samples  []string
	Features []string
	Counts   [][]int64
}

// ReadCountMatrix parses a featureCounts output file.
func ReadCountMatrix(path string) (*CountMatrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrEnvironment, "unable to open count matrix %s: %v", path, err)
	}
	defer file.Close()

	matrix, err := parseCountMatrix(file)
	if err != nil {
		return nil, errors.Wrapf(err, "count matrix %s", path)
	}

	return matrix, nil
}

func parseCountMatrix(r io.Reader) (*CountMatrix, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(model.ErrFormat, "unable to read header: %v", err)
	}

	if len(header) <= len(countAnnotationColumns) {
		return nil, errors.Wrapf(model.ErrFormat, "header has %d columns, no sample column", len(header))
	}

	for i, name := range countAnnotationColumns {
		if header[i] != name {
			return nil, errors.Wrapf(model.ErrFormat, "column %d is %q, expected %q", i+1, header[i], name)
		}
	}

	matrix := &CountMatrix{Samples: header[len(countAnnotationColumns):]}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(model.ErrFormat, "unable to read row: %v", err)
		}

		row := make([]int64, len(matrix.Samples))

		for i := range matrix.Samples {
			cell := record[len(countAnnotationColumns)+i]

			row[i], err = strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(model.ErrFormat, "feature %s: invalid count %q", record[0], cell)
			}
		}

		matrix.Features = append(matrix.Features, record[0])
		matrix.Counts = append(matrix.Counts, row)
	}

	return matrix, nil
}
