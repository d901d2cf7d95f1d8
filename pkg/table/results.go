package table

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Result table columns written by the statistics stage.
const (
	FoldChangeColumn   = "log2FoldChange"
	AdjustedPColumn    = "padj"
	NegLog10PadjColumn = "-log10(padj)"
)

// Results is a table keyed by feature identifier with numeric statistic columns.
type Results struct {
	Header []string
	IDs    []string
	rows   [][]string
	index  map[string]int
}

// ReadResults parses a CSV result table. The first column holds the feature identifier,
// its header may be empty.
func ReadResults(path string) (*Results, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrEnvironment, "unable to open result table %s: %v", path, err)
	}
	defer file.Close()

	results, err := parseResults(file)
	if err != nil {
		return nil, errors.Wrapf(err, "result table %s", path)
	}

	return results, nil
}

func parseResults(r io.Reader) (*Results, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(model.ErrFormat, "unable to read: %v", err)
	}

	if len(records) == 0 {
		return nil, errors.Wrap(model.ErrFormat, "empty table")
	}

	results := &Results{
		Header: records[0],
		index:  make(map[string]int, len(records[0])),
	}

	for i, name := range results.Header {
		if i == 0 {
			continue
		}

		results.index[strings.TrimSpace(name)] = i
	}

	for _, record := range records[1:] {
		results.IDs = append(results.IDs, record[0])
		results.rows = append(results.rows, record)
	}

	return results, nil
}

// Len returns the number of feature rows.
func (r *Results) Len() int {
	return len(r.rows)
}

func (r *Results) HasColumn(name string) bool {
	_, ok := r.index[name]

	return ok
}

// Column returns the values of a numeric column. NA and empty cells are NaN.
func (r *Results) Column(name string) ([]float64, error) {
	idx, ok := r.index[name]
	if !ok {
		return nil, errors.Wrapf(model.ErrFormat, "missing column %q", name)
	}

	values := make([]float64, len(r.rows))

	for i, row := range r.rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" || cell == "NA" {
			values[i] = math.NaN()

			continue
		}

		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, errors.Wrapf(model.ErrFormat, "feature %s: invalid %s %q", r.IDs[i], name, cell)
		}

		values[i] = value
	}

	return values, nil
}
