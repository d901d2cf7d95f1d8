package table

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// ConditionColumn is the column the differential-expression design is built on.
const ConditionColumn = "condition"

// Conditions maps a sample identifier to its experimental condition.
type Conditions map[string]string

// ReadConditions parses a CSV whose first column is the sample identifier and which has a
// condition column.
func ReadConditions(path string) (Conditions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrEnvironment, "unable to open condition table %s: %v", path, err)
	}
	defer file.Close()

	conditions, err := parseConditions(file)
	if err != nil {
		return nil, errors.Wrapf(err, "condition table %s", path)
	}

	return conditions, nil
}

func parseConditions(r io.Reader) (Conditions, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(model.ErrFormat, "unable to read: %v", err)
	}

	if len(records) < 2 {
		return nil, errors.Wrap(model.ErrFormat, "no sample row")
	}

	column := -1

	for i, name := range records[0] {
		if i > 0 && strings.TrimSpace(name) == ConditionColumn {
			column = i
		}
	}

	if column < 0 {
		return nil, errors.Wrapf(model.ErrFormat, "missing %q column", ConditionColumn)
	}

	conditions := make(Conditions, len(records)-1)

	for _, record := range records[1:] {
		sample := strings.TrimSpace(record[0])
		if _, ok := conditions[sample]; ok {
			return nil, errors.Wrapf(model.ErrFormat, "sample %s listed twice", sample)
		}

		conditions[sample] = strings.TrimSpace(record[column])
	}

	return conditions, nil
}

// Missing returns the samples without a condition, sorted.
func (c Conditions) Missing(samples []string) []string {
	missing := []string{}

	for _, sample := range samples {
		if _, ok := c[sample]; !ok {
			missing = append(missing, sample)
		}
	}

	sort.Strings(missing)

	return missing
}

// Levels returns the distinct conditions of samples, sorted.
func (c Conditions) Levels(samples []string) []string {
	seen := map[string]struct{}{}
	levels := []string{}

	for _, sample := range samples {
		level, ok := c[sample]
		if !ok {
			continue
		}

		if _, ok := seen[level]; ok {
			continue
		}

		seen[level] = struct{}{}
		levels = append(levels, level)
	}

	sort.Strings(levels)

	return levels
}
