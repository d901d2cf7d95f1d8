package rnaseq

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/namespace"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
	"github.com/askiada/go-rnaseq/pkg/table"
)

// alignmentSuffixes are stripped from count matrix headers to recover the sample stem.
var alignmentSuffixes = []string{".sam", ".bam"}

func stems(paths []string) []string {
	out := make([]string, len(paths))
	for i, path := range paths {
		out[i] = namespace.Stem(path, alignmentSuffixes...)
	}

	sort.Strings(out)

	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// countsCheck verifies the count matrix holds one column per aligned file and one row per
// feature of the annotation.
func countsCheck(annotationPath string) func(input, produced model.Manifest) error {
	return func(input, produced model.Manifest) error {
		matrix, err := table.ReadCountMatrix(produced[0].Path)
		if err != nil {
			return err
		}

		got, want := stems(matrix.Samples), stems(input.Paths())
		if !equal(got, want) {
			return errors.Wrapf(model.ErrFormat, "count matrix columns [%s], aligned files [%s]",
				strings.Join(got, ", "), strings.Join(want, ", "))
		}

		if len(matrix.Features) == 0 {
			return errors.Wrap(model.ErrFormat, "count matrix has no feature row")
		}

		annotated, err := table.ReadAnnotationFeatures(annotationPath)
		if err != nil {
			return err
		}

		missing, extra := difference(annotated, matrix.Features), difference(matrix.Features, annotated)
		if len(missing) > 0 || len(extra) > 0 {
			return errors.Wrapf(model.ErrFormat, "count matrix rows differ from annotation %s: missing [%s], unknown [%s]",
				annotationPath, strings.Join(missing, ", "), strings.Join(extra, ", "))
		}

		return nil
	}
}

// difference returns the values of a absent from b.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}

	var out []string

	for _, v := range a {
		if _, ok := in[v]; !ok {
			out = append(out, v)
		}
	}

	return out
}

// conditionsPreflight verifies the condition table covers every count matrix column and
// holds at least two conditions before the statistics tool is started.
func conditionsPreflight(conditionsPath string) func(input model.Manifest) error {
	return func(input model.Manifest) error {
		matrix, err := table.ReadCountMatrix(input[0].Path)
		if err != nil {
			return err
		}

		conditions, err := table.ReadConditions(conditionsPath)
		if err != nil {
			return err
		}

		samples := stems(matrix.Samples)

		missing := conditions.Missing(samples)
		if len(missing) > 0 {
			return errors.Wrapf(model.ErrFormat, "condition table %s has no entry for %s",
				conditionsPath, strings.Join(missing, ", "))
		}

		levels := conditions.Levels(samples)
		if len(levels) < 2 { //nolint:gomnd
			return errors.Wrapf(model.ErrFormat, "condition table %s needs two conditions, got [%s]",
				conditionsPath, strings.Join(levels, ", "))
		}

		return nil
	}
}

// checkResults verifies the result table has one row per counted feature and the columns
// the visualization relies on.
func checkResults(input, produced model.Manifest) error {
	matrix, err := table.ReadCountMatrix(input[0].Path)
	if err != nil {
		return err
	}

	results, err := table.ReadResults(produced[0].Path)
	if err != nil {
		return err
	}

	if results.Len() != len(matrix.Features) {
		return errors.Wrapf(model.ErrFormat, "result table has %d rows, count matrix %d features",
			results.Len(), len(matrix.Features))
	}

	for _, column := range []string{table.FoldChangeColumn, table.AdjustedPColumn} {
		if !results.HasColumn(column) {
			return errors.Wrapf(model.ErrFormat, "result table is missing column %q", column)
		}
	}

	return nil
}
