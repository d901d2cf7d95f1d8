package table

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Feature type and attribute the counting tool groups reads by, featureCounts' defaults.
const (
	AnnotationFeatureType = "exon"
	AnnotationFeatureID   = "gene_id"
)

const gtfColumns = 9

// ReadAnnotationFeatures returns the distinct feature ids of a GTF annotation, in file order.
// Only rows of AnnotationFeatureType are read and each must carry an AnnotationFeatureID
// attribute.
func ReadAnnotationFeatures(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrEnvironment, "unable to open annotation %s: %v", path, err)
	}
	defer file.Close()

	features, err := parseAnnotationFeatures(file)
	if err != nil {
		return nil, errors.Wrapf(err, "annotation %s", path)
	}

	return features, nil
}

func parseAnnotationFeatures(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var features []string

	seen := map[string]struct{}{}

	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(model.ErrFormat, "unable to read row: %v", err)
		}

		if len(record) != gtfColumns {
			return nil, errors.Wrapf(model.ErrFormat, "row %d has %d columns, expected %d", line, len(record), gtfColumns)
		}

		if record[2] != AnnotationFeatureType {
			continue
		}

		id := attribute(record[8], AnnotationFeatureID)
		if id == "" {
			return nil, errors.Wrapf(model.ErrFormat, "row %d has no %s attribute", line, AnnotationFeatureID)
		}

		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		features = append(features, id)
	}

	if len(features) == 0 {
		return nil, errors.Wrapf(model.ErrFormat, "no %s row", AnnotationFeatureType)
	}

	return features, nil
}

// attribute extracts the value of key from a GTF attribute column: `key "value"; ...`.
func attribute(attrs, key string) string {
	for _, attr := range strings.Split(attrs, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(attr), " ")
		if ok && name == key {
			return strings.Trim(strings.TrimSpace(value), `"`)
		}
	}

	return ""
}
