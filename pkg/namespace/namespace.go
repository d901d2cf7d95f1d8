// Package namespace resolves the files a stage reads and writes inside the results tree.
//
// Discovery by directory scan is only used once, for the operator supplied samples. Every
// later stage receives the explicit manifest its upstream stage produced, and derives its
// own output names from the sample stem so provenance stays traceable by file name.
package namespace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Discover returns the regular files of dir whose name ends with one of suffixes, sorted by
// name. A missing directory or an empty result is an environment error.
func Discover(dir string, suffixes ...string) (model.Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(model.ErrEnvironment, "unable to read directory %s: %v", dir, err)
	}

	names := []string{}

	for _, entry := range entries {
		if matchSuffix(entry.Name(), suffixes) == "" {
			continue
		}

		// symlinked reads are followed
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		names = append(names, entry.Name())
	}

	if len(names) == 0 {
		return nil, errors.Wrapf(model.ErrEnvironment, "no file matching %s in %s", strings.Join(suffixes, ", "), dir)
	}

	sort.Strings(names)

	manifest := make(model.Manifest, 0, len(names))
	seen := make(map[string]string, len(names))

	for _, name := range names {
		sample := Stem(name, suffixes...)
		if other, ok := seen[sample]; ok {
			return nil, errors.Wrapf(model.ErrEnvironment, "files %s and %s resolve to the same sample %q", other, name, sample)
		}

		seen[sample] = name
		manifest = append(manifest, model.Artifact{Sample: sample, Path: filepath.Join(dir, name)})
	}

	return manifest, nil
}

// Stem returns the base name of path with the longest matching suffix removed. When no
// suffix matches, the base name is returned unchanged.
func Stem(path string, suffixes ...string) string {
	name := filepath.Base(path)

	return strings.TrimSuffix(name, matchSuffix(name, suffixes))
}

// EnsureDir creates dir and its parents when absent.
func EnsureDir(dir string) error {
	err := os.MkdirAll(dir, 0o755) //nolint:gomnd
	if err != nil {
		return errors.Wrapf(model.ErrEnvironment, "unable to create directory %s: %v", dir, err)
	}

	return nil
}

// Populated checks that every path exists as a regular file.
func Populated(paths ...string) error {
	missing := []string{}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return errors.Wrapf(model.ErrEnvironment, "expected output missing: %s", strings.Join(missing, ", "))
	}

	return nil
}

func matchSuffix(name string, suffixes []string) string {
	best := ""

	for _, suffix := range suffixes {
		if suffix == "" || !strings.HasSuffix(name, suffix) {
			continue
		}

		if len(suffix) > len(best) {
			best = suffix
		}
	}

	return best
}
