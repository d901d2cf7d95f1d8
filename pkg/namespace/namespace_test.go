package namespace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-rnaseq/pkg/namespace"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()

	for _, path := range paths {
		require.NoError(t, os.WriteFile(path, []byte("@r1\nACGT\n+\nIIII\n"), 0o600))
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t,
		filepath.Join(dir, "sampleB.fastq"),
		filepath.Join(dir, "sampleA.fastq"),
		filepath.Join(dir, "sampleC.fastq.gz"),
		filepath.Join(dir, "notes.txt"),
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.fastq"), 0o755))

	got, err := namespace.Discover(dir, ".fastq", ".fastq.gz")
	require.NoError(t, err)

	assert.Equal(t, model.Manifest{
		{Sample: "sampleA", Path: filepath.Join(dir, "sampleA.fastq")},
		{Sample: "sampleB", Path: filepath.Join(dir, "sampleB.fastq")},
		{Sample: "sampleC", Path: filepath.Join(dir, "sampleC.fastq.gz")},
	}, got)
}

func TestDiscoverMissingDir(t *testing.T) {
	t.Parallel()

	_, err := namespace.Discover(filepath.Join(t.TempDir(), "absent"), ".fastq")
	require.ErrorIs(t, err, model.ErrEnvironment)
}

func TestDiscoverEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "readme.md"))

	_, err := namespace.Discover(dir, ".fastq")
	require.ErrorIs(t, err, model.ErrEnvironment)
}

func TestDiscoverSameSample(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "s1.fastq"), filepath.Join(dir, "s1.fq"))

	_, err := namespace.Discover(dir, ".fastq", ".fq")
	require.ErrorIs(t, err, model.ErrEnvironment)
}

func TestStem(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		path     string
		suffixes []string
		want     string
	}{
		"simple":          {path: "/data/sampleA.fastq", suffixes: []string{".fastq"}, want: "sampleA"},
		"longest suffix":  {path: "sampleA_trimmed.fq", suffixes: []string{".fq", "_trimmed.fq"}, want: "sampleA"},
		"compressed":      {path: "x/s.fastq.gz", suffixes: []string{".fastq", ".fastq.gz"}, want: "s"},
		"no match":        {path: "x/s.bam", suffixes: []string{".sam"}, want: "s.bam"},
		"empty suffix ok": {path: "s.sam", suffixes: []string{"", ".sam"}, want: "s"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, namespace.Stem(tc.path, tc.suffixes...))
		})
	}
}

func TestPopulated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "a.sam")
	touch(t, present)

	require.NoError(t, namespace.Populated(present))

	err := namespace.Populated(present, filepath.Join(dir, "b.sam"))
	require.ErrorIs(t, err, model.ErrEnvironment)
	assert.Contains(t, err.Error(), "b.sam")
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "results", "fastqc")
	require.NoError(t, namespace.EnsureDir(dir))
	require.NoError(t, namespace.EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
