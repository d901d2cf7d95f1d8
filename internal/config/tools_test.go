package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-rnaseq/internal/config"
	"github.com/askiada/go-rnaseq/pkg/executor"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

func TestLoadToolsDefaults(t *testing.T) {
	t.Parallel()

	tools, err := config.LoadTools("")
	require.NoError(t, err)

	assert.Equal(t, []string{"fastqc", "trim_galore", "hisat2", "featureCounts", "Rscript"}, tools.Executables())
	assert.Equal(t, []string{"{{.Sample}}_trimmed.fq"}, tools.Trim.Outputs)
	assert.Contains(t, tools.Count.Args, executor.InputsPlaceholder)
}

func TestLoadToolsOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"trim:\n  outputs: [\"{{.Sample}}_trimmed.fq.gz\"]\nalign:\n  tool: /opt/hisat2/bin/hisat2\n"), 0o600))

	tools, err := config.LoadTools(path)
	require.NoError(t, err)

	assert.Equal(t, "trim_galore", tools.Trim.Tool)
	assert.Equal(t, []string{"{{.Sample}}_trimmed.fq.gz"}, tools.Trim.Outputs)
	assert.Equal(t, "/opt/hisat2/bin/hisat2", tools.Align.Tool)
	assert.Equal(t, []string{"{{.Sample}}.sam"}, tools.Align.Outputs)
	assert.Equal(t, "fastqc", tools.QC.Tool)
}

func TestLoadToolsErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tcs := map[string]struct {
		content string
		wantErr error
	}{
		"not yaml": {
			content: "qc: [",
			wantErr: model.ErrFormat,
		},
		"invalid template": {
			content: "stats:\n  args: [\"{{.Script\"]\n",
			wantErr: model.ErrFormat,
		},
		"empty tool": {
			content: "qc:\n  tool: \"\"\n",
			wantErr: executor.ErrToolMustBeSet,
		},
	}

	for name, tc := range tcs {
		name, tc := name, tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			_, err := config.LoadTools(path)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadToolsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadTools(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, model.ErrEnvironment)
}
