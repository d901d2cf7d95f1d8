package rnaseq

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

func TestVisualizeStage(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
		wantErr error
	}{
		"padj": {
			content: "\"\",log2FoldChange,padj\ngene1,2.5,0.001\ngene2,-0.2,0.9\n",
		},
		"precomputed significance": {
			content: "\"\",log2FoldChange,-log10(padj)\ngene1,2.5,3\n",
		},
		"no significance column": {
			content: "\"\",log2FoldChange,pvalue\ngene1,2.5,0.001\n",
			wantErr: model.ErrFormat,
		},
	}

	for name, tc := range tcs {
		name, tc := name, tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			results := filepath.Join(dir, "deseq2_results.csv")
			require.NoError(t, os.WriteFile(results, []byte(tc.content), 0o600))

			stage := &visualizeStage{
				info:   &model.StageInfo{Name: Visualize, OutputDir: filepath.Join(dir, VisualizeDir)},
				logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			}

			reported := 0
			produced, err := stage.Run(context.Background(), model.Manifest{{Path: results}}, func(model.Artifact, time.Duration) error {
				reported++

				return nil
			})

			plot := filepath.Join(dir, VisualizeDir, PlotFile)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.NoFileExists(t, plot)
				assert.Zero(t, reported)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, model.Manifest{{Path: plot}}, produced)
			assert.Equal(t, 1, reported)
			assert.FileExists(t, plot)
		})
	}
}
