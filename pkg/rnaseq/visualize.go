package rnaseq

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/askiada/go-rnaseq/pkg/namespace"
	"github.com/askiada/go-rnaseq/pkg/pipeline"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
	"github.com/askiada/go-rnaseq/pkg/table"
	"github.com/askiada/go-rnaseq/pkg/volcano"
)

// PlotFile is the name of the chart written by the visualize stage.
const PlotFile = "volcano_plot.png"

// visualizeStage renders the result table in process.
type visualizeStage struct {
	info   *model.StageInfo
	opts   []volcano.Option
	logger *slog.Logger
}

var _ pipeline.Stage = (*visualizeStage)(nil)

func (s *visualizeStage) Info() *model.StageInfo {
	return s.info
}

func (s *visualizeStage) Run(_ context.Context, input model.Manifest, report pipeline.Reporter) (model.Manifest, error) {
	err := namespace.EnsureDir(s.info.OutputDir)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	results, err := table.ReadResults(input[0].Path)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(s.info.OutputDir, PlotFile)

	summary, err := volcano.Render(results, out, s.opts...)
	if err != nil {
		return nil, err
	}

	s.logger.Info("volcano plot written",
		slog.String("path", out),
		slog.Int("points", summary.Points),
		slog.Int("up", summary.Up),
		slog.Int("down", summary.Down),
		slog.Int("skipped", summary.Skipped))

	artifact := model.Artifact{Path: out}

	if report != nil {
		err := report(artifact, time.Since(start))
		if err != nil {
			return nil, err
		}
	}

	return model.Manifest{artifact}, nil
}
