package rnaseq

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/internal/config"
	"github.com/askiada/go-rnaseq/pkg/executor"
	"github.com/askiada/go-rnaseq/pkg/pipeline"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Stage names.
const (
	QC        = "qc"
	Trim      = "trim"
	Align     = "align"
	Count     = "count"
	Stats     = "stats"
	Visualize = "visualize"
)

// Stage directories under the results root.
const (
	QCDir        = "fastqc"
	TrimDir      = "trimmed"
	AlignDir     = "hisat2"
	CountDir     = "featurecounts"
	StatsDir     = "deseq2"
	VisualizeDir = "plots"
)

type stageDef struct {
	name  string
	dir   string
	kind  model.StageKind
	input string
	tpl   executor.Template
}

// Assemble builds the pipeline driver with the six stages in their execution order.
func Assemble(cfg *config.Config, tools *config.Tools, runner executor.Runner, logger *slog.Logger, opts ...model.PipelineOption) (*pipeline.Pipeline, error) {
	pipe, err := pipeline.New(logger, opts...)
	if err != nil {
		return nil, err
	}

	base := executor.Vars{
		GenomeIndex: cfg.GenomeIndex,
		Annotation:  cfg.Annotation,
		Conditions:  cfg.Conditions,
		Script:      cfg.Script,
	}

	defs := []stageDef{
		{name: QC, dir: QCDir, kind: model.PerFileStage, input: model.RawInput, tpl: tools.QC},
		{name: Trim, dir: TrimDir, kind: model.PerFileStage, input: model.RawInput, tpl: tools.Trim},
		{name: Align, dir: AlignDir, kind: model.PerFileStage, input: Trim, tpl: tools.Align},
		{name: Count, dir: CountDir, kind: model.AggregateStage, input: Align, tpl: tools.Count},
		{name: Stats, dir: StatsDir, kind: model.AggregateStage, input: Count, tpl: tools.Stats},
	}

	for _, def := range defs {
		info := &model.StageInfo{Name: def.name, Kind: def.kind, OutputDir: cfg.StageDir(def.dir)}

		stage, err := newToolStage(info, def.tpl, runner, base, logger)
		if err != nil {
			return nil, err
		}

		switch def.name {
		case Count:
			stage.check = countsCheck(cfg.Annotation)
		case Stats:
			stage.preflight = conditionsPreflight(cfg.Conditions)
			stage.check = checkResults
		}

		stageOpts := []pipeline.StageOption{pipeline.StageInput(def.input)}
		if def.kind == model.PerFileStage {
			stageOpts = append(stageOpts, pipeline.StageConcurrency(cfg.Concurrency))
		}

		err = pipe.AddStage(stage, stageOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add stage %s", def.name)
		}
	}

	plot := &visualizeStage{
		info:   &model.StageInfo{Name: Visualize, Kind: model.AggregateStage, OutputDir: cfg.StageDir(VisualizeDir)},
		logger: logger,
	}

	err = pipe.AddStage(plot, pipeline.StageInput(Stats))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to add stage %s", Visualize)
	}

	return pipe, nil
}
