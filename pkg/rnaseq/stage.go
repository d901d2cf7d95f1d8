package rnaseq

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/executor"
	"github.com/askiada/go-rnaseq/pkg/namespace"
	"github.com/askiada/go-rnaseq/pkg/pipeline"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// ErrNoOutput is returned when a tool template declares no output file.
var ErrNoOutput = errors.New("template declares no output")

type checkFn func(input, produced model.Manifest) error

// toolStage runs an external tool, once per input artifact or once over the whole input.
type toolStage struct {
	info     *model.StageInfo
	template executor.Template
	runner   executor.Runner
	base     executor.Vars
	logger   *slog.Logger

	// preflight runs before any tool invocation.
	preflight func(input model.Manifest) error
	// check runs on the produced manifest once every invocation succeeded.
	check checkFn
}

var _ pipeline.Stage = (*toolStage)(nil)

func newToolStage(info *model.StageInfo, tpl executor.Template, runner executor.Runner, base executor.Vars, logger *slog.Logger) (*toolStage, error) {
	err := tpl.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", info.Name)
	}

	if len(tpl.Outputs) == 0 {
		return nil, errors.Wrapf(ErrNoOutput, "stage %s", info.Name)
	}

	return &toolStage{
		info:     info,
		template: tpl,
		runner:   runner,
		base:     base,
		logger:   logger,
	}, nil
}

func (s *toolStage) Info() *model.StageInfo {
	return s.info
}

func (s *toolStage) Run(ctx context.Context, input model.Manifest, report pipeline.Reporter) (model.Manifest, error) {
	err := namespace.EnsureDir(s.info.OutputDir)
	if err != nil {
		return nil, err
	}

	if s.preflight != nil {
		err := s.preflight(input)
		if err != nil {
			return nil, err
		}
	}

	var produced model.Manifest

	if s.info.Kind == model.PerFileStage {
		produced, err = pipeline.PerFile(ctx, s.info, input, report, s.unit)
	} else {
		produced, err = s.aggregate(ctx, input, report)
	}

	if err != nil {
		return nil, err
	}

	if s.check != nil {
		err := s.check(input, produced)
		if err != nil {
			return nil, err
		}
	}

	return produced, nil
}

func (s *toolStage) unit(ctx context.Context, in model.Artifact) (model.Manifest, error) {
	vars := s.base
	vars.Sample = in.Sample
	vars.Input = in.Path
	vars.Inputs = []string{in.Path}

	return s.invoke(ctx, vars)
}

func (s *toolStage) aggregate(ctx context.Context, input model.Manifest, report pipeline.Reporter) (model.Manifest, error) {
	vars := s.base
	vars.Inputs = input.Paths()
	vars.Input = vars.Inputs[0]

	start := time.Now()

	produced, err := s.invoke(ctx, vars)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)

	for _, artifact := range produced {
		if report == nil {
			break
		}

		err := report(artifact, elapsed)
		if err != nil {
			return nil, err
		}
	}

	return produced, nil
}

// invoke renders the template, runs the tool and checks the declared outputs exist. The
// first declared output is exposed to the template as .Output.
func (s *toolStage) invoke(ctx context.Context, vars executor.Vars) (model.Manifest, error) {
	vars.OutputDir = s.info.OutputDir

	outputs, err := s.template.ExpectedOutputs(vars)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, errors.Wrapf(ErrNoOutput, "stage %s", s.info.Name)
	}

	vars.Output = outputs[0]

	cmd, err := s.template.Command(vars)
	if err != nil {
		return nil, err
	}

	err = s.runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	err = namespace.Populated(outputs...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s returned successfully", cmd.Tool)
	}

	produced := make(model.Manifest, 0, len(outputs))
	for _, out := range outputs {
		produced = append(produced, model.Artifact{Sample: vars.Sample, Path: out})
	}

	s.logger.Debug("tool outputs written",
		slog.String("stage", s.info.Name),
		slog.String("sample", vars.Sample),
		slog.Int("outputs", len(produced)))

	return produced, nil
}
