package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Reporter is called by a stage each time one of its units produced an artifact.
type Reporter func(output model.Artifact, elapsed time.Duration) error

// Stage is one step of the pipeline.
type Stage interface {
	Info() *model.StageInfo
	Run(ctx context.Context, input model.Manifest, report Reporter) (model.Manifest, error)
}

// rawStage is the vertex standing for the operator supplied samples.
type rawStage struct{}

func (rawStage) Info() *model.StageInfo {
	return &model.StageInfo{Name: model.RawInput, Kind: model.AggregateStage}
}

func (rawStage) Run(_ context.Context, input model.Manifest, _ Reporter) (model.Manifest, error) {
	return input, nil
}

// Pipeline is a pipeline of stages.
type Pipeline struct {
	graph     graph.Graph[string, Stage]
	position  map[string]int
	opts      []model.PipelineOption
	logger    *slog.Logger
	startTime time.Time
}

func stageHash(s Stage) string {
	return s.Info().Name
}

// New creates a new pipeline.
func New(logger *slog.Logger, opts ...model.PipelineOption) (*Pipeline, error) {
	pipe := &Pipeline{
		graph:    graph.New(stageHash, graph.Directed(), graph.PreventCycles()),
		position: map[string]int{},
		opts:     opts,
		logger:   logger,
	}

	err := pipe.graph.AddVertex(rawStage{})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add raw input vertex")
	}

	pipe.position[model.RawInput] = 0

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// AddStage appends a stage. Its input stage must already be part of the pipeline.
func (p *Pipeline) AddStage(stage Stage, opts ...StageOption) error {
	if p == nil {
		return ErrPipelineMustBeSet
	}

	if stage == nil {
		return ErrStageMustBeSet
	}

	info := stage.Info()
	for _, opt := range opts {
		opt(info)
	}

	err := p.graph.AddVertex(stage)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrapf(ErrDuplicateStage, "stage %s", info.Name)
	}

	if err != nil {
		return errors.Wrapf(err, "unable to add stage %s", info.Name)
	}

	parent, err := p.graph.Vertex(info.InputName())
	if err != nil {
		_ = p.graph.RemoveVertex(info.Name)

		return errors.Wrapf(ErrUnknownInput, "stage %s reads %s", info.Name, info.InputName())
	}

	err = p.graph.AddEdge(info.InputName(), info.Name)
	if err != nil {
		_ = p.graph.RemoveVertex(info.Name)

		return errors.Wrapf(err, "unable to link %s to %s", info.InputName(), info.Name)
	}

	p.position[info.Name] = len(p.position)

	for _, opt := range p.opts {
		err := opt.PrepareStage(parent.Info(), info)
		if err != nil {
			p.removeStage(info)

			return errors.Wrap(err, "unable to run prepare stage function")
		}
	}

	return nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() ([]string, error) {
	order, err := graph.StableTopologicalSort(p.graph, func(a, b string) bool {
		return p.position[a] < p.position[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to order stages")
	}

	return order[1:], nil
}

// Run executes every stage in order, starting from the raw sample manifest. It returns the
// manifest of each stage that completed, keyed by stage name.
func (p *Pipeline) Run(ctx context.Context, raw model.Manifest) (map[string]model.Manifest, error) {
	p.startTime = time.Now()
	manifests := map[string]model.Manifest{model.RawInput: raw}

	err := p.run(ctx, manifests)

	finishErr := p.finishRun(err)
	if err != nil {
		if finishErr != nil {
			p.logger.Error("unable to finish pipeline options", slog.String("error", finishErr.Error()))
		}

		return manifests, err
	}

	return manifests, finishErr
}

func (p *Pipeline) run(ctx context.Context, manifests map[string]model.Manifest) error {
	if len(manifests[model.RawInput]) == 0 {
		return errors.Wrap(model.ErrEnvironment, "no input samples")
	}

	order, err := p.Stages()
	if err != nil {
		return err
	}

	for _, name := range order {
		err := ctx.Err()
		if err != nil {
			return errors.Wrapf(err, "pipeline stopped before stage %s", name)
		}

		stage, err := p.graph.Vertex(name)
		if err != nil {
			return errors.Wrapf(err, "unable to get stage %s", name)
		}

		produced, err := p.runStage(ctx, stage, manifests[stage.Info().InputName()])
		if err != nil {
			return errors.Wrapf(err, "stage %s failed", name)
		}

		manifests[name] = produced
	}

	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, input model.Manifest) (model.Manifest, error) {
	info := stage.Info()
	if len(input) == 0 {
		return nil, errors.Wrapf(model.ErrEnvironment, "%s produced nothing for %s", info.InputName(), info.Name)
	}

	p.logger.Info("stage started",
		slog.String("stage", info.Name),
		slog.String("input", info.InputName()),
		slog.Int("inputs", len(input)))

	start := time.Now()
	produced, err := stage.Run(ctx, input, p.reporter(info))
	elapsed := time.Since(start)

	stageErr := err

	for _, opt := range p.opts {
		optErr := opt.AfterStage(info, produced, elapsed, stageErr)
		if optErr != nil && err == nil {
			err = errors.Wrap(optErr, "unable to run after stage function")
		}
	}

	if err != nil {
		p.logger.Error("stage failed",
			slog.String("stage", info.Name),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()))

		return nil, err
	}

	p.logger.Info("stage completed",
		slog.String("stage", info.Name),
		slog.Int("outputs", len(produced)),
		slog.Duration("duration", elapsed))

	return produced, nil
}

// reporter serialises the option hooks of concurrently running units.
func (p *Pipeline) reporter(info *model.StageInfo) Reporter {
	mu := &sync.Mutex{}

	return func(output model.Artifact, elapsed time.Duration) error {
		mu.Lock()
		defer mu.Unlock()

		for _, opt := range p.opts {
			err := opt.OnStageOutput(info, output, elapsed)
			if err != nil {
				return errors.Wrap(err, "unable to run stage output function")
			}
		}

		return nil
	}
}

// finishRun calls Finish on every option and returns the first error.
func (p *Pipeline) finishRun(runErr error) error {
	var first error

	for _, opt := range p.opts {
		err := opt.Finish(runErr)
		if err != nil && first == nil {
			first = errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return first
}

// removeStage drops a stage whose registration failed after it was linked.
func (p *Pipeline) removeStage(info *model.StageInfo) {
	_ = p.graph.RemoveEdge(info.InputName(), info.Name)
	_ = p.graph.RemoveVertex(info.Name)
	delete(p.position, info.Name)
}
