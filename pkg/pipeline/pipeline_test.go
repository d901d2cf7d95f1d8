package pipeline_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-rnaseq/pkg/pipeline"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

type fakeStage struct {
	info  *model.StageInfo
	calls *[]string
	err   error
}

func newFakeStage(name, input string, calls *[]string) *fakeStage {
	return &fakeStage{info: &model.StageInfo{Name: name, Input: input, Kind: model.PerFileStage}, calls: calls}
}

func (s *fakeStage) Info() *model.StageInfo {
	return s.info
}

func (s *fakeStage) Run(ctx context.Context, input model.Manifest, report pipeline.Reporter) (model.Manifest, error) {
	*s.calls = append(*s.calls, s.info.Name)
	if s.err != nil {
		return nil, s.err
	}

	return pipeline.PerFile(ctx, s.info, input, report, func(_ context.Context, in model.Artifact) (model.Manifest, error) {
		return model.Manifest{{Sample: in.Sample, Path: in.Path + "." + s.info.Name}}, nil
	})
}

type recordingOption struct {
	prepared []string
	outputs  map[string]int
	after    map[string]error
	finished bool
	runErr   error
}

func newRecordingOption() *recordingOption {
	return &recordingOption{outputs: map[string]int{}, after: map[string]error{}}
}

func (o *recordingOption) New() error { return nil }

func (o *recordingOption) PrepareStage(parent, stage *model.StageInfo) error {
	o.prepared = append(o.prepared, parent.Name+"->"+stage.Name)

	return nil
}

func (o *recordingOption) OnStageOutput(stage *model.StageInfo, _ model.Artifact, _ time.Duration) error {
	o.outputs[stage.Name]++

	return nil
}

func (o *recordingOption) AfterStage(stage *model.StageInfo, _ model.Manifest, _ time.Duration, err error) error {
	o.after[stage.Name] = err

	return nil
}

func (o *recordingOption) Finish(runErr error) error {
	o.finished = true
	o.runErr = runErr

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func rawManifest() model.Manifest {
	return model.Manifest{
		{Sample: "sampleA", Path: "/raw/sampleA.fastq"},
		{Sample: "sampleB", Path: "/raw/sampleB.fastq"},
	}
}

func TestAddStageNilPipe(t *testing.T) {
	t.Parallel()

	var pipe *pipeline.Pipeline
	err := pipe.AddStage(newFakeStage("qc", "", &[]string{}))
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStageNilStage(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)
	require.ErrorIs(t, pipe.AddStage(nil), pipeline.ErrStageMustBeSet)
}

func TestAddStageDuplicate(t *testing.T) {
	t.Parallel()

	calls := []string{}
	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)
	require.NoError(t, pipe.AddStage(newFakeStage("qc", "", &calls)))
	require.ErrorIs(t, pipe.AddStage(newFakeStage("qc", "", &calls)), pipeline.ErrDuplicateStage)
	require.ErrorIs(t, pipe.AddStage(newFakeStage(model.RawInput, "", &calls)), pipeline.ErrDuplicateStage)
}

func TestAddStageUnknownInput(t *testing.T) {
	t.Parallel()

	calls := []string{}
	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)
	require.ErrorIs(t, pipe.AddStage(newFakeStage("align", "trim", &calls)), pipeline.ErrUnknownInput)

	// the rejected stage must not linger in the graph
	require.NoError(t, pipe.AddStage(newFakeStage("trim", "", &calls)))
	require.NoError(t, pipe.AddStage(newFakeStage("align", "trim", &calls)))
}

func TestAddStageInputOption(t *testing.T) {
	t.Parallel()

	calls := []string{}
	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)

	require.NoError(t, pipe.AddStage(newFakeStage("trim", "", &calls)))

	align := newFakeStage("align", "", &calls)
	require.NoError(t, pipe.AddStage(align, pipeline.StageInput("trim"), pipeline.StageConcurrency(4)))
	assert.Equal(t, "trim", align.Info().Input)
	assert.Equal(t, 4, align.Info().Concurrent)
}

func TestRun(t *testing.T) {
	t.Parallel()

	calls := []string{}
	opt := newRecordingOption()
	pipe, err := pipeline.New(testLogger(), opt)
	require.NoError(t, err)

	require.NoError(t, pipe.AddStage(newFakeStage("qc", "", &calls)))
	require.NoError(t, pipe.AddStage(newFakeStage("trim", "", &calls)))
	require.NoError(t, pipe.AddStage(newFakeStage("align", "trim", &calls)))

	order, err := pipe.Stages()
	require.NoError(t, err)
	assert.Equal(t, []string{"qc", "trim", "align"}, order)

	got, err := pipe.Run(context.Background(), rawManifest())
	require.NoError(t, err)

	assert.Equal(t, []string{"qc", "trim", "align"}, calls)
	assert.Equal(t, model.Manifest{
		{Sample: "sampleA", Path: "/raw/sampleA.fastq.trim.align"},
		{Sample: "sampleB", Path: "/raw/sampleB.fastq.trim.align"},
	}, got["align"])
	assert.Equal(t, model.Manifest{
		{Sample: "sampleA", Path: "/raw/sampleA.fastq.qc"},
		{Sample: "sampleB", Path: "/raw/sampleB.fastq.qc"},
	}, got["qc"])

	assert.Equal(t, []string{"raw->qc", "raw->trim", "trim->align"}, opt.prepared)
	assert.Equal(t, map[string]int{"qc": 2, "trim": 2, "align": 2}, opt.outputs)
	assert.True(t, opt.finished)
	assert.NoError(t, opt.runErr)
}

func TestRunStopsOnFailure(t *testing.T) {
	t.Parallel()

	calls := []string{}
	opt := newRecordingOption()
	pipe, err := pipeline.New(testLogger(), opt)
	require.NoError(t, err)

	align := newFakeStage("align", "", &calls)
	align.err = assert.AnError

	require.NoError(t, pipe.AddStage(align))
	require.NoError(t, pipe.AddStage(newFakeStage("count", "align", &calls)))

	got, err := pipe.Run(context.Background(), rawManifest())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "stage align failed")

	assert.Equal(t, []string{"align"}, calls)
	assert.NotContains(t, got, "align")
	assert.ErrorIs(t, opt.after["align"], assert.AnError)
	assert.NotContains(t, opt.after, "count")
	assert.True(t, opt.finished)
	assert.ErrorIs(t, opt.runErr, assert.AnError)
}

func TestRunNoSamples(t *testing.T) {
	t.Parallel()

	calls := []string{}
	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)
	require.NoError(t, pipe.AddStage(newFakeStage("qc", "", &calls)))

	_, err = pipe.Run(context.Background(), nil)
	require.ErrorIs(t, err, model.ErrEnvironment)
	assert.Empty(t, calls)
}

type emptyStage struct {
	info *model.StageInfo
}

func (s *emptyStage) Info() *model.StageInfo { return s.info }

func (s *emptyStage) Run(context.Context, model.Manifest, pipeline.Reporter) (model.Manifest, error) {
	return nil, nil
}

func TestRunEmptyUpstream(t *testing.T) {
	t.Parallel()

	calls := []string{}
	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)
	require.NoError(t, pipe.AddStage(&emptyStage{info: &model.StageInfo{Name: "trim"}}))
	require.NoError(t, pipe.AddStage(newFakeStage("align", "trim", &calls)))

	_, err = pipe.Run(context.Background(), rawManifest())
	require.ErrorIs(t, err, model.ErrEnvironment)
	assert.Empty(t, calls)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	calls := []string{}
	pipe, err := pipeline.New(testLogger())
	require.NoError(t, err)
	require.NoError(t, pipe.AddStage(newFakeStage("qc", "", &calls)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pipe.Run(ctx, rawManifest())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

// failingOption fails the hooks whose error is set.
type failingOption struct {
	*recordingOption
	prepareErr error
	afterErr   error
	finishErr  error
}

func (o *failingOption) PrepareStage(parent, stage *model.StageInfo) error {
	if o.prepareErr != nil {
		return o.prepareErr
	}

	return o.recordingOption.PrepareStage(parent, stage)
}

func (o *failingOption) AfterStage(stage *model.StageInfo, produced model.Manifest, total time.Duration, err error) error {
	_ = o.recordingOption.AfterStage(stage, produced, total, err)

	return o.afterErr
}

func (o *failingOption) Finish(runErr error) error {
	_ = o.recordingOption.Finish(runErr)

	return o.finishErr
}

func TestAddStagePrepareFailure(t *testing.T) {
	t.Parallel()

	calls := []string{}
	failing := &failingOption{recordingOption: newRecordingOption(), prepareErr: assert.AnError}
	pipe, err := pipeline.New(testLogger(), failing)
	require.NoError(t, err)

	require.ErrorIs(t, pipe.AddStage(newFakeStage("qc", "", &calls)), assert.AnError)

	order, err := pipe.Stages()
	require.NoError(t, err)
	assert.Empty(t, order)

	failing.prepareErr = nil

	require.NoError(t, pipe.AddStage(newFakeStage("qc", "", &calls)))

	order, err = pipe.Stages()
	require.NoError(t, err)
	assert.Equal(t, []string{"qc"}, order)
}

func TestRunAfterStageKeepsStageError(t *testing.T) {
	t.Parallel()

	calls := []string{}
	failing := &failingOption{recordingOption: newRecordingOption(), afterErr: errors.New("ledger unavailable")}
	later := newRecordingOption()
	pipe, err := pipeline.New(testLogger(), failing, later)
	require.NoError(t, err)

	qc := newFakeStage("qc", "", &calls)
	qc.err = assert.AnError
	require.NoError(t, pipe.AddStage(qc))

	_, err = pipe.Run(context.Background(), rawManifest())
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, assert.AnError, later.after["qc"])
}

func TestRunFinishesEveryOption(t *testing.T) {
	t.Parallel()

	finishErr := errors.New("unable to write graph")

	tcs := map[string]struct {
		stageErr error
		wantErr  error
	}{
		"successful run": {wantErr: finishErr},
		"failed run":     {stageErr: assert.AnError, wantErr: assert.AnError},
	}

	for name, tc := range tcs {
		name, tc := name, tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			calls := []string{}
			failing := &failingOption{recordingOption: newRecordingOption(), finishErr: finishErr}
			later := newRecordingOption()
			pipe, err := pipeline.New(testLogger(), failing, later)
			require.NoError(t, err)

			qc := newFakeStage("qc", "", &calls)
			qc.err = tc.stageErr
			require.NoError(t, pipe.AddStage(qc))

			_, err = pipe.Run(context.Background(), rawManifest())
			require.ErrorIs(t, err, tc.wantErr)

			assert.True(t, failing.finished)
			assert.True(t, later.finished)
			assert.Equal(t, tc.stageErr, errors.Cause(later.runErr))
		})
	}
}
