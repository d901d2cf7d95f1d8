package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-rnaseq/internal/store"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

func TestPipelineLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := openLedger(t)
	opt := store.PipelineLedger(ctx, ledger, "run")

	trim := &model.StageInfo{Name: "trim"}
	align := &model.StageInfo{Name: "align", Input: "trim"}
	produced := model.Manifest{{Sample: "sampleA", Path: "sampleA_trimmed.fq"}}
	failure := errors.New("hisat2 exited with status 1")

	require.NoError(t, opt.New())
	require.NoError(t, opt.PrepareStage(&model.StageInfo{Name: model.RawInput}, trim))
	require.NoError(t, opt.OnStageOutput(trim, produced[0], time.Millisecond))
	require.NoError(t, opt.AfterStage(trim, produced, time.Second, nil))
	require.NoError(t, opt.AfterStage(align, nil, time.Second, failure))
	require.NoError(t, opt.Finish(failure))

	runs, err := ledger.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusFailed, runs[0].Status)
	assert.Equal(t, failure.Error(), runs[0].Error)

	stages, err := ledger.StageRuns(ctx, "run")
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, store.StatusSucceeded, stages[0].Status)
	assert.Equal(t, 1, stages[0].Outputs)
	assert.Equal(t, store.StatusFailed, stages[1].Status)

	artifacts, err := ledger.Artifacts(ctx, "run", "trim")
	require.NoError(t, err)
	assert.Equal(t, produced, artifacts)
}

func TestPipelineLedgerMustBeSet(t *testing.T) {
	t.Parallel()

	assert.Error(t, store.PipelineLedger(context.Background(), nil, "run").New())
}
