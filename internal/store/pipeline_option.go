package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

type ledgerOption struct {
	ctx    context.Context //nolint:containedctx
	ledger *Ledger
	runID  string
}

var _ model.PipelineOption = (*ledgerOption)(nil)

func (o *ledgerOption) New() error {
	if o.ledger == nil {
		return errors.New("ledger must be set")
	}

	return o.ledger.StartRun(o.ctx, o.runID, time.Now())
}

func (o *ledgerOption) PrepareStage(_, _ *model.StageInfo) error {
	return nil
}

func (o *ledgerOption) OnStageOutput(_ *model.StageInfo, _ model.Artifact, _ time.Duration) error {
	return nil
}

func (o *ledgerOption) AfterStage(stage *model.StageInfo, produced model.Manifest, totalDuration time.Duration, stageErr error) error {
	status, message := outcome(stageErr)

	err := o.ledger.RecordStage(o.ctx, StageRun{
		RunID:      o.runID,
		Stage:      stage.Name,
		Status:     status,
		Error:      message,
		Outputs:    len(produced),
		Duration:   totalDuration,
		FinishedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	return o.ledger.RecordArtifacts(o.ctx, o.runID, stage.Name, produced)
}

func (o *ledgerOption) Finish(runErr error) error {
	return o.ledger.FinishRun(o.ctx, o.runID, runErr, time.Now())
}

// PipelineLedger records the run, its stages and their artifacts in ledger under runID.
// Writes are bound to ctx, a ledger that outlives a cancelled run should get a context that
// is not cancelled with it.
func PipelineLedger(ctx context.Context, ledger *Ledger, runID string) model.PipelineOption {
	return &ledgerOption{
		ctx:    ctx,
		ledger: ledger,
		runID:  runID,
	}
}
