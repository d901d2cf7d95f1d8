package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// PrepareStage runs when a stage is added to the pipeline.
	PrepareStage(parentStage, stage *StageInfo) error
	// OnStageOutput runs everytime a per-file unit of work of the stage completes.
	OnStageOutput(stage *StageInfo, output Artifact, computationDuration time.Duration) error
	// AfterStage runs after the stage returned, successfully or not.
	AfterStage(stage *StageInfo, produced Manifest, totalDuration time.Duration, stageErr error) error
	// Finish runs after the pipeline is finished. runErr is the error the run stopped on.
	Finish(runErr error) error
}
