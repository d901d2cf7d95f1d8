package measure

import (
	"time"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()
	pm.AddMetric(model.StartStage.Name, 1)
	pm.AddMetric(model.EndStage.Name, 1)

	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *model.StageInfo) error {
	pm.AddMetric(stage.Name, stage.Concurrent)

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(stage *model.StageInfo, _ model.Artifact, computationDuration time.Duration) error {
	if mt := pm.GetMetric(stage.Name); mt != nil {
		mt.AddDuration(computationDuration)
	}

	return nil
}

func (pm *pipelineMeasure) AfterStage(stage *model.StageInfo, _ model.Manifest, totalDuration time.Duration, stageErr error) error {
	if mt := pm.GetMetric(stage.Name); mt != nil {
		mt.SetTotalDuration(totalDuration)
		mt.SetFailed(stageErr != nil)
	}

	return nil
}

func (pm *pipelineMeasure) Finish(runErr error) error {
	if mt := pm.GetMetric(model.EndStage.Name); mt != nil {
		mt.SetTotalDuration(time.Since(pm.startTime))
		mt.SetFailed(runErr != nil)
	}

	return nil
}

// PipelineMeasure records the duration of every stage and of its per-file units.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
