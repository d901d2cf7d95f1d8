package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/measure"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	pd.startTime = time.Now()

	err := pd.AddStage(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = pd.AddStage(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStage(parentStage, stage *model.StageInfo) error {
	err := pd.AddStage(stage.Name)
	if err != nil {
		return err
	}

	parent := parentStage.Name
	if parent == model.RawInput {
		parent = model.StartStage.Name
	}

	return pd.AddLink(parent, stage.Name)
}

func (pd *pipelineDrawer) OnStageOutput(*model.StageInfo, model.Artifact, time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) AfterStage(*model.StageInfo, model.Manifest, time.Duration, error) error {
	return nil
}

// Finish links the leaf stages to the end vertex and writes the graph, whether the run
// failed or not.
func (pd *pipelineDrawer) Finish(error) error {
	leaves, err := pd.Leaves()
	if err != nil {
		return errors.Wrap(err, "unable to get leaf stages")
	}

	for _, leaf := range leaves {
		err := pd.AddLink(leaf, model.EndStage.Name)
		if err != nil {
			return err
		}
	}

	err = pd.SetTotalTime(model.EndStage.Name, pd.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the stage graph when the run finishes. measure may be nil.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
