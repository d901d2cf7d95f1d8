package drawer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-rnaseq/pkg/pipeline/drawer"
	"github.com/askiada/go-rnaseq/pkg/pipeline/measure"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	dotFile := filepath.Join(t.TempDir(), "pipeline.dot")
	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(dotFile), msr),
	}

	raw := &model.StageInfo{Name: model.RawInput}
	qc := &model.StageInfo{Name: "qc"}
	trim := &model.StageInfo{Name: "trim"}
	align := &model.StageInfo{Name: "align", Input: "trim"}

	for _, opt := range opts {
		require.NoError(t, opt.New())
		require.NoError(t, opt.PrepareStage(raw, qc))
		require.NoError(t, opt.PrepareStage(raw, trim))
		require.NoError(t, opt.PrepareStage(trim, align))
		require.NoError(t, opt.AfterStage(qc, nil, time.Second, nil))
		require.NoError(t, opt.AfterStage(trim, nil, 3*time.Second, nil))
		require.NoError(t, opt.AfterStage(align, nil, 2*time.Second, assert.AnError))
		require.NoError(t, opt.Finish(assert.AnError))
	}

	content, err := os.ReadFile(dotFile)
	require.NoError(t, err)

	got := string(content)
	assert.Contains(t, got, "strict digraph")
	assert.Contains(t, got, `"start" -> "qc"`)
	assert.Contains(t, got, `"start" -> "trim"`)
	assert.Contains(t, got, `"trim" -> "align"`)
	assert.Contains(t, got, `"qc" -> "end"`)
	assert.Contains(t, got, `"align" -> "end"`)
	assert.NotContains(t, got, `"trim" -> "end"`)
	assert.Contains(t, got, `fillcolor="#ff9999"`)
	// slowest stage is red, fastest blue
	assert.Contains(t, got, `color="#f00000"`)
	assert.Contains(t, got, `color="#0000f0"`)
}

func TestDOTDrawerLeaves(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "x.dot"))
	require.NoError(t, d.AddStage("start"))
	require.NoError(t, d.AddStage("end"))
	require.NoError(t, d.AddStage("a"))
	require.NoError(t, d.AddStage("b"))
	require.NoError(t, d.AddLink("start", "a"))
	require.NoError(t, d.AddLink("a", "b"))

	leaves, err := d.Leaves()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, leaves)
	assert.Error(t, d.AddLink("a", "missing"))
}
