package pipeline

import "github.com/askiada/go-rnaseq/pkg/pipeline/model"

type StageOption func(s *model.StageInfo)

// StageConcurrency sets how many per-file units of the stage run at the same time.
func StageConcurrency(concurrent int) StageOption {
	return func(s *model.StageInfo) {
		s.Concurrent = concurrent
	}
}

// StageInput sets the stage whose manifest feeds this stage.
func StageInput(name string) StageOption {
	return func(s *model.StageInfo) {
		s.Input = name
	}
}
