package model

type StageKind string

const (
	// PerFileStage runs its tool once per input artifact.
	PerFileStage StageKind = "per-file"
	// AggregateStage runs its tool once over the whole input manifest.
	AggregateStage StageKind = "aggregate"
)

// RawInput is the name under which the operator supplied samples are fed to the first stages.
const RawInput = "raw"

type StageInfo struct {
	Name string
	Kind StageKind
	// Input is the name of the stage whose manifest feeds this one. Empty means RawInput.
	Input      string
	OutputDir  string
	Concurrent int
}

// InputName returns the upstream stage name, RawInput when none is set.
func (s *StageInfo) InputName() string {
	if s.Input == "" {
		return RawInput
	}

	return s.Input
}

var (
	StartStage = &StageInfo{Name: "start"}
	EndStage   = &StageInfo{Name: "end"}
)
