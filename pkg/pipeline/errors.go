package pipeline

import (
	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("p must be set")
	ErrStageMustBeSet    = errors.New("stage must be set")
	ErrDuplicateStage    = errors.New("stage already exists")
	ErrUnknownInput      = errors.New("input stage does not exist")
)
