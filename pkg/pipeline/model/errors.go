package model

import "github.com/pkg/errors"

// Every fatal pipeline error wraps exactly one of these.
var (
	// ErrEnvironment reports a missing tool, directory or file.
	ErrEnvironment = errors.New("environment error")
	// ErrExecution reports an external tool exiting with a failure status.
	ErrExecution = errors.New("execution error")
	// ErrFormat reports a table that does not have the expected shape.
	ErrFormat = errors.New("format error")
)
