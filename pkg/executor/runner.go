package executor

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

const defaultStderrTail = 4096

// Runner runs one external command to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError is returned when a tool exits with a non zero status.
type ExitError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}

	return msg
}

func (e *ExitError) Unwrap() error {
	return model.ErrExecution
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	logger     *slog.Logger
	stdout     io.Writer
	stderrTail int
}

type ExecOption func(r *ExecRunner)

// ExecStdout sends the tools standard output to w. It is discarded by default.
func ExecStdout(w io.Writer) ExecOption {
	return func(r *ExecRunner) {
		r.stdout = w
	}
}

// ExecStderrTail sets how many trailing bytes of stderr are kept for error reports.
func ExecStderrTail(n int) ExecOption {
	return func(r *ExecRunner) {
		r.stderrTail = n
	}
}

func NewExecRunner(logger *slog.Logger, opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{
		logger:     logger,
		stdout:     io.Discard,
		stderrTail: defaultStderrTail,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run starts cmd and waits for it. The argument list is passed to the process unmodified.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	stderr := &tailBuffer{limit: r.stderrTail}

	proc := exec.CommandContext(ctx, cmd.Tool, cmd.Args...) //nolint:gosec
	proc.Dir = cmd.Dir
	proc.Stdout = r.stdout
	proc.Stderr = stderr

	r.logger.Debug("running tool", slog.String("tool", cmd.Tool), slog.Any("args", cmd.Args))

	start := time.Now()

	err := proc.Run()
	if err == nil {
		r.logger.Debug("tool completed", slog.String("tool", cmd.Tool), slog.Duration("duration", time.Since(start)))

		return nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(model.ErrEnvironment, "tool %s not found: %v", cmd.Tool, err)
	}

	if ctx.Err() != nil {
		return errors.Wrapf(ctx.Err(), "%s interrupted", cmd.Tool)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.logger.Error("tool failed",
			slog.String("tool", cmd.Tool),
			slog.Int("exit_code", exitErr.ExitCode()),
			slog.String("stderr", stderr.String()))

		return &ExitError{
			Tool:     cmd.Tool,
			Args:     cmd.Args,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}

	return errors.Wrapf(model.ErrExecution, "unable to run %s: %v", cmd.Tool, err)
}

// LookPath checks that every tool resolves to an executable.
func (r *ExecRunner) LookPath(tools ...string) error {
	missing := []string{}

	for _, tool := range tools {
		_, err := exec.LookPath(tool)
		if err != nil {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return errors.Wrapf(model.ErrEnvironment, "tools not found in PATH: %s", strings.Join(missing, ", "))
	}

	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if b.limit > 0 && len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
	}

	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}

var _ Runner = (*ExecRunner)(nil)
