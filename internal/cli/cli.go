// Package cli implements the rnaseq command: run the pipeline, check an environment or list
// the runs recorded in the ledger.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/internal/config"
	"github.com/askiada/go-rnaseq/pkg/executor"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitEnvironment = 2
	ExitExecution   = 3
	ExitFormat      = 4
	ExitUsage       = 64
)

const usage = `usage: rnaseq <command> [flags]

commands:
  run      run every stage, from quality reports to the volcano plot
  check    validate the configuration and the tools without running anything
  history  list the runs recorded in the ledger

Run "rnaseq <command> -h" for the flags of a command.
`

// App holds the outer dependencies of the command.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// EnvFile is the dotenv file read before the environment, ".env" when empty.
	EnvFile string
	// NewRunner builds the tool runner, an ExecRunner when nil.
	NewRunner func(logger *slog.Logger) executor.Runner
	// LookPath checks the tools are installed, ExecRunner.LookPath when nil.
	LookPath func(tools ...string) error
}

// Run executes the command line argv and returns the process exit code.
func (a *App) Run(ctx context.Context, argv []string) int {
	if len(argv) == 0 {
		fmt.Fprint(a.Stderr, usage)

		return ExitUsage
	}

	var err error

	switch argv[0] {
	case "run":
		err = a.run(ctx, argv[1:])
	case "check":
		err = a.check(argv[1:])
	case "history":
		err = a.history(ctx, argv[1:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(a.Stdout, usage)

		return ExitOK
	default:
		fmt.Fprintf(a.Stderr, "unknown command %q\n\n%s", argv[0], usage)

		return ExitUsage
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case err == errUsage: //nolint:errorlint
		// the flag set already printed the problem
		return ExitUsage
	}

	fmt.Fprintf(a.Stderr, "rnaseq %s: %v\n", argv[0], err)

	if errors.Is(err, errUsage) {
		return ExitUsage
	}

	return ExitCode(err)
}

var errUsage = errors.New("invalid usage")

// ExitCode maps an error to the exit code of its category.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, model.ErrEnvironment):
		return ExitEnvironment
	case errors.Is(err, model.ErrExecution):
		return ExitExecution
	case errors.Is(err, model.ErrFormat):
		return ExitFormat
	default:
		return ExitFailure
	}
}

// flags binds the configuration options to a flag set. Flag defaults are the values loaded
// from the environment, so a flag wins over both.
type flags struct {
	set       *flag.FlagSet
	cfg       *config.Config
	suffixes  string
	logLevel  string
	logFormat string
}

func (a *App) newFlags(name string) (*flags, error) {
	cfg, err := config.Load(a.EnvFile)
	if err != nil {
		return nil, err
	}

	f := &flags{
		set: flag.NewFlagSet("rnaseq "+name, flag.ContinueOnError),
		cfg: cfg,
	}
	f.set.SetOutput(a.Stderr)

	f.set.StringVar(&cfg.LedgerPath, "ledger", cfg.LedgerPath, `run ledger database, "none" disables it (default <results>/runs.db)`)
	f.set.StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "results root, one directory per stage")
	f.set.StringVar(&f.logLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	f.set.StringVar(&f.logFormat, "log-format", cfg.LogFormat, "log format: json or text")

	return f, nil
}

// pipelineFlags adds the options of a pipeline run.
func (f *flags) pipelineFlags() {
	cfg := f.cfg

	f.set.StringVar(&cfg.InputDir, "input", cfg.InputDir, "directory of the raw read files")
	f.set.StringVar(&cfg.GenomeIndex, "genome-index", cfg.GenomeIndex, "hisat2 genome index prefix")
	f.set.StringVar(&cfg.Annotation, "annotation", cfg.Annotation, "gene annotation file")
	f.set.StringVar(&cfg.Conditions, "conditions", cfg.Conditions, "sample to condition CSV table")
	f.set.StringVar(&cfg.Script, "script", cfg.Script, "differential expression R script")
	f.set.StringVar(&cfg.ToolsFile, "tools", cfg.ToolsFile, "YAML file overriding the tool command templates")
	f.set.StringVar(&cfg.GraphPath, "graph", cfg.GraphPath, `stage graph DOT file, "none" disables it (default <results>/pipeline.dot)`)
	f.set.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "samples processed at the same time by per-file stages")
	f.set.StringVar(&f.suffixes, "fastq-suffixes", strings.Join(cfg.FastqSuffixes, ","), "comma separated suffixes of the raw read files")
}

func (f *flags) parse(args []string) error {
	err := f.set.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}

		return errUsage
	}

	if f.set.NArg() > 0 {
		fmt.Fprintf(f.set.Output(), "unexpected arguments: %s\n", strings.Join(f.set.Args(), " "))

		return errUsage
	}

	if f.suffixes != "" {
		f.cfg.FastqSuffixes = config.SplitList(f.suffixes)
	}

	f.cfg.LogLevel, f.cfg.LogFormat = f.logLevel, f.logFormat

	return nil
}
