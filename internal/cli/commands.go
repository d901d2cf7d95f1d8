package cli

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/internal/config"
	"github.com/askiada/go-rnaseq/internal/store"
	"github.com/askiada/go-rnaseq/pkg/executor"
	"github.com/askiada/go-rnaseq/pkg/namespace"
	"github.com/askiada/go-rnaseq/pkg/pipeline/drawer"
	"github.com/askiada/go-rnaseq/pkg/pipeline/measure"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
	"github.com/askiada/go-rnaseq/pkg/rnaseq"
)

// prepare parses the pipeline flags and checks the environment a run needs.
func (a *App) prepare(name string, args []string) (*config.Config, *config.Tools, *slog.Logger, error) {
	f, err := a.newFlags(name)
	if err != nil {
		return nil, nil, nil, err
	}

	f.pipelineFlags()

	err = f.parse(args)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg := f.cfg

	logger, err := newLogger(a.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, nil, nil, err
	}

	tools, err := config.LoadTools(cfg.ToolsFile)
	if err != nil {
		return nil, nil, nil, err
	}

	lookPath := a.LookPath
	if lookPath == nil {
		lookPath = executor.NewExecRunner(logger).LookPath
	}

	err = lookPath(tools.Executables()...)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, tools, logger, nil
}

func (a *App) check(args []string) error {
	cfg, tools, _, err := a.prepare("check", args)
	if err != nil {
		return err
	}

	raw, err := namespace.Discover(cfg.InputDir, cfg.FastqSuffixes...)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Stdout, "%d samples in %s: %v\n", len(raw), cfg.InputDir, raw.Samples())
	fmt.Fprintf(a.Stdout, "tools: %v\n", tools.Executables())

	return nil
}

func (a *App) run(ctx context.Context, args []string) error {
	cfg, tools, logger, err := a.prepare("run", args)
	if err != nil {
		return err
	}

	raw, err := namespace.Discover(cfg.InputDir, cfg.FastqSuffixes...)
	if err != nil {
		return err
	}

	err = namespace.EnsureDir(cfg.ResultsDir)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{measure.PipelineMeasure(msr)}

	if path := cfg.GraphFile(); path != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(path), msr))
	}

	if path := cfg.LedgerFile(); path != "" {
		ledger, err := store.Open(path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		// the outcome of an interrupted run is still recorded
		opts = append(opts, store.PipelineLedger(context.WithoutCancel(ctx), ledger, runID))
	}

	runner := executor.Runner(executor.NewExecRunner(logger))
	if a.NewRunner != nil {
		runner = a.NewRunner(logger)
	}

	pipe, err := rnaseq.Assemble(cfg, tools, runner, logger, opts...)
	if err != nil {
		return err
	}

	logger.Info("run started", slog.Int("samples", len(raw)), slog.String("results", cfg.ResultsDir))

	manifests, err := pipe.Run(ctx, raw)
	if err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))

		return errors.Wrapf(err, "run %s", runID)
	}

	logger.Info("run completed")

	order, err := pipe.Stages()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Stdout, "run %s completed\n", runID)

	tw := tabwriter.NewWriter(a.Stdout, 0, 4, 2, ' ', 0) //nolint:gomnd
	fmt.Fprintln(tw, "STAGE\tOUTPUTS\tTOTAL")

	for _, name := range order {
		total := time.Duration(0)
		if mt := msr.GetMetric(name); mt != nil {
			total = mt.GetTotalDuration()
		}

		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(manifests[name]), total)
	}

	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "unable to write summary")
	}

	if plot := manifests[rnaseq.Visualize]; len(plot) > 0 {
		fmt.Fprintf(a.Stdout, "volcano plot: %s\n", plot[0].Path)
	}

	return nil
}

func (a *App) history(ctx context.Context, args []string) error {
	f, err := a.newFlags("history")
	if err != nil {
		return err
	}

	limit := f.set.Int("limit", 20, "number of runs listed, 0 lists every run") //nolint:gomnd
	runID := f.set.String("run", "", "list the stages and artifacts of this run")

	err = f.parse(args)
	if err != nil {
		return err
	}

	path := f.cfg.LedgerFile()
	if path == "" {
		return errors.Wrap(errUsage, "the ledger is disabled")
	}

	ledger, err := store.Open(path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	tw := tabwriter.NewWriter(a.Stdout, 0, 4, 2, ' ', 0) //nolint:gomnd

	if *runID != "" {
		stages, err := ledger.StageRuns(ctx, *runID)
		if err != nil {
			return err
		}

		fmt.Fprintln(tw, "STAGE\tSTATUS\tOUTPUTS\tDURATION\tERROR")

		for _, stage := range stages {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", stage.Stage, stage.Status, stage.Outputs, stage.Duration, stage.Error)
		}

		fmt.Fprintln(tw, "\nSTAGE\tSAMPLE\tPATH")

		for _, stage := range stages {
			artifacts, err := ledger.Artifacts(ctx, *runID, stage.Stage)
			if err != nil {
				return err
			}

			for _, artifact := range artifacts {
				sample := artifact.Sample
				if sample == "" {
					sample = "-"
				}

				fmt.Fprintf(tw, "%s\t%s\t%s\n", stage.Stage, sample, artifact.Path)
			}
		}

		return errors.Wrap(tw.Flush(), "unable to write stages")
	}

	runs, err := ledger.Runs(ctx, *limit)
	if err != nil {
		return err
	}

	fmt.Fprintln(tw, "RUN\tSTATUS\tSTARTED\tDURATION\tERROR")

	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", run.ID, run.Status, run.StartedAt.Format(time.RFC3339), duration, run.Error)
	}

	return errors.Wrap(tw.Flush(), "unable to write runs")
}
