package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/askiada/go-rnaseq/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	app := &cli.App{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		EnvFile: os.Getenv("RNASEQ_ENV_FILE"),
	}

	code := app.Run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
