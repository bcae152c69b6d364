// Package main is the entry point for the docq CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/docq/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(cli.GetExitCode(err))
}
