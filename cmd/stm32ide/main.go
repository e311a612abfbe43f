// Package main provides the entry point for the stm32ide CLI tool.
package main

import (
	"context"
	"os"

	"github.com/jhonToni/VS-Code-STM32-IDE/cmd/stm32ide/app"
)

// Version information populated by the release build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Create context with signal handling so a pending prompt or make run is interrupted
	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	if err := application.Execute(ctx, os.Args[1:]); err != nil {
		application.ReportError(err)
		cancel()
		os.Exit(1)
	}
}
