// Command aritanactl is the operator CLI: gateway health probe, one-shot reconciliation
// pass for cron, and catalog statistics.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ALEXSANDER2002/aritana/cmd/aritanactl/commands"
	"github.com/ALEXSANDER2002/aritana/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Setup(os.Stderr, logging.Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "console",
	})

	if err := commands.NewApp().Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
