package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ALEXSANDER2002/aritana/internal/reconcile"
	"github.com/urfave/cli/v3"
)

// PollAction runs one reconciliation pass over every submitted or processing job.
func PollAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	rate := cmd.Float("rate")
	burst := int(rate)
	if burst < 1 {
		burst = 1
	}
	engine := reconcile.NewEngine(app.Gateway, app.Store, app.Cache,
		reconcile.WithMaxAttempts(app.Config.Tracking.MaxPollAttempts),
		reconcile.WithSweepRate(rate, burst))

	sum, err := engine.PollInFlight(ctx)
	if err != nil {
		return fmt.Errorf("poll in-flight jobs: %w", err)
	}
	return printSummary(cmd.Root().Writer, sum, cmd.Bool("json"))
}

func printSummary(w io.Writer, sum reconcile.Summary, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(sum)
	}
	_, err := fmt.Fprintf(w, "polled %d jobs: %d analyzed, %d errored, %d failed to poll\n",
		sum.Polled, sum.Analyzed, sum.Errored, sum.Failed)
	return err
}
