package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/config"
	"github.com/urfave/cli/v3"
)

type prober interface {
	HealthCheck(ctx context.Context) bool
}

// HealthAction probes the gateway's ping endpoint. With --exit-code an offline gateway
// makes the command exit with status 1, for scripts and cron.
func HealthAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadGateway(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	healthy := checkHealth(ctx, cmd.Root().Writer, gatewayClient(cfg), cfg.BaseURL, cmd.Bool("verbose"))
	if !healthy && cmd.Bool("exit-code") {
		return cli.Exit("", 1)
	}
	return nil
}

func checkHealth(ctx context.Context, w io.Writer, p prober, baseURL string, verbose bool) bool {
	if verbose {
		fmt.Fprintf(w, "Checking analysis gateway at %s...\n", baseURL)
	}

	start := time.Now()
	healthy := p.HealthCheck(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)

	if healthy {
		fmt.Fprintln(w, "[OK] analysis gateway is online")
		if verbose {
			fmt.Fprintln(w, "  - endpoint: /ping")
			fmt.Fprintf(w, "  - latency: %s\n", elapsed)
		}
		return true
	}

	fmt.Fprintln(w, "[ERROR] analysis gateway is offline or unreachable")
	if verbose {
		fmt.Fprintln(w, "  - check GATEWAY_BASE_URL")
		fmt.Fprintln(w, "  - check network connectivity")
		fmt.Fprintln(w, "  - see the logs above for the failure")
	}
	return false
}
