package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ALEXSANDER2002/aritana/internal/analysis"
	"github.com/ALEXSANDER2002/aritana/internal/config"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// StatsAction reads the gateway catalog and prints legality counts per region.
func StatsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadGateway(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	records, err := gatewayClient(cfg).ListCatalog(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	return renderStats(cmd.Root().Writer, analysis.RegionalStats(records), cmd.Bool("json"))
}

func renderStats(w io.Writer, stats models.RegionalStats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(w, "%d classified vessels: %d legal, %d illegal (%.2f%% legal)\n\n",
		stats.Total, stats.Legality.Legal, stats.Legality.Illegal, stats.LegalRate)

	table := tablewriter.NewWriter(w)
	table.Header("Região", "Legais", "Ilegais", "Total")
	for _, r := range stats.Regions {
		if err := table.Append(r.Name, fmt.Sprint(r.Legal), fmt.Sprint(r.Illegal), fmt.Sprint(r.Total)); err != nil {
			return err
		}
	}
	return table.Render()
}
