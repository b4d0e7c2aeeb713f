package commands

import (
	"context"
	"fmt"

	"github.com/ALEXSANDER2002/aritana/internal/cache"
	"github.com/ALEXSANDER2002/aritana/internal/config"
	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path of the .env file to load",
		Value: ".env",
	}
}

// NewApp builds the aritanactl command tree.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "aritanactl",
		Usage: "operate the ARITANA vessel classification tracker",
		Commands: []*cli.Command{
			{
				Name:  "health",
				Usage: "check whether the analysis gateway is online",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "print details about the probe",
					},
					&cli.BoolFlag{
						Name:  "exit-code",
						Usage: "exit with status 1 when the gateway is offline",
					},
				},
				Action: HealthAction,
			},
			{
				Name:  "poll",
				Usage: "poll every in-flight job once",
				Flags: []cli.Flag{
					envFlag(),
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "maximum gateway polls per second",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the summary as JSON",
					},
				},
				Action: PollAction,
			},
			{
				Name:  "stats",
				Usage: "show legality counts per region from the gateway catalog",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the statistics as JSON",
					},
				},
				Action: StatsAction,
			},
		},
	}
}

func gatewayClient(cfg config.GatewayConfig) *gateway.HTTPClient {
	return gateway.NewHTTPClient(gateway.Options{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		SubmitTimeout:   cfg.SubmitTimeout,
		PollTimeout:     cfg.PollTimeout,
		FetchTimeout:    cfg.FetchTimeout,
		HealthTimeout:   cfg.HealthTimeout,
		CatalogTimeout:  cfg.CatalogTimeout,
		MaxRetries:      cfg.MaxRetries,
		RetryInterval:   cfg.RetryInterval,
		CatalogPageSize: cfg.CatalogPageSize,
		CatalogMaxPages: cfg.CatalogMaxPages,
	})
}

// appContext holds the connections a database-backed command needs.
type appContext struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Cache   *cache.RedisCache
	Store   store.Store
	Gateway gateway.Client
}

func newAppContext(ctx context.Context, envFile string) (*appContext, error) {
	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	rc, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create redis cache: %w", err)
	}

	return &appContext{
		Config:  cfg,
		Pool:    pool,
		Cache:   rc,
		Store:   store.NewPostgresStore(pool),
		Gateway: gatewayClient(cfg.Gateway),
	}, nil
}

func (a *appContext) Close() {
	_ = a.Cache.Close()
	a.Pool.Close()
}
