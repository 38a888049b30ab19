package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/spinel/internal/config"
	"github.com/agenthands/spinel/internal/driver"
	"github.com/agenthands/spinel/internal/logger"
	"github.com/agenthands/spinel/internal/store"
)

var cfgPath string

func main() {
	// Optional .env for local development, matching the store defaults.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "spinel",
		Short:         "Curate imported crystal structures into a unique reference set",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config/config.toml", "path to the TOML configuration file")

	root.AddCommand(newUniqCmd(), newSelectCmd(), newStatsCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// partialOccupancyFilter resolves the mutually exclusive
// --partial-occupancies / --no-partial-occupancies pair into a tri-state
// filter value. Both at once is a conflicting filter combination and
// aborts before anything is computed.
func partialOccupancyFilter(cmd *cobra.Command) (*bool, error) {
	with := cmd.Flags().Changed("partial-occupancies")
	without := cmd.Flags().Changed("no-partial-occupancies")
	if with && without {
		return nil, errors.New("--partial-occupancies and --no-partial-occupancies are mutually exclusive")
	}
	if !with && !without {
		return nil, nil
	}
	value := with
	return &value, nil
}

// app bundles the handles every command needs: configuration, logger and an
// explicit store handle (no global session state).
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	driver *driver.MemgraphDriver
	store  *store.GraphStore
}

func setup() (*app, error) {
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	d, err := driver.NewMemgraphDriver(cfg.Store.URI, cfg.Store.User, cfg.Store.Password, log)
	if err != nil {
		return nil, err
	}
	if err := d.BuildIndices(context.Background()); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, driver: d, store: store.NewGraphStore(d)}, nil
}

func (a *app) close(ctx context.Context) {
	_ = a.driver.Close(ctx)
	_ = a.log.Sync()
}
