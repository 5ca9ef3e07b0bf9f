package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gopi/adapters/critical"
	"gopi/adapters/postgres"
	"gopi/adapters/rng"
	"gopi/app"
	"gopi/internal"
	"gopi/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gopi",
		Short: "Monte Carlo estimation of π with confidence intervals",
		Long: `gopi estimates π by sampling points in the unit square and counting those
inside the quarter disk, repeats the estimate over independent trials and
reduces the trials to a confidence interval.

Defaults and limits come from the environment (PI_TRIALS, PI_POINTS,
PI_CONFIDENCE, PI_SEED_KEY, PI_WORKERS, PI_MAX_TRIALS, PI_MAX_POINTS,
PI_MAX_BATCH_RUNS, PI_CRITICAL_VALUES, LOG_LEVEL). Critical values are exact
Student t quantiles unless PI_CRITICAL_VALUES=reference.
With DATABASE_URL set, every report is archived and "runs" lists the archive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newEstimateCmd(),
		newExperimentCmd(),
		newIntervalCmd(),
		newConvergenceCmd(),
		newCriticalCmd(),
		newBatchCmd(),
		newExportCmd(),
		newRunsCmd(),
	)

	return rootCmd
}

// environment is what every command runs against
type environment struct {
	config  *config.Config
	logger  *internal.Logger
	service  *app.ExperimentService
	critical *critical.Chain
	db       *sqlx.DB
}

func loadEnvironment() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	criticalValues, err := critical.ForName(cfg.Experiment.CriticalValues)
	if err != nil {
		return nil, err
	}

	logger := internal.NewLogger(cfg.Log.Level)
	service := app.NewExperimentService(rng.NewStreamFactory(), criticalValues, cfg.Experiment, logger)
	env := &environment{config: cfg, logger: logger, service: service, critical: criticalValues}

	if cfg.Database.Enabled() {
		db, err := postgres.Open(context.Background(), cfg.Database)
		if err != nil {
			return nil, err
		}
		env.db = db
		service.WithRepository(postgres.NewRunRepository(db))
	}

	return env, nil
}

// Close releases the archive connection, if any
func (e *environment) Close() {
	if e.db != nil {
		e.db.Close()
	}
}
