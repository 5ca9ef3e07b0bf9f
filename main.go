package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gopi/adapters/api"
	"gopi/adapters/critical"
	"gopi/adapters/excel"
	"gopi/adapters/postgres"
	"gopi/adapters/report"
	"gopi/adapters/rng"
	"gopi/app"
	"gopi/internal"
	"gopi/internal/config"
	"gopi/internal/jobs"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(appConfig.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	criticalValues, err := critical.ForName(appConfig.Experiment.CriticalValues)
	if err != nil {
		log.Fatalf("Failed to select critical values: %v", err)
	}
	if appConfig.Experiment.CriticalValues == critical.SourceReference {
		logger.Warn("Using the reference t-table: its 0.99 and 0.9995 intervals are narrower than labelled")
	}

	service := app.NewExperimentService(rng.NewStreamFactory(), criticalValues, appConfig.Experiment, logger)
	if appConfig.Database.Enabled() {
		db, err := postgres.Open(ctx, appConfig.Database)
		if err != nil {
			log.Fatalf("Failed to initialize run archive: %v", err)
		}
		defer db.Close()
		service.WithRepository(postgres.NewRunRepository(db))
		logger.Info("🗄️ Run archive enabled")
	}

	manager := jobs.NewManager(service, appConfig.Jobs, logger)
	manager.Start(ctx)

	handler := api.NewServer(service, logger,
		excel.NewReportWriter(),
		report.NewMarkdownWriter(),
		report.NewHTMLWriter(),
	).WithJobs(manager)

	server := &http.Server{
		Addr:         ":" + appConfig.Server.Port,
		Handler:      handler,
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed: %v", err)
		}
	}()

	logger.Info("🚀 Starting gopi server on port %s (trials=%d points=%d confidence=%g workers=%d)",
		appConfig.Server.Port, appConfig.Experiment.Trials, appConfig.Experiment.PointsPerTrial,
		appConfig.Experiment.Confidence, appConfig.Experiment.Workers)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	manager.Wait()
	logger.Info("server stopped")
}
