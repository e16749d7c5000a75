package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"venue-recommender/internal/common/camunda"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/observability"
	"venue-recommender/internal/common/validation"
	"venue-recommender/internal/recommendation"
	"venue-recommender/internal/scoring"

	pe "venue-recommender/internal/workers/venue/parse-event-requirements"
	rv "venue-recommender/internal/workers/venue/recommend-venues"
	sv "venue-recommender/internal/workers/venue/score-venue"
)

// retryWithBackoff retries operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting worker manager",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("catalogBackend", cfg.Catalog.Backend),
	)

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	}, zapLog)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := connectDependencies(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("dependency setup failed", zap.Error(err))
	}
	defer deps.Close()

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.Plaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, zapLog)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	defer zeebe.Close()
	deps.checks["zeebe"] = zeebe.HealthCheck

	validator, err := validation.LoadSchemaValidator(cfg.App.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.App.RegistryPath))
	}

	calc, err := scoring.NewCalculator(scoring.Config{
		CapacityStrategy: cfg.Scoring.CapacityStrategy,
		StandardWeights:  cfg.Scoring.StandardWeights,
		ProximityWeights: cfg.Scoring.ProximityWeights,
	})
	if err != nil {
		zapLog.Fatal("invalid scoring configuration", zap.Error(err))
	}

	store, err := buildCatalog(ctx, cfg, deps, log)
	if err != nil {
		zapLog.Fatal("catalog setup failed", zap.Error(err))
	}

	oracle, err := buildWeatherOracle(cfg, deps, log)
	if err != nil {
		zapLog.Fatal("weather client setup failed", zap.Error(err))
	}

	engine := recommendation.NewEngine(calc, store, oracle, recommendation.ConfigFrom(cfg), log, obs)

	workers, err := startWorkers(cfg, zeebe, calc, engine, validator, log, obs, zapLog)
	if err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}

	srv := newHealthServer(cfg.App.HTTPAddress, deps.checks, zapLog)
	go func() {
		zapLog.Info("health/metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("health/metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutdown signal received, stopping workers")

	for _, w := range workers {
		w.Close()
	}
	for _, w := range workers {
		w.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("health server shutdown failed", zap.Error(err))
	}

	zapLog.Info("worker manager stopped gracefully")
}

func startWorkers(
	cfg *config.Config,
	zeebe *camunda.Client,
	calc *scoring.Calculator,
	engine *recommendation.Engine,
	validator *validation.SchemaValidator,
	log logger.Logger,
	obs *observability.Observability,
	zapLog *zap.Logger,
) ([]worker.JobWorker, error) {
	parseHandler, err := pe.NewHandler(pe.HandlerOptions{
		AppConfig: cfg,
		Validator: validator,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	scoreHandler, err := sv.NewHandler(sv.HandlerOptions{
		AppConfig:     cfg,
		Calculator:    calc,
		Validator:     validator,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	recommendHandler, err := rv.NewHandler(rv.HandlerOptions{
		AppConfig: cfg,
		Engine:    engine,
		Validator: validator,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	registrations := []struct {
		taskType string
		handle   camunda.HandlerFunc
	}{
		{pe.TaskType, parseHandler.Handle},
		{sv.TaskType, scoreHandler.Handle},
		{rv.TaskType, recommendHandler.Handle},
	}

	var workers []worker.JobWorker
	for _, r := range registrations {
		wcfg := config.GetWorkerConfig(cfg, r.taskType)
		if jw := camunda.StartWorker(zeebe.GetClient(), r.taskType, wcfg, r.handle, zapLog); jw != nil {
			workers = append(workers, jw)
		}
	}
	return workers, nil
}
