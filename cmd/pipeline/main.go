// Command pipeline runs one batch of per-person timeline processing. It is
// the thin orchestration shell around the engine: wiring, observability
// endpoints, and a single ProcessBatch invocation. Sharding and scheduling
// across machines belong to the external batch substrate that invokes this
// binary per shard.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caseline/pkg/domain"

	"caseline/internal/platform/config"
	"caseline/internal/platform/logger"
	platformredis "caseline/internal/platform/redis"
	"caseline/internal/timeline/cache"
	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/metrics"
	"caseline/internal/timeline/ports"
	"caseline/internal/timeline/service"
	"caseline/internal/timeline/sink"
	"caseline/internal/timeline/store/entity"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(parseLevel(cfg.LogLevel))
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reader, closeReader, err := buildReader(cfg)
	if err != nil {
		return err
	}
	defer closeReader()

	metricSink, closeSink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	runCfg := service.RunConfig{
		RunID:             domain.NewRunID(),
		AsOf:              time.Now().UTC().Truncate(24 * time.Hour),
		SpanDuration:      cfg.SpanDurationMetrics,
		Population:        cfg.PopulationMetrics,
		EventCount:        cfg.EventCountMetrics,
		CalculationMonths: cfg.CalculationMonths,
		Concurrency:       cfg.Concurrency,
	}
	for _, raw := range cfg.PopulationSnapshots {
		snapshot, err := time.Parse("2006-01-02", raw)
		if err != nil {
			log.Warn("skipping malformed population snapshot date", "value", raw)
			continue
		}
		runCfg.Snapshots = append(runCfg.Snapshots, snapshot.UTC())
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithSink(metricSink),
	}
	if redisClient, err := platformredis.New(cfg); err != nil {
		log.Warn("result cache disabled", "error", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithCache(cache.NewRedis(redisClient, cfg.CacheTTL)))
	}

	runner, err := service.New(delegate.NewRegistry(), runCfg, opts...)
	if err != nil {
		return err
	}

	ops := startOpsServer(cfg.OpsAddr, log)
	defer shutdownOpsServer(ops, log)

	persons, err := reader.ListPersons(ctx)
	if err != nil {
		return err
	}
	log.Info("starting batch", "run_id", runCfg.RunID, "persons", len(persons))

	batch, err := runner.ProcessBatch(ctx, persons)
	if err != nil {
		return err
	}
	for _, failure := range batch.Failures {
		log.Warn("person failed",
			"person_id", failure.PersonID,
			"jurisdiction", failure.Jurisdiction,
			"stage", failure.Stage,
			"error", failure.Err)
	}
	log.Info("batch complete",
		"run_id", runCfg.RunID,
		"processed", len(batch.Results),
		"failed", len(batch.Failures))
	return nil
}

func buildReader(cfg config.Config) (ports.EntityReader, func(), error) {
	if cfg.PostgresDSN == "" {
		return entity.NewMemory(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return entity.NewPostgres(db), func() { _ = db.Close() }, nil
}

func buildSink(cfg config.Config) (ports.MetricSink, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return sink.NewMemory(), func() {}, nil
	}
	kafka, err := sink.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	return kafka, kafka.Close, nil
}

func startOpsServer(addr string, log *slog.Logger) *http.Server {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server error", "error", err)
		}
	}()
	return srv
}

func shutdownOpsServer(srv *http.Server, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("ops server shutdown failed", "error", err)
	}
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
