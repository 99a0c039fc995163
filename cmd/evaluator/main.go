// Command evaluator scores ended calls from the journal stream. It consumes
// CALL_ENDED entries and runs the periodic sweep against Postgres, so calls
// whose end event was missed are still evaluated.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	callstore "voicedesk/internal/calls/store"
	"voicedesk/internal/evaluator"
	"voicedesk/internal/journal/stream"
	journalstore "voicedesk/internal/journal/store"
	"voicedesk/internal/platform/config"
	"voicedesk/internal/platform/httpserver"
	"voicedesk/internal/platform/kafka"
	"voicedesk/internal/platform/logger"
	"voicedesk/internal/platform/metrics"
	"voicedesk/internal/platform/postgres"
	id "voicedesk/pkg/domain"
)

const consumerGroup = "voicedesk-evaluator"

// blockingQueue adapts Worker.Submit to the stream's Enqueuer.
type blockingQueue struct {
	worker *evaluator.Worker
}

func (q blockingQueue) Enqueue(ctx context.Context, callID id.CallID) error {
	return q.worker.Submit(ctx, callID)
}

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("evaluator stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Postgres.DSN == "" || len(cfg.Kafka.Brokers) == 0 {
		return errors.New("evaluator requires DATABASE_URL and KAFKA_BROKERS")
	}
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	records := callstore.NewPostgres(db)
	svc, err := evaluator.New(records, journalstore.NewPostgres(db), records,
		evaluator.WithLogger(log),
		evaluator.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("evaluator: %w", err)
	}
	worker := evaluator.NewWorker(svc, records,
		evaluator.WithQueueSize(cfg.Evaluator.QueueSize),
		evaluator.WithRetry(cfg.Evaluator.MaxAttempts, cfg.Evaluator.RetryBackoff),
		evaluator.WithSweep(cfg.Evaluator.SweepInterval, 0),
		evaluator.WithWorkerLogger(log),
	)

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, consumerGroup, cfg.Kafka.JournalTopic, log)
	if err != nil {
		return err
	}
	defer consumer.Close()
	handler := stream.NewCallEndedHandler(blockingQueue{worker: worker}, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	serverCfg := cfg.Server
	serverCfg.Addr = cfg.Evaluator.MetricsAddr
	srv := httpserver.New(serverCfg, mux, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return consumer.Run(gctx, handler) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	log.Info("evaluator consuming", "topic", cfg.Kafka.JournalTopic, "group", consumerGroup)
	return g.Wait()
}
