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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"voicedesk/internal/actions"
	callhandler "voicedesk/internal/calls/handler"
	callservice "voicedesk/internal/calls/service"
	"voicedesk/internal/dashboard"
	dashboardhandler "voicedesk/internal/dashboard/handler"
	"voicedesk/internal/evaluator"
	"voicedesk/internal/journal"
	"voicedesk/internal/journal/stream"
	jwttoken "voicedesk/internal/jwt_token"
	"voicedesk/internal/platform/config"
	"voicedesk/internal/platform/httpserver"
	"voicedesk/internal/platform/logger"
	"voicedesk/internal/platform/metrics"
	"voicedesk/internal/policy"
	"voicedesk/internal/resolution"
	httptransport "voicedesk/internal/transport/http"
	"voicedesk/pkg/platform/privacy"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("voicedesk stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	privacy.SetDefaultKey(cfg.Server.PIIHashKey)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	b, err := openBackends(ctx, cfg, log, registry)
	if err != nil {
		return err
	}
	defer b.Close()

	recorderOpts := []journal.Option{
		journal.WithLogger(log),
		journal.WithMetrics(m),
		journal.WithErrorLog(b.errorLog),
		journal.WithTimeouts(cfg.Calls.OperationTimeout, cfg.Calls.JournalWriteTimeout),
		journal.WithIdleTimeout(cfg.Calls.SessionTTL),
	}
	if b.producer != nil {
		recorderOpts = append(recorderOpts, journal.WithPublisher(stream.NewPublisher(b.producer, stream.WithLogger(log))))
	}
	recorder := journal.NewRecorder(b.journal, recorderOpts...)

	resolver, err := resolution.New(b.directory, b.summaries,
		resolution.WithLogger(log),
		resolution.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("resolution service: %w", err)
	}
	policies, err := policy.New(b.policies, b.directory,
		policy.WithLogger(log),
		policy.WithTxRunner(b.tx),
	)
	if err != nil {
		return fmt.Errorf("policy service: %w", err)
	}
	actionRegistry, err := actions.NewRegistry(resolver, policies, recorder,
		actions.WithLogger(log),
		actions.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("action registry: %w", err)
	}

	evaluations, err := evaluator.New(b.summaries, recorder, b.errorLog,
		evaluator.WithLogger(log),
		evaluator.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("evaluator: %w", err)
	}
	worker := evaluator.NewWorker(evaluations, b.summaries,
		evaluator.WithQueueSize(cfg.Evaluator.QueueSize),
		evaluator.WithRetry(cfg.Evaluator.MaxAttempts, cfg.Evaluator.RetryBackoff),
		evaluator.WithSweep(cfg.Evaluator.SweepInterval, 0),
		evaluator.WithWorkerLogger(log),
	)

	callService, err := callservice.New(b.summaries, b.sessions, actionRegistry, recorder,
		callservice.WithLogger(log),
		callservice.WithMetrics(m),
		callservice.WithTxRunner(b.tx),
		callservice.WithEvaluations(worker),
	)
	if err != nil {
		return fmt.Errorf("call service: %w", err)
	}

	dashboards, err := dashboard.New(b.history, b.errorLog, recorder, b.directory,
		dashboard.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("dashboard service: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	router := httptransport.NewRouter(httptransport.Config{
		Validator: jwttoken.NewJWTServiceAdapter(jwtService),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Health:    b.health,
		Logger:    log,
	},
		callhandler.New(callService, evaluations, actionRegistry, log),
		dashboardhandler.New(dashboards, log),
	)
	srv := httpserver.New(cfg.Server, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting voicedesk", "addr", cfg.Server.Addr, "backend", b.kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("evaluation worker: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := recorder.RunEviction(gctx, cfg.Calls.JournalEvictInterval); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("journal eviction: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
