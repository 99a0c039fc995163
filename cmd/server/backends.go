package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"voicedesk/internal/calls"
	callstore "voicedesk/internal/calls/store"
	"voicedesk/internal/dashboard"
	identitystore "voicedesk/internal/identity/store"
	"voicedesk/internal/journal"
	journalstore "voicedesk/internal/journal/store"
	"voicedesk/internal/platform/config"
	"voicedesk/internal/platform/kafka"
	"voicedesk/internal/platform/postgres"
	"voicedesk/internal/platform/redis"
	"voicedesk/internal/policy"
	policystore "voicedesk/internal/policy/store"
	"voicedesk/internal/resolution"
	"voicedesk/internal/session"
	sessionstore "voicedesk/internal/session/store"
	httptransport "voicedesk/internal/transport/http"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/tx"
)

// directory is what both the resolver and the policy service need from the
// member directory.
type directory interface {
	resolution.Directory
	policy.ContactUpdater
}

type errorLog interface {
	journal.ErrorLog
	dashboard.ErrorReader
	CountForCall(ctx context.Context, callID id.CallID) (int, error)
}

// backends holds the stores selected from configuration: Postgres when a DSN
// is set, otherwise seeded in-memory stores; Redis sessions when a URL is set.
type backends struct {
	kind      string
	db        *sql.DB
	redis     *redis.Client
	producer  *kafka.Producer
	tx        tx.Runner
	directory directory
	summaries calls.SummaryStore
	history   dashboard.CallReader
	errorLog  errorLog
	journal   journal.Store
	policies  policy.Store
	sessions  session.Store
	health    map[string]httptransport.HealthCheck
}

func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*backends, error) {
	b := &backends{health: map[string]httptransport.HealthCheck{}}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		b.db = db
		if err := postgres.ApplySchema(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		records := callstore.NewPostgres(db)
		b.kind = "postgres"
		b.tx = tx.NewPostgres(db, cfg.Calls.OperationTimeout)
		b.directory = identitystore.NewPostgres(db, cfg.Calls.PhoneMatchDigits)
		b.summaries = records
		b.history = records
		b.errorLog = records
		b.journal = journalstore.NewPostgres(db)
		b.policies = policystore.NewPostgres(db)
		b.health["postgres"] = db.PingContext
	} else {
		log.Warn("DATABASE_URL not set, using seeded in-memory stores")
		records := callstore.NewInMemory()
		directory := identitystore.New(cfg.Calls.PhoneMatchDigits)
		policies := policystore.NewInMemory()
		seedDemo(directory, policies)
		b.kind = "memory"
		b.tx = tx.Direct{}
		b.directory = directory
		b.summaries = records
		b.history = records
		b.errorLog = records
		b.journal = journalstore.NewInMemory()
		b.policies = policies
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, err
	}
	if rdb != nil {
		b.redis = rdb
		if err := rdb.RegisterPoolMetrics(reg); err != nil {
			b.Close()
			return nil, err
		}
		b.sessions = sessionstore.NewRedis(rdb.Client, cfg.Calls.SessionTTL)
		b.health["redis"] = rdb.Health
	} else {
		b.sessions = sessionstore.NewInMemory()
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		b.Close()
		return nil, err
	}
	if producer != nil {
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			producer.Close()
			b.Close()
			return nil, fmt.Errorf("journal topic: %w", err)
		}
		b.producer = producer
		b.health["kafka"] = producer.Health
	}
	return b, nil
}

func (b *backends) Close() {
	if b.producer != nil {
		b.producer.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}
