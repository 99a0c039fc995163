// Package stream mirrors committed journal entries onto a Kafka topic and
// consumes that topic to trigger post-call evaluation.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"voicedesk/internal/journal"
	"voicedesk/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the breaker is open and no trial request is due.
var ErrCircuitOpen = errors.New("journal stream circuit open")

// Producer sends one keyed record.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Publisher streams entries keyed by call id, so one call's entries stay on
// one partition in order. A breaker stops a broker outage from adding
// latency to every journal write.
type Publisher struct {
	producer Producer
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) { p.breaker = b }
}

func NewPublisher(producer Producer, opts ...Option) *Publisher {
	p := &Publisher{
		producer: producer,
		breaker:  circuit.New("journal-stream"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, entry journal.Entry) error {
	if !p.breaker.Allow() {
		return ErrCircuitOpen
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	if err := p.producer.Publish(ctx, []byte(entry.CallID.String()), value); err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.WarnContext(ctx, "journal stream circuit opened",
				"breaker", p.breaker.Name(),
				"error", err,
			)
		}
		return err
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "journal stream circuit closed", "breaker", p.breaker.Name())
	}
	return nil
}
