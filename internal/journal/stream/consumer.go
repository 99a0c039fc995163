package stream

import (
	"context"
	"encoding/json"
	"log/slog"

	"voicedesk/internal/journal"
	"voicedesk/internal/platform/kafka"
	id "voicedesk/pkg/domain"
)

// Enqueuer accepts call ids for evaluation.
type Enqueuer interface {
	Enqueue(ctx context.Context, callID id.CallID) error
}

// CallEndedHandler schedules evaluation for each CALL_ENDED entry on the
// journal topic. Other kinds are skipped.
type CallEndedHandler struct {
	evaluations Enqueuer
	logger      *slog.Logger
}

func NewCallEndedHandler(evaluations Enqueuer, logger *slog.Logger) *CallEndedHandler {
	return &CallEndedHandler{evaluations: evaluations, logger: logger}
}

func (h *CallEndedHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var entry journal.Entry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		h.logger.ErrorContext(ctx, "malformed journal record, skipping",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		// commit so a poison record cannot block the partition
		return nil
	}
	if entry.Kind != journal.KindCallEnded {
		return nil
	}
	return h.evaluations.Enqueue(ctx, entry.CallID)
}
