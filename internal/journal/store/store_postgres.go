package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"voicedesk/internal/journal"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
	txcontext "voicedesk/pkg/platform/tx"
)

// PostgresStore appends journal entries. Rows are never updated or deleted.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry journal.Entry) error {
	query := `
		INSERT INTO journal_entries (id, call_id, seq, occurred_at, kind, operation, params, result, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var params []byte
	if len(entry.Params) > 0 {
		params = entry.Params
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.CallID),
		entry.Seq,
		entry.Timestamp,
		string(entry.Kind),
		entry.Operation,
		params,
		entry.Result,
		string(entry.Outcome),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) EntriesFor(ctx context.Context, callID id.CallID) ([]journal.Entry, error) {
	query := `
		SELECT id, call_id, seq, occurred_at, kind, operation, params, result, outcome
		FROM journal_entries
		WHERE call_id = $1
		ORDER BY seq
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(callID))
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var (
			entry   journal.Entry
			rawCall uuid.UUID
			kind    string
			params  []byte
			outcome string
		)
		if err := rows.Scan(
			&entry.ID,
			&rawCall,
			&entry.Seq,
			&entry.Timestamp,
			&kind,
			&entry.Operation,
			&params,
			&entry.Result,
			&outcome,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.CallID = id.CallID(rawCall)
		entry.Kind = journal.Kind(kind)
		entry.Outcome = journal.Outcome(outcome)
		if len(params) > 0 {
			entry.Params = params
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) LastSeq(ctx context.Context, callID id.CallID) (int64, error) {
	var seq int64
	query := `SELECT COALESCE(MAX(seq), 0) FROM journal_entries WHERE call_id = $1`
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(callID)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last journal seq: %w", err)
	}
	return seq, nil
}
