package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"voicedesk/internal/calls"
	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
	txcontext "voicedesk/pkg/platform/tx"
)

// PostgresStore persists call summaries and error records.
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

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, summary calls.Summary) error {
	query := `
		INSERT INTO call_summaries (call_id, caller_number, started_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(summary.CallID),
		summary.CallerNumber,
		summary.StartedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert call summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetResolvedSubject(ctx context.Context, callID id.CallID, subjectID id.SubjectID) error {
	query := `UPDATE call_summaries SET resolved_subject_id = $2 WHERE call_id = $1`
	return s.exec(ctx, "set resolved subject", query, uuid.UUID(callID), int64(subjectID))
}

func (s *PostgresStore) SetEnded(ctx context.Context, callID id.CallID, endedAt time.Time, resolutionSummary string) error {
	query := `UPDATE call_summaries SET ended_at = $2, resolution_summary = $3 WHERE call_id = $1`
	return s.exec(ctx, "set call ended", query, uuid.UUID(callID), endedAt, resolutionSummary)
}

// SetEvaluation overwrites any previous evaluation.
func (s *PostgresStore) SetEvaluation(ctx context.Context, callID id.CallID, eval calls.Evaluation, evaluatedAt time.Time) error {
	query := `
		UPDATE call_summaries
		SET prompt_evaluation = $2, resolution_evaluation = $3, evaluated_at = $4
		WHERE call_id = $1
	`
	return s.exec(ctx, "set evaluation", query, uuid.UUID(callID), eval.PromptEvaluation, eval.ResolutionEvaluation, evaluatedAt)
}

const summaryColumns = `call_id, caller_number, started_at, ended_at, resolved_subject_id,
		       resolution_summary, prompt_evaluation, resolution_evaluation, evaluated_at`

func (s *PostgresStore) Get(ctx context.Context, callID id.CallID) (*calls.Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM call_summaries WHERE call_id = $1`
	summary, err := scanSummary(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(callID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get call summary: %w", err)
	}
	return &summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (calls.Summary, error) {
	var (
		summary     calls.Summary
		rawCallID   uuid.UUID
		endedAt     sql.NullTime
		resolved    sql.NullInt64
		evaluatedAt sql.NullTime
	)
	err := row.Scan(
		&rawCallID,
		&summary.CallerNumber,
		&summary.StartedAt,
		&endedAt,
		&resolved,
		&summary.ResolutionSummary,
		&summary.PromptEvaluation,
		&summary.ResolutionEvaluation,
		&evaluatedAt,
	)
	if err != nil {
		return calls.Summary{}, err
	}
	summary.CallID = id.CallID(rawCallID)
	if endedAt.Valid {
		t := endedAt.Time
		summary.EndedAt = &t
	}
	if resolved.Valid {
		subjectID := id.SubjectID(resolved.Int64)
		summary.ResolvedSubjectID = &subjectID
	}
	if evaluatedAt.Valid {
		t := evaluatedAt.Time
		summary.EvaluatedAt = &t
	}
	return summary, nil
}

func (s *PostgresStore) ListPendingEvaluation(ctx context.Context, limit int) ([]id.CallID, error) {
	query := `
		SELECT call_id FROM call_summaries
		WHERE ended_at IS NOT NULL AND evaluated_at IS NULL
		ORDER BY ended_at
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending evaluations: %w", err)
	}
	defer rows.Close()

	var out []id.CallID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan pending evaluation: %w", err)
		}
		out = append(out, id.CallID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending evaluations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Record(ctx context.Context, rec calls.ErrorRecord) error {
	query := `
		INSERT INTO error_records (id, call_id, source, message, context, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var callID *uuid.UUID
	if !rec.CallID.IsNil() {
		raw := uuid.UUID(rec.CallID)
		callID = &raw
	}
	var contextJSON []byte
	if len(rec.Context) > 0 {
		contextJSON = rec.Context
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID,
		callID,
		rec.Source,
		rec.Message,
		contextJSON,
		rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert error record: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountForCall(ctx context.Context, callID id.CallID) (int, error) {
	var n int
	query := `SELECT count(*) FROM error_records WHERE call_id = $1`
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(callID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count error records: %w", err)
	}
	return n, nil
}

// ListSummaries returns one page of matching calls, most recent first, and
// the number of matches.
func (s *PostgresStore) ListSummaries(ctx context.Context, filter calls.SummaryFilter) ([]calls.Summary, int, error) {
	var w conditions
	w.window("started_at", filter.From, filter.To)
	if filter.SubjectID != 0 {
		w.add("resolved_subject_id = $%d", int64(filter.SubjectID))
	}
	if digits := identity.Digits(filter.CallerNumber); digits != "" {
		w.add(`regexp_replace(caller_number, '\D', '', 'g') LIKE $%d`, "%"+digits+"%")
	}

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM call_summaries`+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count call summaries: %w", err)
	}

	query := `SELECT ` + summaryColumns + ` FROM call_summaries` + w.where() +
		` ORDER BY started_at DESC, call_id` + w.page(filter.Limit, filter.Offset)
	rows, err := s.execer(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list call summaries: %w", err)
	}
	defer rows.Close()

	var out []calls.Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan call summary: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate call summaries: %w", err)
	}
	return out, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListErrors returns one page of matching error records, most recent first,
// and the number of matches.
func (s *PostgresStore) ListErrors(ctx context.Context, filter calls.ErrorFilter) ([]calls.ErrorRecord, int, error) {
	var w conditions
	w.window("occurred_at", filter.From, filter.To)
	if !filter.CallID.IsNil() {
		w.add("call_id = $%d", uuid.UUID(filter.CallID))
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		w.add("source ILIKE $%d", "%"+likeEscaper.Replace(source)+"%")
	}

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM error_records`+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count error records: %w", err)
	}

	query := `SELECT id, call_id, source, message, context, occurred_at FROM error_records` + w.where() +
		` ORDER BY occurred_at DESC, id` + w.page(filter.Limit, filter.Offset)
	rows, err := s.execer(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list error records: %w", err)
	}
	defer rows.Close()

	var out []calls.ErrorRecord
	for rows.Next() {
		var (
			rec    calls.ErrorRecord
			callID uuid.NullUUID
			raw    []byte
		)
		if err := rows.Scan(&rec.ID, &callID, &rec.Source, &rec.Message, &raw, &rec.OccurredAt); err != nil {
			return nil, 0, fmt.Errorf("scan error record: %w", err)
		}
		if callID.Valid {
			rec.CallID = id.CallID(callID.UUID)
		}
		if len(raw) > 0 {
			rec.Context = raw
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate error records: %w", err)
	}
	return out, total, nil
}

// KPIs aggregates the calls started and the errors raised in [from, to).
// Zero bounds are open.
func (s *PostgresStore) KPIs(ctx context.Context, from, to time.Time) (calls.KPIs, error) {
	var kpis calls.KPIs

	var w conditions
	w.window("started_at", from, to)
	query := `
		SELECT count(*),
		       count(resolved_subject_id),
		       COALESCE(avg(EXTRACT(EPOCH FROM ended_at - started_at)), 0)
		FROM call_summaries` + w.where()
	err := s.execer(ctx).QueryRowContext(ctx, query, w.args...).Scan(
		&kpis.TotalCalls,
		&kpis.ConfirmedCalls,
		&kpis.AverageDurationSeconds,
	)
	if err != nil {
		return calls.KPIs{}, fmt.Errorf("aggregate call summaries: %w", err)
	}

	var e conditions
	e.window("occurred_at", from, to)
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM error_records`+e.where(), e.args...).Scan(&kpis.ErrorCount); err != nil {
		return calls.KPIs{}, fmt.Errorf("count error records: %w", err)
	}
	return kpis.WithRate(), nil
}

// conditions accumulates AND-ed predicates with positional arguments.
type conditions struct {
	clauses []string
	args    []any
}

// add appends a predicate whose single placeholder is written as $%d.
func (c *conditions) add(clause string, arg any) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(clause, len(c.args)))
}

func (c *conditions) window(column string, from, to time.Time) {
	if !from.IsZero() {
		c.add(column+" >= $%d", from)
	}
	if !to.IsZero() {
		c.add(column+" < $%d", to)
	}
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// page appends LIMIT and OFFSET placeholders; it must run after every add.
func (c *conditions) page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		c.args = append(c.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(c.args))
	}
	if offset > 0 {
		c.args = append(c.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(c.args))
	}
	return b.String()
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
