package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
	txcontext "voicedesk/pkg/platform/tx"
)

// PostgresStore reads and updates the subjects table.
type PostgresStore struct {
	db          *sql.DB
	phoneDigits int
}

func NewPostgres(db *sql.DB, phoneDigits int) *PostgresStore {
	return &PostgresStore{db: db, phoneDigits: phoneDigits}
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

const subjectColumns = `id, surname, given_name, date_of_birth, postal_code, city, address, phone, email, member_since`

// FindByPhone matches on the trailing digits of the stored number so that
// international and national formats of the same line compare equal.
func (s *PostgresStore) FindByPhone(ctx context.Context, number string) ([]identity.Subject, error) {
	suffix := identity.PhoneSuffix(number, s.phoneDigits)
	if suffix == "" {
		return nil, nil
	}
	query := `SELECT ` + subjectColumns + ` FROM subjects
		WHERE right(regexp_replace(phone, '\D', '', 'g'), $2) = $1
		ORDER BY id`
	return s.query(ctx, "find subjects by phone", query, suffix, len(suffix))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) ([]identity.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE lower(email) = lower($1) ORDER BY id`
	return s.query(ctx, "find subjects by email", query, strings.TrimSpace(email))
}

func (s *PostgresStore) FindByFullName(ctx context.Context, surname, givenName string) ([]identity.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects
		WHERE lower(surname) = lower($1) AND lower(given_name) = lower($2)
		ORDER BY id`
	return s.query(ctx, "find subjects by full name", query, strings.TrimSpace(surname), strings.TrimSpace(givenName))
}

// FindByContractNumber returns the main holder of a contract.
func (s *PostgresStore) FindByContractNumber(ctx context.Context, number string) ([]identity.Subject, error) {
	query := `SELECT s.id, s.surname, s.given_name, s.date_of_birth, s.postal_code, s.city, s.address, s.phone, s.email, s.member_since
		FROM subjects s JOIN contracts c ON c.subject_id = s.id
		WHERE upper(c.number) = upper($1)
		ORDER BY s.id`
	return s.query(ctx, "find subjects by contract number", query, strings.TrimSpace(number))
}

func (s *PostgresStore) FindByID(ctx context.Context, subjectID id.SubjectID) (*identity.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	subject, err := scanSubject(s.execer(ctx).QueryRowContext(ctx, query, int64(subjectID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// UpdateContact writes only the fields set on update. It reports false when
// nothing was written (empty update or unknown subject).
func (s *PostgresStore) UpdateContact(ctx context.Context, subjectID id.SubjectID, update identity.ContactUpdate) (bool, error) {
	if update.IsEmpty() {
		return false, nil
	}
	var (
		sets []string
		args []any
	)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("address", update.Address)
	add("postal_code", update.PostalCode)
	add("city", update.City)
	add("phone", update.Phone)
	add("email", update.Email)
	args = append(args, int64(subjectID))

	query := fmt.Sprintf(`UPDATE subjects SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update subject contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update subject contact: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]identity.Subject, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []identity.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (identity.Subject, error) {
	var (
		subject     identity.Subject
		subjectID   int64
		dateOfBirth sql.NullTime
		memberSince sql.NullTime
	)
	err := row.Scan(
		&subjectID,
		&subject.Surname,
		&subject.GivenName,
		&dateOfBirth,
		&subject.PostalCode,
		&subject.City,
		&subject.Address,
		&subject.Phone,
		&subject.Email,
		&memberSince,
	)
	if err != nil {
		return identity.Subject{}, err
	}
	subject.ID = id.SubjectID(subjectID)
	if dateOfBirth.Valid {
		t := dateOfBirth.Time
		subject.DateOfBirth = &t
	}
	if memberSince.Valid {
		t := memberSince.Time
		subject.MemberSince = &t
	}
	return subject, nil
}
