package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voicedesk/internal/policy"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
	txcontext "voicedesk/pkg/platform/tx"
)

// PostgresStore reads contracts, formulas and guarantees and inserts claims.
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

const contractSelect = `
	SELECT c.id, c.subject_id, c.number, c.formula_id, f.name, f.monthly_rate_cents, c.status, c.start_date, c.end_date
	FROM contracts c
	JOIN formulas f ON f.id = c.formula_id
`

func (s *PostgresStore) ContractsFor(ctx context.Context, subjectID id.SubjectID) ([]policy.Contract, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, contractSelect+` WHERE c.subject_id = $1 ORDER BY c.id`, int64(subjectID))
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []policy.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return contracts, nil
}

func (s *PostgresStore) ContractByID(ctx context.Context, contractID id.ContractID) (*policy.Contract, error) {
	row := s.execer(ctx).QueryRowContext(ctx, contractSelect+` WHERE c.id = $1`, int64(contractID))
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return &c, nil
}

const guaranteeSelect = `
	SELECT g.label, g.description, fg.ceiling_cents, fg.rate_basis_points, fg.deductible_cents, fg.conditions
	FROM formula_guarantees fg
	JOIN guarantees g ON g.id = fg.guarantee_id
`

func (s *PostgresStore) GuaranteesFor(ctx context.Context, formulaID int64) ([]policy.Guarantee, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, guaranteeSelect+` WHERE fg.formula_id = $1 ORDER BY g.label`, formulaID)
	if err != nil {
		return nil, fmt.Errorf("query guarantees: %w", err)
	}
	defer rows.Close()

	var guarantees []policy.Guarantee
	for rows.Next() {
		g, err := scanGuarantee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guarantee: %w", err)
		}
		guarantees = append(guarantees, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guarantees: %w", err)
	}
	return guarantees, nil
}

func (s *PostgresStore) GuaranteeByLabel(ctx context.Context, formulaID int64, label string) (*policy.Guarantee, error) {
	row := s.execer(ctx).QueryRowContext(ctx, guaranteeSelect+` WHERE fg.formula_id = $1 AND lower(g.label) = lower($2)`, formulaID, label)
	g, err := scanGuarantee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get guarantee: %w", err)
	}
	return &g, nil
}

const claimColumns = `id, contract_id, subject_id, claim_type, description, incident_date, declared_at, status`

func (s *PostgresStore) ClaimsFor(ctx context.Context, subjectID id.SubjectID) ([]policy.Claim, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE subject_id = $1 ORDER BY id`, int64(subjectID))
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []policy.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func (s *PostgresStore) ClaimByID(ctx context.Context, claimID id.ClaimID) (*policy.Claim, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, int64(claimID))
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateClaim(ctx context.Context, claim policy.Claim) (policy.Claim, error) {
	query := `
		INSERT INTO claims (contract_id, subject_id, claim_type, description, incident_date, declared_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var newID int64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		int64(claim.ContractID),
		int64(claim.SubjectID),
		claim.Type,
		claim.Description,
		claim.IncidentDate,
		claim.DeclaredAt,
		claim.Status,
	).Scan(&newID)
	if err != nil {
		return policy.Claim{}, fmt.Errorf("insert claim: %w", err)
	}
	claim.ID = id.ClaimID(newID)
	return claim, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (policy.Contract, error) {
	var (
		c         policy.Contract
		contract  int64
		subjectID int64
		endDate   sql.NullTime
	)
	if err := row.Scan(&contract, &subjectID, &c.Number, &c.FormulaID, &c.FormulaName,
		&c.MonthlyRateCents, &c.Status, &c.StartDate, &endDate); err != nil {
		return policy.Contract{}, err
	}
	c.ID = id.ContractID(contract)
	c.SubjectID = id.SubjectID(subjectID)
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	return c, nil
}

func scanGuarantee(row rowScanner) (policy.Guarantee, error) {
	var (
		g       policy.Guarantee
		ceiling sql.NullInt64
		rate    sql.NullInt64
	)
	if err := row.Scan(&g.Label, &g.Description, &ceiling, &rate, &g.DeductibleCents, &g.Conditions); err != nil {
		return policy.Guarantee{}, err
	}
	if ceiling.Valid {
		g.CeilingCents = &ceiling.Int64
	}
	if rate.Valid {
		g.RateBasisPoints = &rate.Int64
	}
	return g, nil
}

func scanClaim(row rowScanner) (policy.Claim, error) {
	var (
		c                              policy.Claim
		claimID, contractID, subjectID int64
	)
	if err := row.Scan(&claimID, &contractID, &subjectID, &c.Type, &c.Description,
		&c.IncidentDate, &c.DeclaredAt, &c.Status); err != nil {
		return policy.Claim{}, err
	}
	c.ID = id.ClaimID(claimID)
	c.ContractID = id.ContractID(contractID)
	c.SubjectID = id.SubjectID(subjectID)
	return c, nil
}
