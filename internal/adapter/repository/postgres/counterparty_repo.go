package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// counterpartyRepository implements domain.CounterpartyRepository
type counterpartyRepository struct {
	db *DB
}

// NewCounterpartyRepository creates a new counterparty repository
func NewCounterpartyRepository(db *DB) domain.CounterpartyRepository {
	return &counterpartyRepository{db: db}
}

const counterpartyColumns = "id, name, role, net_days, discount_rate, discount_days, risk_score"

// GetByID retrieves a counterparty by its external id
func (r *counterpartyRepository) GetByID(ctx context.Context, id string) (*domain.Counterparty, error) {
	query := `
		SELECT ` + counterpartyColumns + `
		FROM counterparties
		WHERE id = $1
	`

	cp, err := scanCounterparty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: counterparty %q", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get counterparty by id: %w", err)
	}
	return cp, nil
}

// List retrieves all counterparties, optionally filtered by role
func (r *counterpartyRepository) List(ctx context.Context, roleFilter domain.CounterpartyRole) ([]*domain.Counterparty, error) {
	query := `
		SELECT ` + counterpartyColumns + `
		FROM counterparties
		ORDER BY id
	`
	args := []interface{}{}
	if roleFilter != "" {
		query = `
		SELECT ` + counterpartyColumns + `
		FROM counterparties
		WHERE role = $1
		ORDER BY id
	`
		args = append(args, string(roleFilter))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list counterparties: %w", err)
	}
	defer rows.Close()

	var out []*domain.Counterparty
	for rows.Next() {
		cp, err := scanCounterparty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan counterparty row: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counterparty rows: %w", err)
	}
	return out, nil
}

// Create creates a new counterparty
func (r *counterpartyRepository) Create(ctx context.Context, cp *domain.Counterparty) error {
	query := `
		INSERT INTO counterparties (` + counterpartyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		cp.ID,
		cp.Name,
		string(cp.Role),
		cp.Terms.NetDays,
		cp.Terms.DiscountRate.String(),
		cp.Terms.DiscountDays,
		cp.RiskScore,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: counterparty %q", domain.ErrDuplicateEntity, cp.ID)
		}
		return fmt.Errorf("failed to create counterparty: %w", err)
	}
	return nil
}

// UpdateRiskScore replaces a counterparty's risk score
func (r *counterpartyRepository) UpdateRiskScore(ctx context.Context, id string, risk float64) error {
	query := `
		UPDATE counterparties
		SET risk_score = $2
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, risk)
	if err != nil {
		return fmt.Errorf("failed to update risk score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: counterparty %q", domain.ErrNotFound, id)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCounterparty(row rowScanner) (*domain.Counterparty, error) {
	var cp domain.Counterparty
	var rateStr string

	err := row.Scan(
		&cp.ID,
		&cp.Name,
		&cp.Role,
		&cp.Terms.NetDays,
		&rateStr,
		&cp.Terms.DiscountDays,
		&cp.RiskScore,
	)
	if err != nil {
		return nil, err
	}

	// Parse discount_rate (NUMERIC)
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse discount_rate: %w", err)
	}
	cp.Terms.DiscountRate = rate

	return &cp, nil
}
