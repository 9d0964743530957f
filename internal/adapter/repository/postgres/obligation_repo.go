package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// obligationRepository implements domain.ObligationRepository
type obligationRepository struct {
	db *DB
}

// NewObligationRepository creates a new obligation repository
func NewObligationRepository(db *DB) domain.ObligationRepository {
	return &obligationRepository{db: db}
}

const obligationColumns = "id, direction, counterparty_id, amount, issue_date, due_date, discount_rate, discount_by, status"

// GetByID retrieves an obligation by its external id
func (r *obligationRepository) GetByID(ctx context.Context, id string) (*domain.Obligation, error) {
	query := `
		SELECT ` + obligationColumns + `
		FROM obligations
		WHERE id = $1
	`

	o, err := scanObligation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: obligation %q", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get obligation by id: %w", err)
	}
	return o, nil
}

// ListByDirection retrieves obligations of one direction due within
// horizonDays of from; horizonDays <= 0 means no horizon cut. Overdue
// obligations stay listed either way.
func (r *obligationRepository) ListByDirection(ctx context.Context, d domain.Direction, from time.Time, horizonDays int) ([]*domain.Obligation, error) {
	query := `
		SELECT ` + obligationColumns + `
		FROM obligations
		WHERE direction = $1
		ORDER BY due_date, id
	`
	args := []interface{}{string(d)}
	if horizonDays > 0 {
		query = `
		SELECT ` + obligationColumns + `
		FROM obligations
		WHERE direction = $1 AND due_date <= $2
		ORDER BY due_date, id
	`
		cutoff := domain.DayOf(from).AddDate(0, 0, horizonDays)
		args = append(args, cutoff)
	}

	return r.queryObligations(ctx, query, args...)
}

// ListUnsettled retrieves every obligation not yet settled
func (r *obligationRepository) ListUnsettled(ctx context.Context) ([]*domain.Obligation, error) {
	query := `
		SELECT ` + obligationColumns + `
		FROM obligations
		WHERE status <> $1
		ORDER BY due_date, id
	`

	return r.queryObligations(ctx, query, string(domain.StatusSettled))
}

// Create creates a new obligation
func (r *obligationRepository) Create(ctx context.Context, o *domain.Obligation) error {
	query := `
		INSERT INTO obligations (` + obligationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var discountRate, discountBy interface{}
	if o.Discount != nil {
		discountRate = o.Discount.Rate.String()
		discountBy = domain.DayOf(o.Discount.By)
	}

	_, err := r.db.ExecContext(ctx, query,
		o.ID,
		string(o.Direction),
		o.CounterpartyID,
		o.Amount.String(),
		domain.DayOf(o.IssueDate),
		domain.DayOf(o.DueDate),
		discountRate,
		discountBy,
		string(o.Status),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return fmt.Errorf("%w: obligation %q", domain.ErrDuplicateEntity, o.ID)
			case "foreign_key_violation":
				return fmt.Errorf("%w: obligation %q references counterparty %q", domain.ErrUnresolvedReference, o.ID, o.CounterpartyID)
			}
		}
		return fmt.Errorf("failed to create obligation: %w", err)
	}
	return nil
}

// UpdateStatus replaces an obligation's status. Settled rows are never
// downgraded; the guarded update makes that atomic.
func (r *obligationRepository) UpdateStatus(ctx context.Context, id string, status domain.ObligationStatus) error {
	query := `
		UPDATE obligations
		SET status = $2
		WHERE id = $1 AND (status <> 'settled' OR $2 = 'settled')
	`

	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update obligation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Zero rows means either a missing obligation or a protected settled one.
	var exists int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM obligations WHERE id = $1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: obligation %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to check obligation existence: %w", err)
	}
	return nil
}

func (r *obligationRepository) queryObligations(ctx context.Context, query string, args ...interface{}) ([]*domain.Obligation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate obligation rows: %w", err)
	}
	return out, nil
}

func scanObligation(row rowScanner) (*domain.Obligation, error) {
	var o domain.Obligation
	var amountStr string
	var discountRate sql.NullString
	var discountBy sql.NullTime

	err := row.Scan(
		&o.ID,
		&o.Direction,
		&o.CounterpartyID,
		&amountStr,
		&o.IssueDate,
		&o.DueDate,
		&discountRate,
		&discountBy,
		&o.Status,
	)
	if err != nil {
		return nil, err
	}

	// Parse amount (NUMERIC)
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	o.Amount = amount

	// Parse discount columns (nullable pair; rate without date is a data bug)
	if discountRate.Valid && discountBy.Valid {
		rate, err := decimal.NewFromString(discountRate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse discount_rate: %w", err)
		}
		o.Discount = &domain.DiscountTerms{
			Rate: rate,
			By:   discountBy.Time,
		}
	}

	return &o, nil
}
