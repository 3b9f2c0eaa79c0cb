package repository

import (
	"context"
	"fmt"
	"time"

	"giftrank/database"
	"giftrank/models"
	"giftrank/service"
)

// SettledPaymentRepository implements service.SettledPaymentRepository.
// The ledger is append-only: there is no update or delete.
type SettledPaymentRepository struct {
	q queryable
}

// NewSettledPaymentRepository creates a new settled payment repository
func NewSettledPaymentRepository(db *database.DB) *SettledPaymentRepository {
	return &SettledPaymentRepository{q: db.Pool}
}

func newSettledPaymentRepositoryWithTx(tx queryable) *SettledPaymentRepository {
	return &SettledPaymentRepository{q: tx}
}

// ExistsByExternalID reports whether the external payment id is already in the ledger
func (r *SettledPaymentRepository) ExistsByExternalID(ctx context.Context, externalPaymentID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM settled_payments WHERE external_payment_id = $1)`,
		externalPaymentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check settled payment: %w", err)
	}
	return exists, nil
}

// Create appends a payment to the ledger
func (r *SettledPaymentRepository) Create(ctx context.Context, payment *models.SettledPayment) error {
	query := `
		INSERT INTO settled_payments (external_payment_id, talent_id, store_id, amount, settled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		payment.ExternalPaymentID,
		payment.TalentID,
		payment.StoreID,
		payment.Amount,
		payment.SettledAt,
	).Scan(&payment.ID, &payment.CreatedAt)
	if isUniqueViolation(err, "settled_payments_external_payment_id_key") {
		return fmt.Errorf("%w: %s", service.ErrDuplicatePayment, payment.ExternalPaymentID)
	}
	if err != nil {
		return fmt.Errorf("failed to create settled payment: %w", err)
	}

	return nil
}

// LatestSettledAt returns max(settled_at) over the ledger
func (r *SettledPaymentRepository) LatestSettledAt(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := r.q.QueryRow(ctx, `SELECT MAX(settled_at) FROM settled_payments`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest settlement: %w", err)
	}
	return latest, nil
}

// SumByTalentInRange sums payments settled in [start, end) per (store, talent).
// Store-level payments without a talent are not part of any talent total.
func (r *SettledPaymentRepository) SumByTalentInRange(ctx context.Context, start, end time.Time) ([]*models.TalentTotal, error) {
	query := `
		SELECT store_id, talent_id, SUM(amount)
		FROM settled_payments
		WHERE settled_at >= $1 AND settled_at < $2 AND talent_id IS NOT NULL
		GROUP BY store_id, talent_id
		ORDER BY store_id, talent_id
	`

	rows, err := r.q.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum settled payments: %w", err)
	}
	defer rows.Close()

	var totals []*models.TalentTotal
	for rows.Next() {
		var total models.TalentTotal
		if err := rows.Scan(&total.StoreID, &total.TalentID, &total.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan talent total: %w", err)
		}
		totals = append(totals, &total)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating talent totals: %w", err)
	}

	return totals, nil
}

// ListByStoreInRange returns a store's payments settled in [start, end)
func (r *SettledPaymentRepository) ListByStoreInRange(ctx context.Context, storeID string, start, end time.Time) ([]*models.SettledPayment, error) {
	query := `
		SELECT id, external_payment_id, talent_id, store_id, amount, settled_at, created_at
		FROM settled_payments
		WHERE store_id = $1 AND settled_at >= $2 AND settled_at < $3
		ORDER BY settled_at, id
	`

	rows, err := r.q.Query(ctx, query, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list settled payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.SettledPayment
	for rows.Next() {
		var payment models.SettledPayment
		err := rows.Scan(
			&payment.ID,
			&payment.ExternalPaymentID,
			&payment.TalentID,
			&payment.StoreID,
			&payment.Amount,
			&payment.SettledAt,
			&payment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settled payment: %w", err)
		}
		payments = append(payments, &payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settled payments: %w", err)
	}

	return payments, nil
}
