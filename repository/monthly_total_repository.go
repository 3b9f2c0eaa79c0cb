package repository

import (
	"context"
	"fmt"

	"giftrank/database"
	"giftrank/models"

	"github.com/jackc/pgx/v5"
)

// MonthlyTotalRepository implements service.MonthlyTotalRepository
type MonthlyTotalRepository struct {
	q queryable
}

// NewMonthlyTotalRepository creates a new monthly total repository
func NewMonthlyTotalRepository(db *database.DB) *MonthlyTotalRepository {
	return &MonthlyTotalRepository{q: db.Pool}
}

func newMonthlyTotalRepositoryWithTx(tx queryable) *MonthlyTotalRepository {
	return &MonthlyTotalRepository{q: tx}
}

// Upsert writes the total of one (store, talent, month) key
func (r *MonthlyTotalRepository) Upsert(ctx context.Context, total *models.MonthlyTotal) error {
	query := `
		INSERT INTO monthly_totals (store_id, talent_id, month_key, total_amount, refreshed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id, talent_id, month_key)
		DO UPDATE SET total_amount = EXCLUDED.total_amount, refreshed_at = EXCLUDED.refreshed_at
	`

	_, err := r.q.Exec(ctx, query,
		total.StoreID,
		total.TalentID,
		total.MonthKey,
		total.TotalAmount,
		total.RefreshedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly total: %w", err)
	}

	return nil
}

// Get returns the cached total of one key
func (r *MonthlyTotalRepository) Get(ctx context.Context, storeID, talentID, monthKey string) (*models.MonthlyTotal, error) {
	query := `
		SELECT store_id, talent_id, month_key, total_amount, refreshed_at
		FROM monthly_totals
		WHERE store_id = $1 AND talent_id = $2 AND month_key = $3
	`

	var total models.MonthlyTotal
	err := r.q.QueryRow(ctx, query, storeID, talentID, monthKey).Scan(
		&total.StoreID,
		&total.TalentID,
		&total.MonthKey,
		&total.TotalAmount,
		&total.RefreshedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly total: %w", err)
	}

	return &total, nil
}

// GetRanking returns the month's totals of a store joined to talent details
func (r *MonthlyTotalRepository) GetRanking(ctx context.Context, storeID, monthKey string) ([]*models.RankingEntry, error) {
	query := `
		SELECT mt.talent_id, t.name, t.slug, mt.total_amount, t.photo_url
		FROM monthly_totals mt
		JOIN talents t ON t.id = mt.talent_id
		WHERE mt.store_id = $1 AND mt.month_key = $2
		ORDER BY mt.total_amount DESC, mt.talent_id ASC
	`

	rows, err := r.q.Query(ctx, query, storeID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}
	defer rows.Close()

	var entries []*models.RankingEntry
	for rows.Next() {
		var entry models.RankingEntry
		err := rows.Scan(
			&entry.TalentID,
			&entry.Name,
			&entry.Slug,
			&entry.TotalAmount,
			&entry.PhotoURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranking rows: %w", err)
	}

	return entries, nil
}

// DeleteMonth drops every cached total of a month
func (r *MonthlyTotalRepository) DeleteMonth(ctx context.Context, monthKey string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM monthly_totals WHERE month_key = $1`, monthKey)
	if err != nil {
		return 0, fmt.Errorf("failed to delete monthly totals: %w", err)
	}
	return tag.RowsAffected(), nil
}
