package repository

import (
	"context"
	"fmt"
	"time"

	"giftrank/database"
	"giftrank/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const talentColumns = `id, store_id, name, slug, profile_short, photo_url, is_active, created_at, updated_at`

// TalentRepository implements service.TalentRepository
type TalentRepository struct {
	q queryable
}

// NewTalentRepository creates a new talent repository
func NewTalentRepository(db *database.DB) *TalentRepository {
	return &TalentRepository{q: db.Pool}
}

func newTalentRepositoryWithTx(tx queryable) *TalentRepository {
	return &TalentRepository{q: tx}
}

// Create inserts a talent, generating an id when none is set
func (r *TalentRepository) Create(ctx context.Context, talent *models.Talent) error {
	if talent.ID == "" {
		talent.ID = uuid.NewString()
	}
	now := time.Now()

	query := `
		INSERT INTO talents (id, store_id, name, slug, profile_short, photo_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		talent.ID,
		talent.StoreID,
		talent.Name,
		talent.Slug,
		talent.ProfileShort,
		talent.PhotoURL,
		talent.IsActive,
		now,
	).Scan(&talent.CreatedAt, &talent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create talent: %w", err)
	}

	return nil
}

// GetByID retrieves a talent by id
func (r *TalentRepository) GetByID(ctx context.Context, id string) (*models.Talent, error) {
	query := `SELECT ` + talentColumns + ` FROM talents WHERE id = $1`

	talent, err := scanTalent(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get talent: %w", err)
	}
	return talent, nil
}

// GetBySlug retrieves a talent by slug within a store
func (r *TalentRepository) GetBySlug(ctx context.Context, storeID, slug string) (*models.Talent, error) {
	query := `SELECT ` + talentColumns + ` FROM talents WHERE store_id = $1 AND slug = $2`

	talent, err := scanTalent(r.q.QueryRow(ctx, query, storeID, slug))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get talent by slug: %w", err)
	}
	return talent, nil
}

// ListByStore returns the talents of a store ordered by name
func (r *TalentRepository) ListByStore(ctx context.Context, storeID string) ([]*models.Talent, error) {
	query := `SELECT ` + talentColumns + ` FROM talents WHERE store_id = $1 ORDER BY name, id`

	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list talents: %w", err)
	}
	defer rows.Close()

	var talents []*models.Talent
	for rows.Next() {
		talent, err := scanTalent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan talent: %w", err)
		}
		talents = append(talents, talent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating talent rows: %w", err)
	}

	return talents, nil
}

func scanTalent(row pgx.Row) (*models.Talent, error) {
	var talent models.Talent
	err := row.Scan(
		&talent.ID,
		&talent.StoreID,
		&talent.Name,
		&talent.Slug,
		&talent.ProfileShort,
		&talent.PhotoURL,
		&talent.IsActive,
		&talent.CreatedAt,
		&talent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &talent, nil
}
