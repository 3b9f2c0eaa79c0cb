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

// StoreRepository implements service.StoreRepository
type StoreRepository struct {
	q queryable
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *database.DB) *StoreRepository {
	return &StoreRepository{q: db.Pool}
}

func newStoreRepositoryWithTx(tx queryable) *StoreRepository {
	return &StoreRepository{q: tx}
}

// Create inserts a store, generating an id when none is set
func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	now := time.Now()

	query := `
		INSERT INTO stores (id, name, slug, description, address_text, hours_text, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		store.ID,
		store.Name,
		store.Slug,
		store.Description,
		store.AddressText,
		store.HoursText,
		store.IsPublic,
		now,
	).Scan(&store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	return nil
}

// GetByID retrieves a store by id
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	return r.getOne(ctx, "id", id)
}

// GetBySlug retrieves a store by slug
func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	return r.getOne(ctx, "slug", slug)
}

func (r *StoreRepository) getOne(ctx context.Context, column, value string) (*models.Store, error) {
	query := fmt.Sprintf(`
		SELECT id, name, slug, description, address_text, hours_text, is_public, created_at, updated_at
		FROM stores
		WHERE %s = $1
	`, column)

	var store models.Store
	err := r.q.QueryRow(ctx, query, value).Scan(
		&store.ID,
		&store.Name,
		&store.Slug,
		&store.Description,
		&store.AddressText,
		&store.HoursText,
		&store.IsPublic,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store by %s: %w", column, err)
	}

	return &store, nil
}
