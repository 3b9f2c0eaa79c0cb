package repository

import (
	"context"
	"fmt"
	"time"

	"giftrank/database"
	"giftrank/models"
	"giftrank/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const giftOfferColumns = `id, store_id, talent_id, label, amount, catalog_reference, is_active, checkout_url, created_at, updated_at`

// GiftOfferRepository implements service.GiftOfferRepository
type GiftOfferRepository struct {
	q queryable
}

// NewGiftOfferRepository creates a new gift offer repository
func NewGiftOfferRepository(db *database.DB) *GiftOfferRepository {
	return &GiftOfferRepository{q: db.Pool}
}

func newGiftOfferRepositoryWithTx(tx queryable) *GiftOfferRepository {
	return &GiftOfferRepository{q: tx}
}

// Create inserts an offer, generating an id when none is set
func (r *GiftOfferRepository) Create(ctx context.Context, offer *models.GiftOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	now := time.Now()

	query := `
		INSERT INTO gift_offers (id, store_id, talent_id, label, amount, catalog_reference, is_active, checkout_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		offer.ID,
		offer.StoreID,
		offer.TalentID,
		offer.Label,
		offer.Amount,
		offer.CatalogReference,
		offer.IsActive,
		offer.CheckoutURL,
		now,
	).Scan(&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gift offer: %w", err)
	}

	return nil
}

// GetByID retrieves an offer by id
func (r *GiftOfferRepository) GetByID(ctx context.Context, id string) (*models.GiftOffer, error) {
	query := `SELECT ` + giftOfferColumns + ` FROM gift_offers WHERE id = $1`

	offer, err := scanGiftOffer(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift offer: %w", err)
	}
	return offer, nil
}

// GetByCatalogReference retrieves an offer by its external catalog reference
func (r *GiftOfferRepository) GetByCatalogReference(ctx context.Context, catalogReference string) (*models.GiftOffer, error) {
	query := `SELECT ` + giftOfferColumns + ` FROM gift_offers WHERE catalog_reference = $1`

	offer, err := scanGiftOffer(r.q.QueryRow(ctx, query, catalogReference))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift offer by catalog reference: %w", err)
	}
	return offer, nil
}

// ListByStore returns the offers of a store ordered by amount
func (r *GiftOfferRepository) ListByStore(ctx context.Context, storeID string) ([]*models.GiftOffer, error) {
	query := `SELECT ` + giftOfferColumns + ` FROM gift_offers WHERE store_id = $1 ORDER BY amount, id`

	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gift offers: %w", err)
	}
	defer rows.Close()

	var offers []*models.GiftOffer
	for rows.Next() {
		offer, err := scanGiftOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift offer: %w", err)
		}
		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gift offer rows: %w", err)
	}

	return offers, nil
}

// SetCheckoutURL memoizes url unless a URL is already stored, and returns the stored URL
func (r *GiftOfferRepository) SetCheckoutURL(ctx context.Context, id string, url string) (string, error) {
	query := `
		UPDATE gift_offers
		SET checkout_url = $2, updated_at = NOW()
		WHERE id = $1 AND (checkout_url IS NULL OR checkout_url = '')
		RETURNING checkout_url
	`

	var stored string
	err := r.q.QueryRow(ctx, query, id, url).Scan(&stored)
	if err == nil {
		return stored, nil
	}
	if err != pgx.ErrNoRows {
		return "", fmt.Errorf("failed to set checkout url: %w", err)
	}

	// Lost the race or the offer is gone
	var existing *string
	err = r.q.QueryRow(ctx, `SELECT checkout_url FROM gift_offers WHERE id = $1`, id).Scan(&existing)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("gift offer %s: %w", id, service.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read checkout url: %w", err)
	}
	if existing == nil {
		return "", fmt.Errorf("checkout url for gift offer %s was not stored", id)
	}

	return *existing, nil
}

// ClearCheckoutURL removes the memoized checkout URL so the next resolution mints a new one
func (r *GiftOfferRepository) ClearCheckoutURL(ctx context.Context, id string) error {
	return r.update(ctx, "clear checkout url", `UPDATE gift_offers SET checkout_url = NULL, updated_at = NOW() WHERE id = $1`, id)
}

// SetActive toggles the active flag of an offer
func (r *GiftOfferRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, "set gift offer active", `UPDATE gift_offers SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

func (r *GiftOfferRepository) update(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to %s: %w", op, service.ErrNotFound)
	}
	return nil
}

func scanGiftOffer(row pgx.Row) (*models.GiftOffer, error) {
	var offer models.GiftOffer
	err := row.Scan(
		&offer.ID,
		&offer.StoreID,
		&offer.TalentID,
		&offer.Label,
		&offer.Amount,
		&offer.CatalogReference,
		&offer.IsActive,
		&offer.CheckoutURL,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &offer, nil
}
