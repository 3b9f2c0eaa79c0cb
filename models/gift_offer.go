package models

import (
	"time"
)

// GiftOffer is one purchasable gift tier. It belongs to a talent or,
// for shared store templates, to the store alone (TalentID is nil).
type GiftOffer struct {
	ID               string    `db:"id" json:"id"`
	StoreID          string    `db:"store_id" json:"storeId"`
	TalentID         *string   `db:"talent_id" json:"talentId"`
	Label            string    `db:"label" json:"label"`
	Amount           int64     `db:"amount" json:"amount"`
	CatalogReference string    `db:"catalog_reference" json:"catalogReference"`
	IsActive         bool      `db:"is_active" json:"isActive"`
	CheckoutURL      *string   `db:"checkout_url" json:"checkoutUrl"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// OwnerID returns the talent id for talent offers and the store id for store templates
func (o *GiftOffer) OwnerID() string {
	if o.TalentID != nil {
		return *o.TalentID
	}
	return o.StoreID
}

// HasCheckoutURL reports whether a checkout link has already been memoized
func (o *GiftOffer) HasCheckoutURL() bool {
	return o.CheckoutURL != nil && *o.CheckoutURL != ""
}
