package models

import (
	"time"
)

// SettledPayment is a completed external payment reconciled against a gift offer.
// Rows are append-only; ExternalPaymentID is unique across the ledger.
type SettledPayment struct {
	ID                int64     `db:"id" json:"id"`
	ExternalPaymentID string    `db:"external_payment_id" json:"externalPaymentId"`
	TalentID          *string   `db:"talent_id" json:"talentId"`
	StoreID           string    `db:"store_id" json:"storeId"`
	Amount            int64     `db:"amount" json:"amount"`
	SettledAt         time.Time `db:"settled_at" json:"settledAt"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// TalentTotal is the summed amount for one (store, talent) pair over a period
type TalentTotal struct {
	StoreID     string
	TalentID    string
	TotalAmount int64
}
