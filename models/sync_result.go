package models

import (
	"time"
)

// SkipReason explains why a fetched payment was not appended to the ledger
type SkipReason string

const (
	SkipReasonAlreadySynced SkipReason = "already_synced"
	SkipReasonNoLineItems   SkipReason = "no_line_items"
	SkipReasonNoCatalogRef  SkipReason = "no_catalog_reference"
	SkipReasonUnknownOffer  SkipReason = "unknown_offer"
	SkipReasonInvalidAmount SkipReason = "invalid_amount"
	SkipReasonAppendFailed  SkipReason = "append_failed"
)

// SyncResult summarizes one orchestrator run
type SyncResult struct {
	SyncedPayments int                `json:"syncedPayments"`
	UpdatedStores  int                `json:"updatedStores"`
	LastSyncTime   time.Time          `json:"lastSyncTime"`
	Skipped        map[SkipReason]int `json:"-"`
}
