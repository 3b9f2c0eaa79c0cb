package testutil

import (
	"fmt"
	"time"

	"giftrank/models"

	"github.com/google/uuid"
)

// CreateTestStore creates a public test store with the given slug
func CreateTestStore(slug string) *models.Store {
	return &models.Store{
		ID:          uuid.NewString(),
		Name:        "Store " + slug,
		Slug:        slug,
		Description: "test store",
		IsPublic:    true,
	}
}

// CreateTestTalent creates an active test talent in a store
func CreateTestTalent(storeID, slug string) *models.Talent {
	photo := fmt.Sprintf("https://images.example.test/%s.jpg", slug)
	return &models.Talent{
		ID:       uuid.NewString(),
		StoreID:  storeID,
		Name:     "Talent " + slug,
		Slug:     slug,
		PhotoURL: &photo,
		IsActive: true,
	}
}

// CreateTestOffer creates an active talent offer with the given catalog reference and amount
func CreateTestOffer(storeID, talentID, catalogReference string, amount int64) *models.GiftOffer {
	return &models.GiftOffer{
		ID:               uuid.NewString(),
		StoreID:          storeID,
		TalentID:         &talentID,
		Label:            fmt.Sprintf("Gift %d", amount),
		Amount:           amount,
		CatalogReference: catalogReference,
		IsActive:         true,
	}
}

// CreateTestStoreOffer creates an active store-level template offer
func CreateTestStoreOffer(storeID, catalogReference string, amount int64) *models.GiftOffer {
	offer := CreateTestOffer(storeID, "", catalogReference, amount)
	offer.TalentID = nil
	return offer
}

// CreateTestPayment creates a talent payment for the ledger
func CreateTestPayment(externalID, storeID, talentID string, amount int64, settledAt time.Time) *models.SettledPayment {
	return &models.SettledPayment{
		ExternalPaymentID: externalID,
		StoreID:           storeID,
		TalentID:          &talentID,
		Amount:            amount,
		SettledAt:         settledAt,
	}
}
