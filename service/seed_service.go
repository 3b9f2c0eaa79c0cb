package service

import (
	"context"
	"fmt"

	"giftrank/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SampleStoreSlug is the slug of the store created by SeedSampleData
const SampleStoreSlug = "sample-store"

var sampleTalents = []struct {
	name    string
	slug    string
	profile string
}{
	{"花子", "hanako", "明るく元気な性格です！いつも笑顔でお客様をお迎えします。"},
	{"麻美", "asami", "落ち着いた雰囲気の癒し系です。ゆったりとした時間を過ごせます。"},
	{"さくら", "sakura", "明るくて話しやすい！いつもニコニコしています♪"},
}

var sampleTiers = []struct {
	label  string
	amount int64
}{
	{"ちょっとしたギフト", 1000},
	{"応援ギフト", 3000},
	{"スペシャルギフト", 5000},
}

// SeedResult summarizes what SeedSampleData wrote
type SeedResult struct {
	StoreID string `json:"storeId"`
	Talents int    `json:"talents"`
	Offers  int    `json:"offers"`
	Skipped bool   `json:"skipped"`
}

// SeedSampleData creates a demo store with three talents, three offers each
// and one store-level template. It is a no-op when the sample store exists.
func SeedSampleData(ctx context.Context, uowFactory UnitOfWorkFactory) (*SeedResult, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.StoreRepository().GetBySlug(ctx, SampleStoreSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sample store: %w", err)
	}
	if existing != nil {
		log.WithField("storeId", existing.ID).Info("Sample store already present, skipping seed")
		return &SeedResult{StoreID: existing.ID, Skipped: true}, nil
	}

	store := &models.Store{
		ID:          uuid.NewString(),
		Name:        "サンプル店舗",
		Slug:        SampleStoreSlug,
		Description: "推しにギフトを送れるテスト店舗です",
		AddressText: "東京都渋谷区サンプル1-2-3",
		HoursText:   "平日 18:00-24:00 / 土日祝 17:00-24:00",
		IsPublic:    true,
	}
	if err := uow.StoreRepository().Create(ctx, store); err != nil {
		return nil, err
	}

	result := &SeedResult{StoreID: store.ID}
	for _, t := range sampleTalents {
		talent := &models.Talent{
			ID:           uuid.NewString(),
			StoreID:      store.ID,
			Name:         t.name,
			Slug:         t.slug,
			ProfileShort: t.profile,
			IsActive:     true,
		}
		if err := uow.TalentRepository().Create(ctx, talent); err != nil {
			return nil, err
		}
		result.Talents++

		for _, tier := range sampleTiers {
			talentID := talent.ID
			offer := &models.GiftOffer{
				ID:               uuid.NewString(),
				StoreID:          store.ID,
				TalentID:         &talentID,
				Label:            tier.label,
				Amount:           tier.amount,
				CatalogReference: fmt.Sprintf("DUMMY_ITEM_%s_%d", talent.ID, tier.amount),
				IsActive:         true,
			}
			if err := uow.GiftOfferRepository().Create(ctx, offer); err != nil {
				return nil, err
			}
			result.Offers++
		}
	}

	template := &models.GiftOffer{
		ID:               uuid.NewString(),
		StoreID:          store.ID,
		Label:            "お店へのギフト",
		Amount:           2000,
		CatalogReference: fmt.Sprintf("DUMMY_ITEM_%s_store", store.ID),
		IsActive:         true,
	}
	if err := uow.GiftOfferRepository().Create(ctx, template); err != nil {
		return nil, err
	}
	result.Offers++

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed: %w", err)
	}

	log.WithFields(log.Fields{
		"storeId": store.ID,
		"talents": result.Talents,
		"offers":  result.Offers,
	}).Info("Seeded sample data")

	return result, nil
}
