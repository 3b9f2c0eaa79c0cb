package repository

import (
	"context"
	"testing"

	"giftrank/database"
	"giftrank/models"
	"giftrank/repository/testutil"

	"github.com/stretchr/testify/require"
)

// seedStore creates a store with one talent per slug
func seedStore(t *testing.T, db *database.DB, storeSlug string, talentSlugs ...string) (*models.Store, []*models.Talent) {
	t.Helper()
	ctx := context.Background()

	store := testutil.CreateTestStore(storeSlug)
	require.NoError(t, NewStoreRepository(db).Create(ctx, store))

	talentRepo := NewTalentRepository(db)
	talents := make([]*models.Talent, 0, len(talentSlugs))
	for _, slug := range talentSlugs {
		talent := testutil.CreateTestTalent(store.ID, slug)
		require.NoError(t, talentRepo.Create(ctx, talent))
		talents = append(talents, talent)
	}

	return store, talents
}
