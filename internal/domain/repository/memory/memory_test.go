package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
)

func TestUserRepository_Conflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", Email: "a@example.com"}))
	require.ErrorIs(t, repo.Create(ctx, &model.User{Username: "alice", Email: "other@example.com"}), common.ErrConflict)
	require.ErrorIs(t, repo.Create(ctx, &model.User{Username: "alice2", Email: "a@example.com"}), common.ErrConflict)
	// Usernames are case-sensitive.
	require.NoError(t, repo.Create(ctx, &model.User{Username: "Alice", Email: "b@example.com"}))
	assert.Equal(t, 2, repo.Len())

	_, err := repo.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRatingRepository_UpsertTwiceKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository()
	u := &model.User{Username: "alice", Email: "a@example.com"}
	require.NoError(t, users.Create(ctx, u))
	repo := NewRatingRepository(users)

	first := &model.Rating{UserID: u.ID, RecipeID: "52772", Score: 2}
	require.NoError(t, repo.Upsert(ctx, first))
	comment := "better second time"
	second := &model.Rating{UserID: u.ID, RecipeID: "52772", Score: 5, Comment: &comment}
	require.NoError(t, repo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 1, repo.Len())

	got, err := repo.ListByRecipe(ctx, "52772")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Score)
	assert.Equal(t, "alice", got[0].Username)
	require.NotNil(t, got[0].Comment)
	assert.Equal(t, comment, *got[0].Comment)
}

func TestRatingRepository_ConcurrentUpsertKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	repo := NewRatingRepository(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_ = repo.Upsert(ctx, &model.Rating{UserID: "u-1", RecipeID: "52772", Score: score%5 + 1})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.Len())
	got, err := repo.ListByRecipe(ctx, "52772")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRatingRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRatingRepository(nil)

	require.NoError(t, repo.Upsert(ctx, &model.Rating{UserID: "u-1", RecipeID: "1", Score: 1}))
	require.NoError(t, repo.Upsert(ctx, &model.Rating{UserID: "u-2", RecipeID: "1", Score: 2}))
	require.NoError(t, repo.Upsert(ctx, &model.Rating{UserID: "u-3", RecipeID: "2", Score: 3}))
	// Re-rating does not move a row to the top.
	require.NoError(t, repo.Upsert(ctx, &model.Rating{UserID: "u-1", RecipeID: "1", Score: 4}))

	got, err := repo.ListByRecipe(ctx, "1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u-2", got[0].UserID)
	assert.Equal(t, "u-1", got[1].UserID)
	assert.Equal(t, 4, got[1].Score)

	_, err = repo.Find(ctx, "u-3", "1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFavoriteRepository_AllowsDuplicatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository()

	require.NoError(t, repo.Add(ctx, &model.Favorite{UserID: "u-1", RecipeID: "1", RecipeName: "first"}))
	require.NoError(t, repo.Add(ctx, &model.Favorite{UserID: "u-2", RecipeID: "1", RecipeName: "other user"}))
	require.NoError(t, repo.Add(ctx, &model.Favorite{UserID: "u-1", RecipeID: "1", RecipeName: "again"}))

	got, err := repo.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "again", got[0].RecipeName)
	assert.Equal(t, "first", got[1].RecipeName)

	none, err := repo.ListByUser(ctx, "u-3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
