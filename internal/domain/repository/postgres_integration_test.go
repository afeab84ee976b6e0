//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/platform/config"
	"recipe_hub/internal/platform/database"
)

func setupPostgres(t *testing.T) *config.Config {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("recipe_hub"),
		postgres.WithUsername("recipes"),
		postgres.WithPassword("recipes"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return &config.Config{DBDSN: dsn, DBMaxOpenConns: 10}
}

func TestIntegration_Postgres(t *testing.T) {
	cfg := setupPostgres(t)
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	users := repository.NewPgUserRepository(db)
	ratings := repository.NewPgRatingRepository(db)
	favorites := repository.NewPgFavoriteRepository(db)

	alice := &model.User{ID: uuid.NewString(), Username: "alice", Email: "alice@example.com", HashedPassword: "x"}
	require.NoError(t, users.Create(ctx, alice))
	dup := &model.User{ID: uuid.NewString(), Username: "alice", Email: "other@example.com", HashedPassword: "x"}
	require.ErrorIs(t, users.Create(ctx, dup), common.ErrConflict)

	t.Run("upsert twice keeps one row", func(t *testing.T) {
		first := &model.Rating{ID: uuid.NewString(), UserID: alice.ID, RecipeID: "52772", Score: 2}
		require.NoError(t, ratings.Upsert(ctx, first))
		second := &model.Rating{ID: uuid.NewString(), UserID: alice.ID, RecipeID: "52772", Score: 5}
		require.NoError(t, ratings.Upsert(ctx, second))

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

		list, err := ratings.ListByRecipe(ctx, "52772")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 5, list[0].Score)
		assert.Equal(t, "alice", list[0].Username)
	})

	t.Run("concurrent upserts keep one row", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(score int) {
				defer wg.Done()
				assert.NoError(t, ratings.Upsert(ctx, &model.Rating{
					ID: uuid.NewString(), UserID: alice.ID, RecipeID: "53000", Score: score%5 + 1,
				}))
			}(i)
		}
		wg.Wait()

		var count int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT count(*) FROM ratings WHERE user_id = $1 AND recipe_id = $2`, alice.ID, "53000",
		).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("favorites allow duplicates newest first", func(t *testing.T) {
		for _, name := range []string{"first", "second"} {
			require.NoError(t, favorites.Add(ctx, &model.Favorite{
				ID: uuid.NewString(), UserID: alice.ID, RecipeID: "52772", RecipeName: name,
			}))
		}
		list, err := favorites.ListByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "second", list[0].RecipeName)
	})
}
