package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// unreachableRepository points at a port nothing listens on, so any query that
// reaches the driver fails.
func unreachableRepository(t *testing.T) *GORMRepository {
	t.Helper()
	db, err := gorm.Open(postgres.Open("postgres://brandcast@127.0.0.1:1/brandcast?sslmode=disable&connect_timeout=1"), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	return NewGORMRepository(db)
}

func TestGORMMalformedIDsNeverReachPostgres(t *testing.T) {
	ctx := context.Background()
	repo := unreachableRepository(t)
	const malformed = "not-a-uuid"

	user, err := repo.GetUserByID(ctx, malformed)
	require.NoError(t, err)
	assert.Nil(t, user)

	interview, err := repo.GetInterview(ctx, malformed)
	require.NoError(t, err)
	assert.Nil(t, interview)

	interviews, err := repo.ListInterviews(ctx, malformed)
	require.NoError(t, err)
	assert.Empty(t, interviews)

	transcript, err := repo.GetTranscript(ctx, malformed)
	require.NoError(t, err)
	assert.Empty(t, transcript)

	strategy, err := repo.GetStrategy(ctx, malformed)
	require.NoError(t, err)
	assert.Nil(t, strategy)

	strategy, err = repo.GetStrategyByInterview(ctx, malformed)
	require.NoError(t, err)
	assert.Nil(t, strategy)

	strategy, err = repo.GetLatestStrategy(ctx, malformed)
	require.NoError(t, err)
	assert.Nil(t, strategy)

	strategies, err := repo.ListStrategies(ctx, malformed)
	require.NoError(t, err)
	assert.Empty(t, strategies)

	post, err := repo.GetPost(ctx, malformed)
	require.NoError(t, err)
	assert.Nil(t, post)

	posts, err := repo.ListPosts(ctx, PostFilter{UserID: uuid.New().String(), StrategyID: malformed})
	require.NoError(t, err)
	assert.Empty(t, posts)

	assert.ErrorIs(t, repo.UpdatePost(ctx, &models.Post{ID: malformed}), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStrategy(ctx, &models.Strategy{ID: malformed}), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateInterview(ctx, &models.Interview{ID: malformed}), ErrNotFound)
	assert.ErrorIs(t, repo.CreatePosts(ctx, []models.Post{{StrategyID: malformed}}), ErrNotFound)
	_, err = repo.AppendTurn(ctx, malformed, models.SpeakerRespondent, "hello")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, repo.DeletePost(ctx, malformed))
	assert.NoError(t, repo.DeleteInterview(ctx, malformed))

	// a well-formed id does reach the driver
	_, err = repo.GetPost(ctx, uuid.New().String())
	assert.Error(t, err)
}
