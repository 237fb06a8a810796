package repository

import (
	"context"
	"testing"
	"time"

	"github.com/krshsl/brandcast/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStrategyWithPosts(t *testing.T, repo *MemoryRepository, interviewID string, postCount int) *models.Strategy {
	t.Helper()
	ctx := context.Background()

	strategy := models.NewStrategy("user-1", interviewID, models.StrategyContent{BrandSummary: "bakery"}, models.ContentCalendar{})
	require.NoError(t, repo.ReplaceStrategy(ctx, strategy))

	posts := make([]models.Post, postCount)
	for i := range posts {
		posts[i] = models.Post{UserID: "user-1", StrategyID: strategy.ID, Platform: models.PlatformLinkedIn, Content: "hello", Status: models.PostDraft}
	}
	require.NoError(t, repo.CreatePosts(ctx, posts))
	return strategy
}

func TestMemoryReplaceStrategyDiscardsPriorStrategyAndPosts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first := seedStrategyWithPosts(t, repo, "interview-1", 3)
	other := seedStrategyWithPosts(t, repo, "interview-2", 2)

	second := models.NewStrategy("user-1", "interview-1", models.StrategyContent{BrandSummary: "bakery v2"}, models.ContentCalendar{})
	require.NoError(t, repo.ReplaceStrategy(ctx, second))

	gone, err := repo.GetStrategy(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	current, err := repo.GetStrategyByInterview(ctx, "interview-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)

	orphans, err := repo.ListPosts(ctx, PostFilter{StrategyID: first.ID})
	require.NoError(t, err)
	assert.Empty(t, orphans)

	untouched, err := repo.ListPosts(ctx, PostFilter{StrategyID: other.ID})
	require.NoError(t, err)
	assert.Len(t, untouched, 2)
}

func TestMemoryDeleteInterviewCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	interview := &models.Interview{UserID: "user-1", Status: models.InterviewInProgress}
	require.NoError(t, repo.CreateInterview(ctx, interview))
	_, err := repo.AppendTurn(ctx, interview.ID, models.SpeakerInterviewer, "What's your name?")
	require.NoError(t, err)
	strategy := seedStrategyWithPosts(t, repo, interview.ID, 2)

	require.NoError(t, repo.DeleteInterview(ctx, interview.ID))

	found, err := repo.GetInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	assert.Empty(t, transcript)

	posts, err := repo.ListPosts(ctx, PostFilter{StrategyID: strategy.ID})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestMemoryAppendTurnPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	interview := &models.Interview{UserID: "user-1", Status: models.InterviewInProgress}
	require.NoError(t, repo.CreateInterview(ctx, interview))
	for _, content := range []string{"q1", "a1", "q2"} {
		_, err := repo.AppendTurn(ctx, interview.ID, models.SpeakerInterviewer, content)
		require.NoError(t, err)
	}

	_, err := repo.AppendTurn(ctx, "missing", models.SpeakerRespondent, "hello?")
	assert.ErrorIs(t, err, ErrNotFound)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	for i, turn := range transcript {
		assert.Equal(t, i, turn.TurnOrder)
	}
	assert.Equal(t, "q2", transcript[2].Content)
}

func TestMemoryListPostsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	for _, id := range []string{"s1", "s2"} {
		strategy := models.NewStrategy("user-1", "interview-"+id, models.StrategyContent{}, models.ContentCalendar{})
		strategy.ID = id
		require.NoError(t, repo.ReplaceStrategy(ctx, strategy))
	}

	later := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	earlier := later.Add(-24 * time.Hour)
	posts := []models.Post{
		{UserID: "user-1", StrategyID: "s1", Platform: models.PlatformTwitter, Status: models.PostDraft, SuggestedTime: &later},
		{UserID: "user-1", StrategyID: "s1", Platform: models.PlatformTwitter, Status: models.PostApproved, SuggestedTime: &earlier},
		{UserID: "user-2", StrategyID: "s2", Platform: models.PlatformTwitter, Status: models.PostDraft},
	}
	require.NoError(t, repo.CreatePosts(ctx, posts))

	ordered, err := repo.ListPosts(ctx, PostFilter{StrategyID: "s1"})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, earlier, *ordered[0].SuggestedTime)

	drafts, err := repo.ListPosts(ctx, PostFilter{UserID: "user-1", Status: models.PostDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, later, *drafts[0].SuggestedTime)
}

func TestMemoryWritesDoNotRecreateDeletedRows(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first := seedStrategyWithPosts(t, repo, "interview-1", 1)
	posts, err := repo.ListPosts(ctx, PostFilter{StrategyID: first.ID})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	stale := posts[0]

	second := models.NewStrategy("user-1", "interview-1", models.StrategyContent{BrandSummary: "bakery v2"}, models.ContentCalendar{})
	require.NoError(t, repo.ReplaceStrategy(ctx, second))

	first.BrandSummary = "edited"
	assert.ErrorIs(t, repo.UpdateStrategy(ctx, first), ErrNotFound)

	stale.Status = models.PostApproved
	assert.ErrorIs(t, repo.UpdatePost(ctx, &stale), ErrNotFound)

	late := []models.Post{{UserID: "user-1", StrategyID: first.ID, Platform: models.PlatformTwitter, Status: models.PostDraft}}
	assert.ErrorIs(t, repo.CreatePosts(ctx, late), ErrNotFound)

	strategies, err := repo.ListStrategies(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, second.ID, strategies[0].ID)

	leftovers, err := repo.ListPosts(ctx, PostFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	assert.ErrorIs(t, repo.UpdateInterview(ctx, &models.Interview{ID: "missing"}), ErrNotFound)
}
