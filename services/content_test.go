package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/krshsl/brandcast/models"
	"github.com/krshsl/brandcast/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoPostsJSON = `{"posts": [
  {"content": "Morning bake", "pillar": "Behind the scenes", "hashtags": ["#bread"], "post_type": "behind_the_scenes"},
  {"content": "Why sourdough?", "pillar": "Education", "hashtags": ["#sourdough"], "post_type": "educational"}
]}`

func seedStrategy(t *testing.T, repo *repository.MemoryRepository, content models.StrategyContent) *models.Strategy {
	t.Helper()
	strategy := models.NewStrategy(testOwnerID, "interview-1", content, models.ContentCalendar{})
	require.NoError(t, repo.ReplaceStrategy(context.Background(), strategy))
	return strategy
}

func TestSuggestedTimes(t *testing.T) {
	now := time.Date(2026, time.March, 10, 22, 45, 0, 0, time.UTC)

	t.Run("defaults round robin", func(t *testing.T) {
		times := suggestedTimes(nil, now, 5)
		want := []time.Time{
			time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC),
			time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC),
			time.Date(2026, time.March, 11, 17, 0, 0, 0, time.UTC),
			time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC),
			time.Date(2026, time.March, 12, 12, 0, 0, 0, time.UTC),
		}
		assert.Equal(t, want, times)
	})

	t.Run("twelve hour and unparseable", func(t *testing.T) {
		times := suggestedTimes([]string{"6:30 PM", "whenever"}, now, 3)
		assert.Equal(t, time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC), times[0])
		assert.Equal(t, time.Date(2026, time.March, 11, 18, 30, 0, 0, time.UTC), times[1])
		assert.Equal(t, time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC), times[2])
	})

	t.Run("never decreasing", func(t *testing.T) {
		times := suggestedTimes([]string{"5PM", "08:15", "12:00"}, now, 10)
		for i := 1; i < len(times); i++ {
			assert.False(t, times[i].Before(times[i-1]), "index %d", i)
		}
	})
}

func TestBrandContextOmitsEmptySections(t *testing.T) {
	empty := models.NewStrategy(testOwnerID, "i", models.StrategyContent{}, models.ContentCalendar{})
	assert.Empty(t, brandContext(empty))

	full := models.NewStrategy(testOwnerID, "i", models.StrategyContent{
		BrandSummary:   "A bakery.",
		TargetAudience: []models.Persona{{PersonaName: "Cafe owners", Demographics: "30-50", PainPoints: []string{"late deliveries"}}},
		ContentPillars: []models.ContentPillar{{PillarName: "Craft", Description: "How bread is made", Percentage: 40}},
		ToneAndVoice:   models.ToneAndVoice{BrandVoice: "Warm", ToneAttributes: []string{"friendly", "honest"}},
		HashtagStrategy: []models.HashtagGroup{
			{Category: "Brand", Hashtags: []string{"#dawnbread", "#bakery"}},
		},
	}, models.ContentCalendar{})

	rendered := brandContext(full)
	assert.Contains(t, rendered, "BRAND SUMMARY:\nA bakery.")
	assert.NotContains(t, rendered, "VALUE PROPOSITION")
	assert.Contains(t, rendered, "- Cafe owners: 30-50\n  Pain points: late deliveries")
	assert.Contains(t, rendered, "- Craft: How bread is made (40%)")
	assert.Contains(t, rendered, "BRAND VOICE:\nWarm\nTone: friendly, honest")
	assert.Contains(t, rendered, "- Brand: #dawnbread, #bakery")
}

func TestGenerateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit platforms skip unknown names", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		strategy := seedStrategy(t, repo, models.StrategyContent{BrandSummary: "A bakery."})
		model := &scriptedModel{responses: []string{twoPostsJSON, twoPostsJSON}}
		generator := NewContentGenerator(repo, repo, model, nil)

		result, err := generator.GenerateBatch(ctx, strategy.ID, []string{"LinkedIn", "myspace", "twitter"}, 2)
		require.NoError(t, err)
		require.Len(t, result.Posts, 4)
		assert.Empty(t, result.Failures)
		assert.Equal(t, models.PlatformLinkedIn, result.Posts[0].Platform)
		assert.Equal(t, models.PlatformTwitter, result.Posts[3].Platform)
		assert.Contains(t, model.prompts[0], "PLATFORM GUIDELINES FOR LINKEDIN")
		assert.Contains(t, model.prompts[0], "1200-1500 characters")
		assert.InDelta(t, 0.8, model.options[0].Temperature, 0.001)

		for _, post := range result.Posts {
			assert.Equal(t, models.PostDraft, post.Status)
			require.NotNil(t, post.SuggestedTime)
		}
		assert.False(t, result.Posts[1].SuggestedTime.Before(*result.Posts[0].SuggestedTime))

		stored, err := repo.ListPosts(ctx, repository.PostFilter{StrategyID: strategy.ID})
		require.NoError(t, err)
		assert.Len(t, stored, 4)
	})

	t.Run("defaults to recommended channels", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		strategy := seedStrategy(t, repo, models.StrategyContent{
			RecommendedChannels: []models.Channel{{Platform: "Facebook"}},
		})
		model := &scriptedModel{responses: []string{twoPostsJSON}}

		result, err := NewContentGenerator(repo, repo, model, nil).GenerateBatch(ctx, strategy.ID, nil, 0)
		require.NoError(t, err)
		require.Len(t, model.prompts, 1)
		assert.Contains(t, model.prompts[0], "Generate 5 engaging posts for FACEBOOK")
		assert.Equal(t, models.PlatformFacebook, result.Posts[0].Platform)
	})

	t.Run("defaults to standard platforms", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		strategy := seedStrategy(t, repo, models.StrategyContent{})
		model := &scriptedModel{responses: []string{twoPostsJSON, twoPostsJSON, twoPostsJSON}}

		result, err := NewContentGenerator(repo, repo, model, nil).GenerateBatch(ctx, strategy.ID, nil, 2)
		require.NoError(t, err)
		var platforms []models.Platform
		for i := 0; i < len(result.Posts); i += 2 {
			platforms = append(platforms, result.Posts[i].Platform)
		}
		assert.Equal(t, defaultPlatforms, platforms)
	})

	t.Run("failing platform contributes nothing", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		strategy := seedStrategy(t, repo, models.StrategyContent{})
		model := &scriptedModel{responses: []string{twoPostsJSON, `{"posts": []}`}}

		result, err := NewContentGenerator(repo, repo, model, nil).GenerateBatch(ctx, strategy.ID, []string{"linkedin", "tiktok"}, 2)
		require.NoError(t, err)
		assert.Len(t, result.Posts, 2)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, models.PlatformTikTok, result.Failures[0].Platform)

		stored, err := repo.ListPosts(ctx, repository.PostFilter{StrategyID: strategy.ID, Status: models.PostDraft})
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("every platform failing is an error", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		strategy := seedStrategy(t, repo, models.StrategyContent{})
		model := &scriptedModel{err: errors.New("model overloaded")}

		_, err := NewContentGenerator(repo, repo, model, nil).GenerateBatch(ctx, strategy.ID, []string{"linkedin"}, 2)
		assert.ErrorIs(t, err, ErrCollaborator)
	})

	t.Run("validation", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		generator := NewContentGenerator(repo, repo, &scriptedModel{}, nil)

		_, err := generator.GenerateBatch(ctx, "missing", nil, 2)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = generator.GenerateBatch(ctx, "missing", nil, MaxPostsPerPlatform+1)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("extra posts are trimmed", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		strategy := seedStrategy(t, repo, models.StrategyContent{})
		model := &scriptedModel{responses: []string{twoPostsJSON}}

		result, err := NewContentGenerator(repo, repo, model, nil).GenerateBatch(ctx, strategy.ID, []string{"twitter"}, 1)
		require.NoError(t, err)
		assert.Len(t, result.Posts, 1)
	})
}

func TestRegenerate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	strategy := seedStrategy(t, repo, models.StrategyContent{BrandSummary: "A bakery."})

	scheduled := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	posts := []models.Post{{
		UserID:        testOwnerID,
		StrategyID:    strategy.ID,
		Platform:      models.PlatformLinkedIn,
		Content:       "Old text",
		Tags:          []string{"#old"},
		ContentPillar: "Craft",
		Status:        models.PostApproved,
		ScheduledTime: &scheduled,
	}}
	require.NoError(t, repo.CreatePosts(ctx, posts))

	t.Run("rewrites content in place", func(t *testing.T) {
		model := &scriptedModel{responses: []string{`{"content": "New text", "pillar": "Community", "hashtags": ["#new"]}`}}
		post, err := NewContentGenerator(repo, repo, model, nil).Regenerate(ctx, posts[0].ID, "make it shorter")
		require.NoError(t, err)
		assert.Equal(t, posts[0].ID, post.ID)
		assert.Equal(t, "New text", post.Content)
		assert.Equal(t, "Community", post.ContentPillar)
		assert.Equal(t, []string{"#new"}, []string(post.Tags))
		assert.Equal(t, models.PostApproved, post.Status)
		require.NotNil(t, post.ScheduledTime)
		assert.True(t, scheduled.Equal(*post.ScheduledTime))
		assert.Contains(t, model.prompts[0], "ORIGINAL POST:\nOld text")
		assert.Contains(t, model.prompts[0], "ADDITIONAL INSTRUCTIONS: make it shorter")
	})

	t.Run("failure surfaces and leaves post", func(t *testing.T) {
		model := &scriptedModel{responses: []string{"sorry, cannot help"}}
		_, err := NewContentGenerator(repo, repo, model, nil).Regenerate(ctx, posts[0].ID, "")
		assert.ErrorIs(t, err, ErrCollaborator)

		stored, err := repo.GetPost(ctx, posts[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "New text", stored.Content)
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := NewContentGenerator(repo, repo, &scriptedModel{}, nil).Regenerate(ctx, "missing", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestContentServiceUpdate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	service := NewContentService(repo, nil)

	draft := seedPost(t, repo, models.PlatformInstagram, models.PostDraft)
	media := "https://cdn.example.com/loaf.jpg"
	text := "  Updated caption  "
	updated, err := service.Update(ctx, draft.ID, PostPatch{MediaURL: &media, Content: &text})
	require.NoError(t, err)
	assert.Equal(t, media, updated.MediaURL)
	assert.Equal(t, "Updated caption", updated.Content)

	blank := " "
	_, err = service.Update(ctx, draft.ID, PostPatch{Content: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	posted := seedPost(t, repo, models.PlatformLinkedIn, models.PostPosted)
	_, err = service.Update(ctx, posted.ID, PostPatch{Content: &text})
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, service.Delete(ctx, draft.ID))
	assert.ErrorIs(t, service.Delete(ctx, draft.ID), ErrNotFound)
}

// regeneratingModel regenerates the strategy from under the caller on its first completion.
type regeneratingModel struct {
	strategies  *StrategyService
	interviewID string
	regenerated *models.Strategy
}

func (m *regeneratingModel) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	if m.regenerated == nil {
		strategy, err := m.strategies.Generate(ctx, m.interviewID)
		if err != nil {
			return "", err
		}
		m.regenerated = strategy
	}
	return twoPostsJSON, nil
}

func TestGenerateBatchStopsWhenStrategyReplaced(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	interview := completedInterview(t, repo)
	locker := NewKeyedMutex()
	strategies := NewStrategyService(repo, repo, NewStrategySynthesizer(&scriptedModel{err: errors.New("offline")}), locker, nil)

	original, err := strategies.Generate(ctx, interview.ID)
	require.NoError(t, err)

	model := &regeneratingModel{strategies: strategies, interviewID: interview.ID}
	_, err = NewContentGenerator(repo, repo, model, locker).GenerateBatch(ctx, original.ID, []string{"linkedin", "twitter"}, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NotNil(t, model.regenerated)

	orphans, err := repo.ListPosts(ctx, repository.PostFilter{StrategyID: original.ID})
	require.NoError(t, err)
	assert.Empty(t, orphans)

	all, err := repo.ListPosts(ctx, repository.PostFilter{UserID: testOwnerID})
	require.NoError(t, err)
	assert.Empty(t, all)

	current, err := repo.GetStrategyByInterview(ctx, interview.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, model.regenerated.ID, current.ID)
}
