package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
)

const (
	DefaultPostsPerPlatform = 5
	MaxPostsPerPlatform     = 20
)

var defaultBestTimes = []string{"09:00", "12:00", "17:00"}

var platformGuidelines = map[models.Platform]string{
	models.PlatformLinkedIn: `- Professional tone with personal touches
- Optimal length: 1200-1500 characters for engagement
- Use line breaks for readability
- Start with a hook (question, stat, or bold statement)
- End with a call-to-action or question
- Use 3-5 relevant hashtags at the end
- Emojis used sparingly for emphasis
- Share insights, lessons learned, or industry thoughts`,
	models.PlatformInstagram: `- Casual, authentic, visually-oriented captions
- Optimal length: 125-150 characters for feed, up to 2200 allowed
- Strong hook in first line (shown before "more")
- Use 20-30 hashtags (mix of popular, niche, and branded)
- Include call-to-action (save, share, comment)
- Use emojis naturally throughout
- End with engagement prompt`,
	models.PlatformTwitter: `- Concise, punchy content (280 character limit)
- Use threads for longer content
- Include 1-2 relevant hashtags
- Ask questions to drive engagement
- Use numbers and lists
- Strong opinion or unique take`,
	models.PlatformFacebook: `- Conversational, community-focused tone
- Optimal length: 40-80 characters for highest engagement
- Questions perform well
- Use 1-2 hashtags maximum
- Include clear call-to-action
- Personal stories resonate`,
	models.PlatformTikTok: `- Casual, trendy, authentic voice
- Very short captions (keep it under 100 chars)
- Use trending hashtags
- Hook immediately
- Use 3-5 relevant hashtags
- Encourage duets, stitches, comments`,
}

type generatedPost struct {
	Content  string   `json:"content"`
	Pillar   string   `json:"pillar"`
	Hashtags []string `json:"hashtags"`
	PostType string   `json:"post_type"`
	Hook     string   `json:"hook"`
}

type generatedBatch struct {
	Posts []generatedPost `json:"posts"`
}

// PlatformFailure records a platform whose batch could not be generated.
type PlatformFailure struct {
	Platform models.Platform `json:"platform"`
	Error    string          `json:"error"`
}

// BatchResult holds every stored post in generation order plus the platforms that failed.
type BatchResult struct {
	Posts    []models.Post     `json:"posts"`
	Failures []PlatformFailure `json:"failures,omitempty"`
}

// ContentGenerator writes platform-specific draft posts from a strategy.
type ContentGenerator struct {
	strategies StrategyStore
	posts      PostStore
	model      LanguageModel
	locker     Locker
	now        func() time.Time
}

func NewContentGenerator(strategies StrategyStore, posts PostStore, model LanguageModel, locker Locker) *ContentGenerator {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &ContentGenerator{
		strategies: strategies,
		posts:      posts,
		model:      model,
		locker:     locker,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GenerateBatch generates and stores postsPerPlatform drafts for each requested platform.
// Unknown platform names are skipped. A platform whose generation fails contributes no posts
// and is reported in Failures; the call only errors when every attempted platform failed.
func (g *ContentGenerator) GenerateBatch(ctx context.Context, strategyID string, platforms []string, postsPerPlatform int) (*BatchResult, error) {
	if postsPerPlatform == 0 {
		postsPerPlatform = DefaultPostsPerPlatform
	}
	if postsPerPlatform < 1 || postsPerPlatform > MaxPostsPerPlatform {
		return nil, fmt.Errorf("%w: posts_per_platform must be between 1 and %d", ErrInvalidInput, MaxPostsPerPlatform)
	}

	strategy, err := g.strategies.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, notFound("strategy", strategyID)
	}

	targets := resolvePlatforms(platforms, strategy.Content().RecommendedChannels)
	result := &BatchResult{Posts: []models.Post{}}
	if len(targets) == 0 {
		slog.Info("No known platforms requested, nothing generated", "strategy_id", strategyID, "requested", platforms)
		return result, nil
	}

	for _, platform := range targets {
		posts, err := g.generatePlatform(ctx, strategy, platform, postsPerPlatform)
		if errors.Is(err, ErrNotFound) {
			slog.Warn("Strategy replaced during content generation", "strategy_id", strategyID, "platform", platform)
			return nil, err
		}
		if err != nil {
			slog.Error("Content generation failed for platform", "error", err, "strategy_id", strategyID, "platform", platform)
			result.Failures = append(result.Failures, PlatformFailure{Platform: platform, Error: err.Error()})
			continue
		}
		result.Posts = append(result.Posts, posts...)
	}

	if len(result.Posts) == 0 {
		return nil, collaboratorFailure("content generation", errors.New(result.Failures[0].Error))
	}
	slog.Info("Content batch generated", "strategy_id", strategyID, "posts", len(result.Posts), "failed_platforms", len(result.Failures))
	return result, nil
}

func (g *ContentGenerator) generatePlatform(ctx context.Context, strategy *models.Strategy, platform models.Platform, count int) ([]models.Post, error) {
	if g.model == nil {
		return nil, fmt.Errorf("language model is not configured")
	}

	name := strings.ToUpper(string(platform))
	prompt := fmt.Sprintf(`Generate %d engaging posts for %s.

BRAND CONTEXT:
%s

PLATFORM GUIDELINES FOR %s:
%s

Generate %d posts that:
1. Match the brand voice and tone
2. Address the target audience's pain points and goals
3. Follow %s best practices
4. Use appropriate hashtags
5. Cover different content pillars
6. Are ready to post (no placeholders)

Return JSON with this structure:
{"posts": [{"content": "The post text with hashtags", "pillar": "Which content pillar this belongs to", "hashtags": ["hashtag1"], "post_type": "educational|promotional|engagement|behind_the_scenes|testimonial", "hook": "The attention-grabbing first line"}]}`,
		count, name, brandContext(strategy), name, platformGuidelines[platform], count, platform)

	raw, err := g.model.Complete(ctx, "You are a social media marketing expert who creates engaging, platform-specific content.", prompt, CompletionOptions{
		Temperature: 0.8,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s content: %w", platform, err)
	}

	var batch generatedBatch
	if err := decodeModelJSON(raw, contentBatchSchema, &batch); err != nil {
		return nil, fmt.Errorf("failed to generate %s content: %w", platform, err)
	}
	if len(batch.Posts) > count {
		batch.Posts = batch.Posts[:count]
	}

	times := suggestedTimes(strategy.Content().PostingSchedule.BestTimes, g.now(), len(batch.Posts))
	posts := make([]models.Post, 0, len(batch.Posts))
	for i, generated := range batch.Posts {
		suggested := times[i]
		posts = append(posts, models.Post{
			ID:            uuid.New().String(),
			UserID:        strategy.UserID,
			StrategyID:    strategy.ID,
			Platform:      platform,
			Content:       strings.TrimSpace(generated.Content),
			Tags:          generated.Hashtags,
			ContentPillar: generated.Pillar,
			PostType:      generated.PostType,
			Status:        models.PostDraft,
			SuggestedTime: &suggested,
		})
	}

	if err := g.storePosts(ctx, strategy, posts); err != nil {
		return nil, fmt.Errorf("failed to store %s posts: %w", platform, err)
	}
	return posts, nil
}

// storePosts inserts posts under the interview lock, after checking the strategy was not
// regenerated while the model was running.
func (g *ContentGenerator) storePosts(ctx context.Context, strategy *models.Strategy, posts []models.Post) error {
	unlock, err := g.locker.Lock(ctx, interviewLockKey(strategy.InterviewID))
	if err != nil {
		return err
	}
	defer unlock()

	current, err := g.strategies.GetStrategy(ctx, strategy.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return notFound("strategy", strategy.ID)
	}
	return g.posts.CreatePosts(ctx, posts)
}

// Regenerate rewrites a post's text, tags and pillar in place. Status and scheduling are untouched.
func (g *ContentGenerator) Regenerate(ctx context.Context, postID, instructions string) (*models.Post, error) {
	post, err := g.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	strategy, err := g.strategies.GetStrategy(ctx, post.StrategyID)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, notFound("strategy", post.StrategyID)
	}
	if g.model == nil {
		return nil, collaboratorFailure("post regeneration", fmt.Errorf("language model is not configured"))
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Regenerate this social media post for %s.\n\n", strings.ToUpper(string(post.Platform)))
	prompt.WriteString("BRAND CONTEXT:\n" + brandContext(strategy) + "\n\n")
	prompt.WriteString("PLATFORM GUIDELINES:\n" + platformGuidelines[post.Platform] + "\n\n")
	if post.ContentPillar != "" {
		prompt.WriteString("CONTENT PILLAR: " + post.ContentPillar + "\n\n")
	}
	prompt.WriteString("ORIGINAL POST:\n" + post.Content + "\n\n")
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		prompt.WriteString("ADDITIONAL INSTRUCTIONS: " + instructions + "\n\n")
	}
	prompt.WriteString(`Generate a new version that maintains the brand voice, follows platform best practices and addresses any instructions provided.

Return JSON: {"content": "The new post text with hashtags", "pillar": "Content pillar", "hashtags": ["hashtag1"]}`)

	raw, err := g.model.Complete(ctx, "You are a social media expert who creates engaging content.", prompt.String(), CompletionOptions{
		Temperature: 0.8,
		JSON:        true,
	})
	if err != nil {
		return nil, collaboratorFailure("post regeneration", err)
	}

	var regenerated generatedPost
	if err := decodeModelJSON(raw, regeneratedPostSchema, &regenerated); err != nil {
		return nil, collaboratorFailure("post regeneration", err)
	}

	unlock, err := g.locker.Lock(ctx, postLockKey(postID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// the model call can be slow; apply the new text to the latest stored version
	post, err = g.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	post.Content = strings.TrimSpace(regenerated.Content)
	if regenerated.Hashtags != nil {
		post.Tags = regenerated.Hashtags
	}
	if regenerated.Pillar != "" {
		post.ContentPillar = regenerated.Pillar
	}
	if err := g.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to store regenerated post: %w", err)
	}
	slog.Info("Post regenerated", "post_id", post.ID, "platform", post.Platform)
	return post, nil
}

// resolvePlatforms maps requested names onto known platforms, defaulting to the strategy's channels.
func resolvePlatforms(requested []string, channels []models.Channel) []models.Platform {
	if len(requested) == 0 {
		for _, channel := range channels {
			requested = append(requested, channel.Platform)
		}
	}
	if len(requested) == 0 {
		return append([]models.Platform(nil), defaultPlatforms...)
	}

	var platforms []models.Platform
	seen := make(map[models.Platform]bool)
	for _, name := range requested {
		platform, ok := models.ParsePlatform(name)
		if !ok {
			slog.Debug("Skipping unknown platform", "platform", name)
			continue
		}
		if seen[platform] {
			continue
		}
		seen[platform] = true
		platforms = append(platforms, platform)
	}
	return platforms
}

// brandContext renders the strategy sections that have content, skipping empty ones.
func brandContext(strategy *models.Strategy) string {
	content := strategy.Content()
	var parts []string

	if content.BrandSummary != "" {
		parts = append(parts, "BRAND SUMMARY:\n"+content.BrandSummary)
	}
	if content.ValueProposition != "" {
		parts = append(parts, "VALUE PROPOSITION:\n"+content.ValueProposition)
	}
	if len(content.TargetAudience) > 0 {
		var lines []string
		for _, persona := range content.TargetAudience {
			name := persona.PersonaName
			if name == "" {
				name = "Audience"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", name, persona.Demographics))
			if len(persona.PainPoints) > 0 {
				lines = append(lines, "  Pain points: "+strings.Join(persona.PainPoints, ", "))
			}
		}
		parts = append(parts, "TARGET AUDIENCE:\n"+strings.Join(lines, "\n"))
	}
	if len(content.ContentPillars) > 0 {
		var lines []string
		for _, pillar := range content.ContentPillars {
			lines = append(lines, fmt.Sprintf("- %s: %s (%g%%)", pillar.PillarName, pillar.Description, pillar.Percentage))
		}
		parts = append(parts, "CONTENT PILLARS:\n"+strings.Join(lines, "\n"))
	}
	if voice := content.ToneAndVoice; voice.BrandVoice != "" || len(voice.ToneAttributes) > 0 {
		section := "BRAND VOICE:\n" + voice.BrandVoice
		if len(voice.ToneAttributes) > 0 {
			section += "\nTone: " + strings.Join(voice.ToneAttributes, ", ")
		}
		parts = append(parts, section)
	}
	if len(content.HashtagStrategy) > 0 {
		var lines []string
		for _, group := range content.HashtagStrategy {
			lines = append(lines, fmt.Sprintf("- %s: %s", group.Category, strings.Join(group.Hashtags, ", ")))
		}
		parts = append(parts, "HASHTAG STRATEGY:\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

type clockTime struct {
	hour, minute int
}

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3 PM", "3PM"}

func parseClockTime(value string) clockTime {
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, layout := range clockLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return clockTime{hour: parsed.Hour(), minute: parsed.Minute()}
		}
	}
	return clockTime{hour: 9}
}

// suggestedTimes spreads n posts round-robin over the day's best times, starting the day after now
// and moving to the next day after every full round. Results never decrease.
func suggestedTimes(bestTimes []string, now time.Time, n int) []time.Time {
	if len(bestTimes) == 0 {
		bestTimes = defaultBestTimes
	}
	slots := make([]clockTime, 0, len(bestTimes))
	for _, value := range bestTimes {
		slots = append(slots, parseClockTime(value))
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].hour != slots[j].hour {
			return slots[i].hour < slots[j].hour
		}
		return slots[i].minute < slots[j].minute
	})

	base := now.UTC().AddDate(0, 0, 1)
	times := make([]time.Time, n)
	for i := range times {
		day := base.AddDate(0, 0, i/len(slots))
		slot := slots[i%len(slots)]
		times[i] = time.Date(day.Year(), day.Month(), day.Day(), slot.hour, slot.minute, 0, 0, time.UTC)
	}
	return times
}
