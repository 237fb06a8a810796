package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/krshsl/brandcast/models"
)

const strategySystemPrompt = `You are an expert marketing strategist. Based on the interview transcript, create a comprehensive marketing strategy. Be specific and actionable.

Return a JSON object with this exact structure:
{
  "brand_summary": "2-3 paragraph summary of the brand, their mission, and market position",
  "target_audience": [{"persona_name": "...", "demographics": "...", "psychographics": "...", "pain_points": ["..."], "goals": ["..."], "where_they_hang_out": ["..."]}],
  "value_proposition": "Clear statement of the unique value this brand provides",
  "recommended_channels": [{"platform": "LinkedIn, Instagram, Twitter, Facebook or TikTok", "priority": "primary or secondary", "reasoning": "...", "content_types": ["..."], "posting_frequency": "...", "best_times": ["9:00 AM"]}],
  "content_pillars": [{"pillar_name": "...", "description": "...", "percentage": 25, "example_topics": ["..."]}],
  "posting_schedule": {"posts_per_week": 5, "best_days": ["Monday"], "best_times": ["9:00 AM", "12:00 PM", "6:00 PM"], "content_mix": {"educational": 30, "promotional": 20, "engagement": 25, "behind_the_scenes": 15, "user_generated": 10}},
  "tone_and_voice": {"brand_voice": "...", "tone_attributes": ["..."], "language_style": "...", "dos": ["..."], "donts": ["..."]},
  "hashtag_strategy": [{"category": "Brand hashtags", "hashtags": ["#Brand"], "usage": "Use on every post"}],
  "content_ideas": [{"title": "...", "type": "carousel, video, story, etc.", "platform": "...", "description": "...", "pillar": "..."}]
}`

const calendarTranscriptLimit = 3000

var (
	defaultPlatforms = []models.Platform{models.PlatformLinkedIn, models.PlatformInstagram, models.PlatformTwitter}

	// monthly post counts for months 1 through 3
	defaultVolumes = map[models.Platform][3]int{
		models.PlatformInstagram: {4, 6, 8},
		models.PlatformLinkedIn:  {3, 4, 5},
		models.PlatformTwitter:   {8, 12, 15},
		models.PlatformFacebook:  {3, 4, 5},
		models.PlatformTikTok:    {3, 5, 6},
	}

	defaultContentTypes = map[models.Platform]string{
		models.PlatformInstagram: "Posts & Reels",
		models.PlatformLinkedIn:  "Posts & Articles",
		models.PlatformTwitter:   "Tweets & Threads",
		models.PlatformFacebook:  "Posts & Stories",
		models.PlatformTikTok:    "Short Videos",
	}

	monthFocuses = [3]string{
		"Foundation & Brand Awareness",
		"Growth & Community Building",
		"Optimization & Conversion",
	}
)

// StrategySynthesizer turns a finished interview into strategy content and a 90-day calendar.
type StrategySynthesizer struct {
	model LanguageModel
	now   func() time.Time
}

func NewStrategySynthesizer(model LanguageModel) *StrategySynthesizer {
	return &StrategySynthesizer{
		model: model,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Synthesize returns empty content when the model fails or answers with something unparseable.
func (s *StrategySynthesizer) Synthesize(ctx context.Context, transcript models.Transcript, analysis *models.InterviewAnalysis) models.StrategyContent {
	if s.model == nil {
		return models.StrategyContent{}
	}

	var prompt strings.Builder
	prompt.WriteString("Create a marketing strategy based on this interview:\n\n")
	prompt.WriteString(transcript.Render())
	if notes := renderAnalysis(analysis); notes != "" {
		prompt.WriteString("\n\nANALYST NOTES:\n")
		prompt.WriteString(notes)
	}

	raw, err := s.model.Complete(ctx, strategySystemPrompt, prompt.String(), CompletionOptions{
		Temperature:     0.4,
		MaxOutputTokens: 4000,
		JSON:            true,
	})
	if err != nil {
		slog.Warn("Strategy synthesis call failed, storing placeholder", "error", err)
		return models.StrategyContent{}
	}

	var content models.StrategyContent
	if err := decodeModelJSON(raw, nil, &content); err != nil {
		slog.Warn("Strategy output was not valid JSON, storing placeholder", "error", err)
		return models.StrategyContent{}
	}
	return content
}

// DeriveCalendar asks the model for per-platform monthly volumes and falls back to DefaultCalendar.
func (s *StrategySynthesizer) DeriveCalendar(ctx context.Context, transcript models.Transcript, channels []models.Channel, pillars []models.ContentPillar) models.ContentCalendar {
	now := s.now()
	if s.model == nil {
		return DefaultCalendar(channels, now)
	}

	names := monthNames(now)
	systemPrompt := calendarSystemPrompt(names, channels, pillars)

	rendered := truncateRunes(transcript.Render(), calendarTranscriptLimit)

	raw, err := s.model.Complete(ctx, systemPrompt, "Create a 90-day content calendar based on this business interview:\n\n"+rendered, CompletionOptions{
		Temperature:     0.4,
		MaxOutputTokens: 2500,
		JSON:            true,
	})
	if err != nil {
		slog.Warn("Calendar derivation call failed, using default calendar", "error", err)
		return DefaultCalendar(channels, now)
	}

	var calendar models.ContentCalendar
	if err := decodeModelJSON(raw, calendarSchema, &calendar); err != nil {
		slog.Warn("Calendar output rejected, using default calendar", "error", err)
		return DefaultCalendar(channels, now)
	}

	normalizeCalendar(&calendar, names)
	return calendar
}

// DefaultCalendar is the table-driven 90-day plan used whenever the model cannot provide one.
// Channels that do not name a known platform are ignored; with none left the default platforms are planned.
func DefaultCalendar(channels []models.Channel, now time.Time) models.ContentCalendar {
	type planned struct {
		platform models.Platform
		label    string
	}
	var plan []planned
	seen := make(map[models.Platform]bool)
	for _, channel := range channels {
		platform, ok := models.ParsePlatform(channel.Platform)
		if !ok || seen[platform] {
			continue
		}
		seen[platform] = true
		plan = append(plan, planned{platform: platform, label: strings.TrimSpace(channel.Platform)})
	}
	if len(plan) == 0 {
		for _, platform := range defaultPlatforms {
			plan = append(plan, planned{platform: platform, label: platform.DisplayName()})
		}
	}

	names := monthNames(now)
	calendar := models.ContentCalendar{
		StrategySummary:  "A gradual 90-day content strategy focusing on building brand awareness and engagement.",
		RecommendedTools: []string{"Content scheduling tool", "Analytics dashboard"},
	}
	for i := 0; i < 3; i++ {
		month := models.CalendarMonth{
			Month: i + 1,
			Name:  names[i],
			Focus: monthFocuses[i],
			PillarDistribution: []models.PillarShare{
				{Pillar: "Educational", Percentage: 40},
				{Pillar: "Promotional", Percentage: 30},
				{Pillar: "Engagement", Percentage: 30},
			},
			KeyGoals: []string{
				"Establish consistent posting",
				"Build audience engagement",
				"Track performance metrics",
			},
		}
		for _, p := range plan {
			count := defaultVolumes[p.platform][i]
			month.Platforms = append(month.Platforms, models.PlatformVolume{
				Platform:     p.label,
				PostCount:    count,
				ContentTypes: defaultContentTypes[p.platform],
				Reasoning:    "Standard volume for " + p.label,
			})
			month.TotalPosts += count
		}
		calendar.TotalPosts90Days += month.TotalPosts
		calendar.Months = append(calendar.Months, month)
	}
	return calendar
}

// normalizeCalendar recomputes totals from the platform counts so they always agree.
func normalizeCalendar(calendar *models.ContentCalendar, names [3]string) {
	calendar.TotalPosts90Days = 0
	for i := range calendar.Months {
		month := &calendar.Months[i]
		month.Month = i + 1
		if month.Name == "" {
			month.Name = names[i]
		}
		if month.Focus == "" {
			month.Focus = monthFocuses[i]
		}
		month.TotalPosts = 0
		for _, platform := range month.Platforms {
			month.TotalPosts += platform.PostCount
		}
		calendar.TotalPosts90Days += month.TotalPosts
	}
}

func monthNames(now time.Time) [3]string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var names [3]string
	for i := range names {
		names[i] = first.AddDate(0, i, 0).Format("January 2006")
	}
	return names
}

func calendarSystemPrompt(names [3]string, channels []models.Channel, pillars []models.ContentPillar) string {
	var platformNames []string
	for _, channel := range channels {
		if channel.Platform != "" {
			platformNames = append(platformNames, channel.Platform)
		}
	}
	platformList := "Instagram, LinkedIn, Twitter, Facebook"
	if len(platformNames) > 0 {
		platformList = strings.Join(platformNames, ", ")
	}

	var pillarNames []string
	for _, pillar := range pillars {
		if pillar.PillarName != "" {
			pillarNames = append(pillarNames, pillar.PillarName)
		}
	}
	pillarList := "Educational, Promotional, Engagement"
	if len(pillarNames) > 0 {
		pillarList = strings.Join(pillarNames, ", ")
	}

	return fmt.Sprintf(`You are an expert social media strategist creating a 90-day content calendar.

Based on the business interview, recommend specific post counts per platform for each of the next 3 months.

Consider business size and resources, platform best practices (Twitter needs more frequency than LinkedIn), gradual scaling and the content pillar mix.

The recommended platforms are: %s
The content pillars are: %s

Return a JSON object with this exact structure:
{
  "months": [
    {
      "month": 1,
      "name": "%s",
      "focus": "Foundation & Brand Awareness",
      "total_posts": 15,
      "platforms": [{"platform": "Instagram", "post_count": 4, "content_types": "Posts & Reels", "reasoning": "why this number"}],
      "pillar_distribution": [{"pillar": "Educational", "percentage": 40}],
      "key_goals": ["..."]
    },
    {"month": 2, "name": "%s", "focus": "Growth & Community Building", "...": "..."},
    {"month": 3, "name": "%s", "focus": "Optimization & Conversion", "...": "..."}
  ],
  "strategy_summary": "Brief 2-3 sentence overview of the 90-day content strategy",
  "total_posts_90_days": 65,
  "recommended_tools": ["..."]
}

Guidelines:
- Month 1 should be manageable foundation building
- Month 2 should increase volume by 30-50%%
- Month 3 should be the peak but sustainable
- Include every recommended platform in each month`, platformList, pillarList, names[0], names[1], names[2])
}

func renderAnalysis(analysis *models.InterviewAnalysis) string {
	if analysis == nil || analysis.Error != "" {
		return ""
	}
	var sections []string
	if analysis.BusinessSummary != "" {
		sections = append(sections, "Business: "+analysis.BusinessSummary)
	}
	if analysis.UniqueValueProposition != "" {
		sections = append(sections, "Differentiator: "+analysis.UniqueValueProposition)
	}
	if len(analysis.BusinessGoals) > 0 {
		sections = append(sections, "Goals: "+strings.Join(analysis.BusinessGoals, "; "))
	}
	for _, audience := range analysis.TargetAudience {
		sections = append(sections, fmt.Sprintf("Audience %s: %s", audience.Persona, audience.Description))
	}
	if analysis.BrandPersonality.Voice != "" {
		sections = append(sections, "Voice: "+analysis.BrandPersonality.Voice)
	}
	for _, platform := range analysis.RecommendedPlatforms {
		sections = append(sections, fmt.Sprintf("Platform %s: %s", platform.Platform, platform.Reasoning))
	}
	if len(analysis.ContentPillars) > 0 {
		sections = append(sections, "Pillars: "+strings.Join(analysis.ContentPillars, ", "))
	}
	return strings.Join(sections, "\n")
}

// truncateRunes keeps at most limit characters of s without splitting a multi-byte rune.
func truncateRunes(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
