package models

import (
	"time"

	"gorm.io/datatypes"
)

type Persona struct {
	PersonaName      string   `json:"persona_name"`
	Demographics     string   `json:"demographics"`
	Psychographics   string   `json:"psychographics"`
	PainPoints       []string `json:"pain_points"`
	Goals            []string `json:"goals"`
	WhereTheyHangOut []string `json:"where_they_hang_out"`
}

type Channel struct {
	Platform         string   `json:"platform"`
	Priority         string   `json:"priority"`
	Reasoning        string   `json:"reasoning"`
	ContentTypes     []string `json:"content_types"`
	PostingFrequency string   `json:"posting_frequency"`
	BestTimes        []string `json:"best_times"`
}

// ContentPillar percentages are advisory and never required to sum to 100.
type ContentPillar struct {
	PillarName    string   `json:"pillar_name"`
	Description   string   `json:"description"`
	Percentage    float64  `json:"percentage"`
	ExampleTopics []string `json:"example_topics"`
}

type PostingSchedule struct {
	PostsPerWeek int                `json:"posts_per_week"`
	BestDays     []string           `json:"best_days"`
	BestTimes    []string           `json:"best_times"`
	ContentMix   map[string]float64 `json:"content_mix"`
}

type ToneAndVoice struct {
	BrandVoice     string   `json:"brand_voice"`
	ToneAttributes []string `json:"tone_attributes"`
	LanguageStyle  string   `json:"language_style"`
	Dos            []string `json:"dos"`
	Donts          []string `json:"donts"`
}

type HashtagGroup struct {
	Category string   `json:"category"`
	Hashtags []string `json:"hashtags"`
	Usage    string   `json:"usage"`
}

type ContentIdea struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Platform    string `json:"platform"`
	Description string `json:"description"`
	Pillar      string `json:"pillar"`
}

// ContentCalendar is the derived 90-day plan.
type ContentCalendar struct {
	Months           []CalendarMonth `json:"months"`
	StrategySummary  string          `json:"strategy_summary"`
	TotalPosts90Days int             `json:"total_posts_90_days"`
	RecommendedTools []string        `json:"recommended_tools"`
}

type CalendarMonth struct {
	Month              int              `json:"month"`
	Name               string           `json:"name"`
	Focus              string           `json:"focus"`
	TotalPosts         int              `json:"total_posts"`
	Platforms          []PlatformVolume `json:"platforms"`
	PillarDistribution []PillarShare    `json:"pillar_distribution"`
	KeyGoals           []string         `json:"key_goals"`
}

type PlatformVolume struct {
	Platform     string `json:"platform"`
	PostCount    int    `json:"post_count"`
	ContentTypes string `json:"content_types"`
	Reasoning    string `json:"reasoning"`
}

type PillarShare struct {
	Pillar     string  `json:"pillar"`
	Percentage float64 `json:"percentage"`
}

// StrategyContent is the structured output of strategy synthesis, independent of storage.
type StrategyContent struct {
	BrandSummary        string          `json:"brand_summary"`
	TargetAudience      []Persona       `json:"target_audience"`
	ValueProposition    string          `json:"value_proposition"`
	RecommendedChannels []Channel       `json:"recommended_channels"`
	ContentPillars      []ContentPillar `json:"content_pillars"`
	PostingSchedule     PostingSchedule `json:"posting_schedule"`
	ToneAndVoice        ToneAndVoice    `json:"tone_and_voice"`
	HashtagStrategy     []HashtagGroup  `json:"hashtag_strategy"`
	ContentIdeas        []ContentIdea   `json:"content_ideas"`
}

// Strategy is the persisted marketing strategy for exactly one interview
type Strategy struct {
	ID                  string                              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID              string                              `gorm:"type:uuid;not null;index" json:"user_id"`
	InterviewID         string                              `gorm:"type:uuid;not null;uniqueIndex" json:"interview_id"`
	BrandSummary        string                              `gorm:"type:text" json:"brand_summary"`
	TargetAudience      datatypes.JSONType[[]Persona]       `gorm:"type:jsonb" json:"target_audience"`
	ValueProposition    string                              `gorm:"type:text" json:"value_proposition"`
	RecommendedChannels datatypes.JSONType[[]Channel]       `gorm:"type:jsonb" json:"recommended_channels"`
	ContentPillars      datatypes.JSONType[[]ContentPillar] `gorm:"type:jsonb" json:"content_pillars"`
	PostingSchedule     datatypes.JSONType[PostingSchedule] `gorm:"type:jsonb" json:"posting_schedule"`
	ToneAndVoice        datatypes.JSONType[ToneAndVoice]    `gorm:"type:jsonb" json:"tone_and_voice"`
	HashtagStrategy     datatypes.JSONType[[]HashtagGroup]  `gorm:"type:jsonb" json:"hashtag_strategy"`
	ContentIdeas        datatypes.JSONType[[]ContentIdea]   `gorm:"type:jsonb" json:"content_ideas"`
	ContentCalendar     datatypes.JSONType[ContentCalendar] `gorm:"type:jsonb" json:"content_calendar"`
	CreatedAt           time.Time                           `json:"created_at"`
	UpdatedAt           time.Time                           `json:"updated_at"`

	// Relationships
	Posts []Post `gorm:"foreignKey:StrategyID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}

// NewStrategy builds a storable strategy from synthesized content.
func NewStrategy(userID, interviewID string, content StrategyContent, calendar ContentCalendar) *Strategy {
	s := &Strategy{
		UserID:      userID,
		InterviewID: interviewID,
	}
	s.ApplyContent(content)
	s.ContentCalendar = datatypes.NewJSONType(calendar)
	return s
}

// ApplyContent overwrites every structured section with content.
func (s *Strategy) ApplyContent(content StrategyContent) {
	s.BrandSummary = content.BrandSummary
	s.TargetAudience = datatypes.NewJSONType(content.TargetAudience)
	s.ValueProposition = content.ValueProposition
	s.RecommendedChannels = datatypes.NewJSONType(content.RecommendedChannels)
	s.ContentPillars = datatypes.NewJSONType(content.ContentPillars)
	s.PostingSchedule = datatypes.NewJSONType(content.PostingSchedule)
	s.ToneAndVoice = datatypes.NewJSONType(content.ToneAndVoice)
	s.HashtagStrategy = datatypes.NewJSONType(content.HashtagStrategy)
	s.ContentIdeas = datatypes.NewJSONType(content.ContentIdeas)
}

// Content returns the structured sections as plain values.
func (s *Strategy) Content() StrategyContent {
	return StrategyContent{
		BrandSummary:        s.BrandSummary,
		TargetAudience:      s.TargetAudience.Data(),
		ValueProposition:    s.ValueProposition,
		RecommendedChannels: s.RecommendedChannels.Data(),
		ContentPillars:      s.ContentPillars.Data(),
		PostingSchedule:     s.PostingSchedule.Data(),
		ToneAndVoice:        s.ToneAndVoice.Data(),
		HashtagStrategy:     s.HashtagStrategy.Data(),
		ContentIdeas:        s.ContentIdeas.Data(),
	}
}

// Calendar returns the derived content calendar.
func (s *Strategy) Calendar() ContentCalendar {
	return s.ContentCalendar.Data()
}
