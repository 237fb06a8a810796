package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
	ws "github.com/krshsl/brandcast/websocket"
)

// StrategyService owns strategy generation and the strategy records it produces.
type StrategyService struct {
	interviews  InterviewStore
	strategies  StrategyStore
	synthesizer *StrategySynthesizer
	locker      Locker
	events      EventPublisher
}

func NewStrategyService(interviews InterviewStore, strategies StrategyStore, synthesizer *StrategySynthesizer, locker Locker, events EventPublisher) *StrategyService {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &StrategyService{
		interviews:  interviews,
		strategies:  strategies,
		synthesizer: synthesizer,
		locker:      locker,
		events:      publisherOrNop(events),
	}
}

// StrategyPatch carries the sections a caller wants to overwrite; nil fields are left alone.
type StrategyPatch struct {
	BrandSummary        *string                 `json:"brand_summary,omitempty"`
	TargetAudience      *[]models.Persona       `json:"target_audience,omitempty"`
	ValueProposition    *string                 `json:"value_proposition,omitempty"`
	RecommendedChannels *[]models.Channel       `json:"recommended_channels,omitempty"`
	ContentPillars      *[]models.ContentPillar `json:"content_pillars,omitempty"`
	PostingSchedule     *models.PostingSchedule `json:"posting_schedule,omitempty"`
	ToneAndVoice        *models.ToneAndVoice    `json:"tone_and_voice,omitempty"`
	HashtagStrategy     *[]models.HashtagGroup  `json:"hashtag_strategy,omitempty"`
	ContentIdeas        *[]models.ContentIdea   `json:"content_ideas,omitempty"`
}

// Generate synthesizes a strategy for a completed interview, replacing any earlier one
// together with its posts. Runs under the interview lock so concurrent calls cannot both insert.
func (s *StrategyService) Generate(ctx context.Context, interviewID string) (*models.Strategy, error) {
	unlock, err := s.locker.Lock(ctx, interviewLockKey(interviewID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	interview, err := s.interviews.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, notFound("interview", interviewID)
	}
	if interview.Status != models.InterviewCompleted {
		return nil, fmt.Errorf("%w: interview must be completed before generating a strategy (status %s)", ErrInvalidState, interview.Status)
	}

	transcript, err := s.interviews.GetTranscript(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	var analysis *models.InterviewAnalysis
	if interview.Analysis != nil {
		data := interview.Analysis.Data()
		analysis = &data
	}

	content := s.synthesizer.Synthesize(ctx, transcript, analysis)
	calendar := s.synthesizer.DeriveCalendar(ctx, transcript, content.RecommendedChannels, content.ContentPillars)

	strategy := models.NewStrategy(interview.UserID, interview.ID, content, calendar)
	strategy.ID = uuid.New().String()
	if err := s.strategies.ReplaceStrategy(ctx, strategy); err != nil {
		return nil, fmt.Errorf("failed to store strategy: %w", err)
	}

	s.events.Publish(interview.UserID, ws.Event{
		Type:        ws.EventStrategyGenerated,
		InterviewID: interview.ID,
		StrategyID:  strategy.ID,
	})
	slog.Info("Strategy generated", "strategy_id", strategy.ID, "interview_id", interview.ID, "channels", len(content.RecommendedChannels), "posts_90_days", calendar.TotalPosts90Days)
	return strategy, nil
}

func (s *StrategyService) Get(ctx context.Context, id string) (*models.Strategy, error) {
	strategy, err := s.strategies.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, notFound("strategy", id)
	}
	return strategy, nil
}

func (s *StrategyService) GetByInterview(ctx context.Context, interviewID string) (*models.Strategy, error) {
	strategy, err := s.strategies.GetStrategyByInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, notFound("strategy for interview", interviewID)
	}
	return strategy, nil
}

func (s *StrategyService) Latest(ctx context.Context, userID string) (*models.Strategy, error) {
	strategy, err := s.strategies.GetLatestStrategy(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, notFound("strategy for user", userID)
	}
	return strategy, nil
}

func (s *StrategyService) List(ctx context.Context, userID string) ([]models.Strategy, error) {
	return s.strategies.ListStrategies(ctx, userID)
}

// Update applies a field-level patch. The calendar is derived data and cannot be patched.
// It holds the interview lock so a concurrent Generate cannot replace the strategy mid-edit.
func (s *StrategyService) Update(ctx context.Context, id string, patch StrategyPatch) (*models.Strategy, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, interviewLockKey(current.InterviewID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	strategy, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content := strategy.Content()
	if patch.BrandSummary != nil {
		content.BrandSummary = *patch.BrandSummary
	}
	if patch.TargetAudience != nil {
		content.TargetAudience = *patch.TargetAudience
	}
	if patch.ValueProposition != nil {
		content.ValueProposition = *patch.ValueProposition
	}
	if patch.RecommendedChannels != nil {
		content.RecommendedChannels = *patch.RecommendedChannels
	}
	if patch.ContentPillars != nil {
		content.ContentPillars = *patch.ContentPillars
	}
	if patch.PostingSchedule != nil {
		content.PostingSchedule = *patch.PostingSchedule
	}
	if patch.ToneAndVoice != nil {
		content.ToneAndVoice = *patch.ToneAndVoice
	}
	if patch.HashtagStrategy != nil {
		content.HashtagStrategy = *patch.HashtagStrategy
	}
	if patch.ContentIdeas != nil {
		content.ContentIdeas = *patch.ContentIdeas
	}
	strategy.ApplyContent(content)

	if err := s.strategies.UpdateStrategy(ctx, strategy); err != nil {
		return nil, fmt.Errorf("failed to update strategy: %w", err)
	}
	return strategy, nil
}
