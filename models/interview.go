package models

import (
	"time"

	"gorm.io/datatypes"
)

type InterviewStatus string

const (
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewFailed     InterviewStatus = "failed"
)

var interviewTransitions = map[InterviewStatus][]InterviewStatus{
	InterviewInProgress: {InterviewCompleted, InterviewFailed},
}

// CanTransitionTo reports whether the interview state machine allows s -> next.
func (s InterviewStatus) CanTransitionTo(next InterviewStatus) bool {
	for _, allowed := range interviewTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Interview is one brand discovery conversation with its transcript
type Interview struct {
	ID              string                                 `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string                                 `gorm:"type:uuid;not null;index" json:"user_id"`
	Status          InterviewStatus                        `gorm:"type:varchar(20);not null;default:'in_progress';check:status IN ('in_progress', 'completed', 'failed')" json:"status"`
	DurationSeconds int                                    `gorm:"not null;default:0" json:"duration_seconds"`
	Analysis        *datatypes.JSONType[InterviewAnalysis] `gorm:"type:jsonb" json:"analysis,omitempty"`
	CreatedAt       time.Time                              `json:"created_at"`
	UpdatedAt       time.Time                              `json:"updated_at"`
	CompletedAt     *time.Time                             `json:"completed_at,omitempty"`

	// Relationships
	Turns []TranscriptTurn `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"transcript,omitempty"`
}

// TransitionTo moves the interview to next, stamping CompletedAt on completion.
func (i *Interview) TransitionTo(next InterviewStatus, now time.Time) error {
	if !i.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "interview", From: string(i.Status), To: string(next)}
	}
	i.Status = next
	if next == InterviewCompleted {
		completedAt := now
		i.CompletedAt = &completedAt
	}
	return nil
}

// AcceptsTurns reports whether the transcript may still grow.
func (i *Interview) AcceptsTurns() bool {
	return i.Status == InterviewInProgress
}

type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerRespondent  Speaker = "respondent"
)

// TranscriptTurn stores one attributed utterance, ordered by TurnOrder
type TranscriptTurn struct {
	ID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	InterviewID string    `gorm:"type:uuid;not null;index:idx_turn_order,priority:1" json:"interview_id"`
	TurnOrder   int       `gorm:"not null;index:idx_turn_order,priority:2" json:"turn_order"`
	Speaker     Speaker   `gorm:"type:varchar(20);not null;check:speaker IN ('interviewer', 'respondent')" json:"speaker"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// InterviewAnalysis is the structured business summary extracted from a finished interview
type InterviewAnalysis struct {
	BusinessSummary        string              `json:"business_summary"`
	TargetAudience         []AudienceSketch    `json:"target_audience"`
	UniqueValueProposition string              `json:"unique_value_proposition"`
	BusinessGoals          []string            `json:"business_goals"`
	CurrentMarketing       CurrentMarketing    `json:"current_marketing"`
	BrandPersonality       BrandPersonality    `json:"brand_personality"`
	RecommendedPlatforms   []PlatformRationale `json:"recommended_platforms"`
	ContentPillars         []string            `json:"content_pillars"`
	Error                  string              `json:"error,omitempty"`
}

type AudienceSketch struct {
	Persona     string   `json:"persona"`
	Description string   `json:"description"`
	PainPoints  []string `json:"pain_points"`
}

type CurrentMarketing struct {
	ChannelsUsed    []string `json:"channels_used"`
	WhatsWorking    string   `json:"whats_working"`
	WhatsNotWorking string   `json:"whats_not_working"`
}

type BrandPersonality struct {
	Voice  string   `json:"voice"`
	Values []string `json:"values"`
	Tone   string   `json:"tone"`
}

type PlatformRationale struct {
	Platform  string `json:"platform"`
	Reasoning string `json:"reasoning"`
}
