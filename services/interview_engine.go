package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
	ws "github.com/krshsl/brandcast/websocket"
	"gorm.io/datatypes"
)

const transcriptionContextPrompt = "This is a business interview about marketing and branding."

// InterviewEngine drives an interview from first question to completion
type InterviewEngine struct {
	store       InterviewStore
	selector    *QuestionSelector
	transcriber Transcriber
	analyzer    *InterviewAnalyzer
	locker      Locker
	events      EventPublisher
	language    string
	now         func() time.Time
}

func NewInterviewEngine(
	store InterviewStore,
	selector *QuestionSelector,
	transcriber Transcriber,
	analyzer *InterviewAnalyzer,
	locker Locker,
	events EventPublisher,
) *InterviewEngine {
	if selector == nil {
		selector = NewQuestionSelector(nil)
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &InterviewEngine{
		store:       store,
		selector:    selector,
		transcriber: transcriber,
		analyzer:    analyzer,
		locker:      locker,
		events:      publisherOrNop(events),
		language:    "en",
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetLanguage overrides the transcription language hint
func (e *InterviewEngine) SetLanguage(language string) {
	if language != "" {
		e.language = language
	}
}

type IngestResult struct {
	Text     string                 `json:"text"`
	Appended bool                   `json:"appended"`
	Turn     *models.TranscriptTurn `json:"turn,omitempty"`
}

type QuestionResult struct {
	NextQuestion
	QuestionNumber int `json:"question_number"`
	TotalQuestions int `json:"total_questions"`
}

// StartInterview creates the interview and appends the fixed opening question.
func (e *InterviewEngine) StartInterview(ctx context.Context, userID string) (*models.Interview, *QuestionResult, error) {
	interview := &models.Interview{
		ID:     uuid.New().String(),
		UserID: userID,
		Status: models.InterviewInProgress,
	}
	if err := e.store.CreateInterview(ctx, interview); err != nil {
		return nil, nil, fmt.Errorf("failed to create interview: %w", err)
	}
	slog.Info("Interview started", "interview_id", interview.ID, "user_id", userID)

	first, err := e.NextQuestion(ctx, interview.ID, false)
	if err != nil {
		slog.Error("Failed to append opening question", "error", err, "interview_id", interview.ID)
		return nil, nil, err
	}
	return interview, first, nil
}

// GetInterview returns the interview with its transcript attached
func (e *InterviewEngine) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	interview, err := e.loadInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	transcript, err := e.store.GetTranscript(ctx, id)
	if err != nil {
		return nil, err
	}
	interview.Turns = transcript
	return interview, nil
}

func (e *InterviewEngine) ListInterviews(ctx context.Context, userID string) ([]models.Interview, error) {
	interviews, err := e.store.ListInterviews(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	return interviews, nil
}

// DeleteInterview removes the interview along with its strategy and posts
func (e *InterviewEngine) DeleteInterview(ctx context.Context, id string) error {
	unlock, err := e.locker.Lock(ctx, interviewLockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := e.loadInterview(ctx, id); err != nil {
		return err
	}
	return e.store.DeleteInterview(ctx, id)
}

// IngestAudioChunk transcribes one chunk of the respondent's answer and appends it.
// A failed transcription leaves the transcript untouched.
func (e *InterviewEngine) IngestAudioChunk(ctx context.Context, id string, audio []byte, mimeType string) (*IngestResult, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: audio chunk is empty", ErrInvalidInput)
	}

	unlock, err := e.locker.Lock(ctx, interviewLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	interview, err := e.loadInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !interview.AcceptsTurns() {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, interview.Status)
	}
	if e.transcriber == nil {
		return nil, collaboratorFailure("transcription", fmt.Errorf("speech-to-text is not configured"))
	}

	transcription, err := e.transcriber.Transcribe(ctx, audio, mimeType, e.language, transcriptionContextPrompt)
	if err != nil {
		slog.Error("Failed to transcribe audio chunk", "error", err, "interview_id", id, "size", len(audio))
		return nil, collaboratorFailure("transcription", err)
	}

	text := strings.TrimSpace(transcription.Text)
	if text == "" {
		slog.Info("Transcription was empty, nothing appended", "interview_id", id)
		return &IngestResult{}, nil
	}

	turn, err := e.store.AppendTurn(ctx, id, models.SpeakerRespondent, text)
	if err != nil {
		return nil, err
	}

	e.events.Publish(interview.UserID, ws.Event{
		Type:        ws.EventTranscription,
		InterviewID: id,
		Data:        map[string]string{"text": text},
	})
	return &IngestResult{Text: text, Appended: true, Turn: turn}, nil
}

// NextQuestion selects the next question and appends it unless it repeats the last one.
// dynamic lets the model propose the question when a generator is configured.
func (e *InterviewEngine) NextQuestion(ctx context.Context, id string, dynamic bool) (*QuestionResult, error) {
	unlock, err := e.locker.Lock(ctx, interviewLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	interview, err := e.loadInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !interview.AcceptsTurns() {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, interview.Status)
	}

	transcript, err := e.store.GetTranscript(ctx, id)
	if err != nil {
		return nil, err
	}

	next := e.selector.Select(ctx, transcript, dynamic)
	asked := len(transcript.Questions())

	if transcript.IsDuplicateQuestion(next.Question) {
		slog.Info("Question already pending, not appended", "interview_id", id, "category", next.Category)
	} else {
		if _, err := e.store.AppendTurn(ctx, id, models.SpeakerInterviewer, next.Question); err != nil {
			return nil, err
		}
		asked++
		e.events.Publish(interview.UserID, ws.Event{
			Type:        ws.EventQuestion,
			InterviewID: id,
			Data:        next,
		})
	}

	slog.Info("Next question selected", "interview_id", id, "category", next.Category, "question_number", asked, "is_final", next.IsFinal)
	return &QuestionResult{
		NextQuestion:   next,
		QuestionNumber: min(asked, MaxQuestions),
		TotalQuestions: MaxQuestions,
	}, nil
}

// CompleteInterview analyzes the transcript, estimates duration and marks the interview completed.
// Completing twice is rejected before any analysis runs.
func (e *InterviewEngine) CompleteInterview(ctx context.Context, id string) (*models.Interview, error) {
	unlock, err := e.locker.Lock(ctx, interviewLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	interview, err := e.loadInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !interview.Status.CanTransitionTo(models.InterviewCompleted) {
		return nil, fmt.Errorf("%w: interview is already %s", ErrInvalidState, interview.Status)
	}

	transcript, err := e.store.GetTranscript(ctx, id)
	if err != nil {
		return nil, err
	}

	analysis := e.analyzer.Analyze(ctx, transcript)
	analysisJSON := datatypes.NewJSONType(analysis)
	interview.Analysis = &analysisJSON
	interview.DurationSeconds = transcript.EstimateDurationSeconds()
	if err := interview.TransitionTo(models.InterviewCompleted, e.now()); err != nil {
		return nil, invalidState(err)
	}

	if err := e.store.UpdateInterview(ctx, interview); err != nil {
		return nil, fmt.Errorf("failed to complete interview: %w", err)
	}

	e.events.Publish(interview.UserID, ws.Event{Type: ws.EventInterviewCompleted, InterviewID: id})
	slog.Info("Interview completed", "interview_id", id, "duration_seconds", interview.DurationSeconds, "turns", len(transcript))

	interview.Turns = transcript
	return interview, nil
}

// AbandonInterview marks an in-progress interview failed
func (e *InterviewEngine) AbandonInterview(ctx context.Context, id string) (*models.Interview, error) {
	unlock, err := e.locker.Lock(ctx, interviewLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	interview, err := e.loadInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := interview.TransitionTo(models.InterviewFailed, e.now()); err != nil {
		return nil, invalidState(err)
	}
	if err := e.store.UpdateInterview(ctx, interview); err != nil {
		return nil, fmt.Errorf("failed to abandon interview: %w", err)
	}
	slog.Info("Interview abandoned", "interview_id", id)
	return interview, nil
}

func (e *InterviewEngine) loadInterview(ctx context.Context, id string) (*models.Interview, error) {
	interview, err := e.store.GetInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, notFound("interview", id)
	}
	return interview, nil
}
