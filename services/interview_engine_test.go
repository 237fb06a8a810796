package services

import (
	"context"
	"errors"
	"testing"

	"github.com/krshsl/brandcast/models"
	"github.com/krshsl/brandcast/repository"
	ws "github.com/krshsl/brandcast/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	text   string
	err    error
	calls  int
	hints  []string
	prompt string
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType, languageHint, contextPrompt string) (*Transcription, error) {
	s.calls++
	s.hints = append(s.hints, languageHint)
	s.prompt = contextPrompt
	if s.err != nil {
		return nil, s.err
	}
	return &Transcription{Text: s.text}, nil
}

type recordingPublisher struct {
	events []ws.Event
}

func (r *recordingPublisher) Publish(userID string, event ws.Event) {
	r.events = append(r.events, event)
}

const testOwnerID = "00000000-0000-0000-0000-000000000001"

func newTestEngine(transcriber Transcriber, model LanguageModel) (*InterviewEngine, *repository.MemoryRepository, *recordingPublisher) {
	repo := repository.NewMemoryRepository()
	events := &recordingPublisher{}
	engine := NewInterviewEngine(
		repo,
		NewQuestionSelector(nil),
		transcriber,
		NewInterviewAnalyzer(model),
		NewKeyedMutex(),
		events,
	)
	return engine, repo, events
}

func TestEngineOpeningQuestionNotDuplicated(t *testing.T) {
	engine, repo, _ := newTestEngine(&stubTranscriber{}, nil)
	ctx := context.Background()

	interview, first, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewInProgress, interview.Status)
	assert.Equal(t, OpeningQuestion, first.Question)
	assert.Equal(t, CategoryIntroduction, first.Category)
	assert.Equal(t, 1, first.QuestionNumber)
	assert.Equal(t, MaxQuestions, first.TotalQuestions)

	second, err := engine.NextQuestion(ctx, interview.ID, true)
	require.NoError(t, err)
	assert.Equal(t, OpeningQuestion, second.Question)
	assert.Equal(t, CategoryWaiting, second.Category)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	assert.Len(t, transcript, 1)
}

func TestEngineDynamicQuestionsChosenPerCall(t *testing.T) {
	generator := &stubQuestionGenerator{next: &NextQuestion{Question: "What got you into baking?", Category: CategoryFollowUp}}
	repo := repository.NewMemoryRepository()
	engine := NewInterviewEngine(repo, NewQuestionSelector(generator), &stubTranscriber{text: "I'm Dana."}, NewInterviewAnalyzer(nil), nil, nil)
	ctx := context.Background()

	interview, first, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, OpeningQuestion, first.Question)
	assert.Zero(t, generator.calls)

	_, err = engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "audio/webm")
	require.NoError(t, err)
	fixed, err := engine.NextQuestion(ctx, interview.ID, false)
	require.NoError(t, err)
	assert.Equal(t, interviewTopics[0].question, fixed.Question)
	assert.Zero(t, generator.calls)

	_, err = engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "audio/webm")
	require.NoError(t, err)
	dynamic, err := engine.NextQuestion(ctx, interview.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "What got you into baking?", dynamic.Question)
	assert.Equal(t, CategoryFollowUp, dynamic.Category)
	assert.Equal(t, 3, dynamic.QuestionNumber)
	require.Len(t, generator.requests, 1)
	assert.Contains(t, generator.requests[0].Covered, CategoryIntroduction)
}

func TestEngineIngestAppendsAnswer(t *testing.T) {
	transcriber := &stubTranscriber{text: "  I'm Dana and I run a bakery.  "}
	engine, repo, events := newTestEngine(transcriber, nil)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	result, err := engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "audio/webm")
	require.NoError(t, err)
	assert.True(t, result.Appended)
	assert.Equal(t, "I'm Dana and I run a bakery.", result.Text)
	assert.Equal(t, []string{"en"}, transcriber.hints)
	assert.Equal(t, transcriptionContextPrompt, transcriber.prompt)

	next, err := engine.NextQuestion(ctx, interview.ID, true)
	require.NoError(t, err)
	assert.Equal(t, interviewTopics[0].question, next.Question)
	assert.Equal(t, 2, next.QuestionNumber)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, models.SpeakerRespondent, transcript[1].Speaker)

	var types []string
	for _, e := range events.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{ws.EventQuestion, ws.EventTranscription, ws.EventQuestion}, types)
}

func TestEngineIngestFailureLeavesTranscript(t *testing.T) {
	transcriber := &stubTranscriber{err: errors.New("speech service unavailable")}
	engine, repo, _ := newTestEngine(transcriber, nil)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	_, err = engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "")
	assert.ErrorIs(t, err, ErrCollaborator)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	assert.Len(t, transcript, 1)
}

func TestEngineIngestEmptyTranscription(t *testing.T) {
	engine, repo, _ := newTestEngine(&stubTranscriber{text: "   "}, nil)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	result, err := engine.IngestAudioChunk(ctx, interview.ID, []byte("silence"), "audio/webm")
	require.NoError(t, err)
	assert.False(t, result.Appended)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, models.SpeakerInterviewer, transcript[0].Speaker)
}

func TestEngineIngestValidation(t *testing.T) {
	transcriber := &stubTranscriber{text: "hello"}
	engine, _, _ := newTestEngine(transcriber, nil)
	ctx := context.Background()

	_, err := engine.IngestAudioChunk(ctx, "missing", []byte("audio"), "")
	assert.ErrorIs(t, err, ErrNotFound)

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	_, err = engine.IngestAudioChunk(ctx, interview.ID, nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.AbandonInterview(ctx, interview.ID)
	require.NoError(t, err)

	_, err = engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Zero(t, transcriber.calls)
}

func TestEngineCompleteInterview(t *testing.T) {
	transcriber := &stubTranscriber{text: "We bake sourdough bread for neighborhood cafes and families every morning"}
	model := &scriptedModel{responses: []string{`{"business_summary": "A neighborhood bakery.", "content_pillars": ["Behind the scenes"]}`}}
	engine, _, events := newTestEngine(transcriber, model)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)
	_, err = engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "audio/webm")
	require.NoError(t, err)

	completed, err := engine.CompleteInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	transcript := models.Transcript(completed.Turns)
	require.Len(t, transcript, 2)
	assert.Equal(t, transcript.EstimateDurationSeconds(), completed.DurationSeconds)

	require.NotNil(t, completed.Analysis)
	assert.Equal(t, "A neighborhood bakery.", completed.Analysis.Data().BusinessSummary)
	assert.InDelta(t, 0.3, model.options[0].Temperature, 0.001)
	assert.Equal(t, ws.EventInterviewCompleted, events.events[len(events.events)-1].Type)

	_, err = engine.CompleteInterview(ctx, interview.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, model.prompts, 1, "analysis must not run for an already completed interview")

	_, err = engine.NextQuestion(ctx, interview.ID, true)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEngineCompleteWithUnusableAnalysis(t *testing.T) {
	model := &scriptedModel{responses: []string{"not json at all"}}
	engine, _, _ := newTestEngine(&stubTranscriber{}, model)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	completed, err := engine.CompleteInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, completed.Status)
	assert.Equal(t, models.Transcript(completed.Turns).EstimateDurationSeconds(), completed.DurationSeconds)
	assert.Equal(t, analysisFailedMessage, completed.Analysis.Data().Error)
}

func TestEngineAbandonAndDelete(t *testing.T) {
	engine, repo, _ := newTestEngine(&stubTranscriber{}, nil)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	abandoned, err := engine.AbandonInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewFailed, abandoned.Status)

	_, err = engine.AbandonInterview(ctx, interview.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, engine.DeleteInterview(ctx, interview.ID))
	stored, err := repo.GetInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.ErrorIs(t, engine.DeleteInterview(ctx, interview.ID), ErrNotFound)
}

func TestEngineCeilingStopsAppending(t *testing.T) {
	transcriber := &stubTranscriber{text: "an answer"}
	engine, repo, _ := newTestEngine(transcriber, nil)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	var last *QuestionResult
	for i := 0; i < MaxQuestions+2; i++ {
		last, err = engine.NextQuestion(ctx, interview.ID, true)
		require.NoError(t, err)
		if last.IsFinal {
			break
		}
		_, err = engine.IngestAudioChunk(ctx, interview.ID, []byte("audio"), "")
		require.NoError(t, err)
	}
	require.NotNil(t, last)
	assert.True(t, last.IsFinal)

	transcript, err := repo.GetTranscript(ctx, interview.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(transcript.Questions()), MaxQuestions+1)
}
