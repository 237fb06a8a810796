package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterviewTransitions(t *testing.T) {
	now := time.Now()

	interview := &Interview{Status: InterviewInProgress}
	require.NoError(t, interview.TransitionTo(InterviewCompleted, now))
	require.NotNil(t, interview.CompletedAt)
	assert.False(t, interview.AcceptsTurns())

	err := interview.TransitionTo(InterviewInProgress, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	err = interview.TransitionTo(InterviewCompleted, now)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	abandoned := &Interview{Status: InterviewInProgress}
	require.NoError(t, abandoned.TransitionTo(InterviewFailed, now))
	assert.Nil(t, abandoned.CompletedAt)
}

func turn(speaker Speaker, order int, content string) TranscriptTurn {
	return TranscriptTurn{Speaker: speaker, TurnOrder: order, Content: content}
}

func TestTranscriptHelpers(t *testing.T) {
	transcript := Transcript{
		turn(SpeakerInterviewer, 0, "What's your name?"),
		turn(SpeakerRespondent, 1, "I'm Dana and I run a bakery"),
		turn(SpeakerInterviewer, 2, "What does your business do?"),
	}

	assert.Equal(t, []string{"What's your name?", "What does your business do?"}, transcript.Questions())
	assert.Equal(t, 1, transcript.AnswerCount())
	assert.Equal(t, 3, transcript.NextTurnOrder())
	assert.True(t, transcript.IsDuplicateQuestion("What does your business do?"))
	assert.False(t, transcript.IsDuplicateQuestion("What's your name?"))
	assert.Equal(t, "AI: What's your name?\n\nUser: I'm Dana and I run a bakery\n\nAI: What does your business do?", transcript.Render())
}

func TestEstimateDurationSeconds(t *testing.T) {
	words := make([]byte, 0, 1000)
	for i := 0; i < 300; i++ {
		words = append(words, "word "...)
	}
	transcript := Transcript{turn(SpeakerRespondent, 0, string(words))}
	assert.Equal(t, 120, transcript.EstimateDurationSeconds())

	short := Transcript{turn(SpeakerRespondent, 0, "one two three")}
	assert.Equal(t, 1, short.EstimateDurationSeconds())

	// 149 content words plus the "User:" label make a full minute
	labelled := Transcript{turn(SpeakerRespondent, 0, strings.TrimSpace(strings.Repeat("word ", 149)))}
	assert.Equal(t, 60, labelled.EstimateDurationSeconds())
	assert.Equal(t, 0, Transcript{}.EstimateDurationSeconds())
}
