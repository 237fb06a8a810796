package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioCacheOnlyKeepsFixedQuestions(t *testing.T) {
	cache := NewAudioCache(t.TempDir())
	ctx := context.Background()

	calls := 0
	generator := func() (io.ReadCloser, error) {
		calls++
		return io.NopCloser(strings.NewReader("mp3-bytes")), nil
	}

	for i := 0; i < 2; i++ {
		audio, err := cache.GetOrGenerate(ctx, OpeningQuestion, "voice", generator)
		require.NoError(t, err)
		assert.Equal(t, []byte("mp3-bytes"), audio)
	}
	assert.Equal(t, 1, calls)

	for i := 0; i < 2; i++ {
		_, err := cache.GetOrGenerate(ctx, "What inspired your latest menu?", "voice", generator)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)

	_, err := cache.GetOrGenerate(ctx, WrapUpQuestion, "voice", func() (io.ReadCloser, error) {
		return nil, errors.New("quota")
	})
	assert.Error(t, err)
}

func TestPickInterviewerVoice(t *testing.T) {
	assert.Equal(t, defaultVoiceID, PickInterviewerVoice("", "female"))
	assert.Equal(t, PickInterviewerVoice("Maya", "female"), PickInterviewerVoice("maya", "female"))
	assert.Contains(t, femaleVoices, PickInterviewerVoice("Maya", "female"))
	assert.Contains(t, maleVoices, PickInterviewerVoice("Sam", "male"))
}

func TestQuestionSpeaker(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	tts := NewElevenLabsService("xi-key", "voice-1")
	tts.baseURL = server.URL
	speaker := NewQuestionSpeaker(tts, NewAudioCache(t.TempDir()))

	for i := 0; i < 2; i++ {
		audio, err := speaker.Speak(context.Background(), OpeningQuestion)
		require.NoError(t, err)
		assert.Equal(t, []byte("audio"), audio)
	}
	assert.Equal(t, int32(1), requests.Load())

	var unconfigured *QuestionSpeaker
	_, err := unconfigured.Speak(context.Background(), OpeningQuestion)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
