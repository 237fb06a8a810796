package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/krshsl/brandcast/models"
)

const (
	maxAudioChunkBytes = 10 << 20
	defaultAudioMime   = "audio/webm"
)

type InterviewEndpoints struct {
	engine           *InterviewEngine
	speaker          *QuestionSpeaker
	timeouts         *InterviewTimeoutService
	dynamicQuestions bool
}

// NewInterviewEndpoints wires the interview routes. speaker and timeouts may be nil.
// dynamicQuestions is the default for the next-question use_ai parameter.
func NewInterviewEndpoints(engine *InterviewEngine, speaker *QuestionSpeaker, timeouts *InterviewTimeoutService, dynamicQuestions bool) *InterviewEndpoints {
	return &InterviewEndpoints{engine: engine, speaker: speaker, timeouts: timeouts, dynamicQuestions: dynamicQuestions}
}

type StartInterviewResponse struct {
	*models.Interview
	FirstQuestion    string `json:"first_question"`
	QuestionCategory string `json:"question_category"`
}

type GetInterviewsResponse struct {
	Interviews []models.Interview `json:"interviews"`
	Count      int                `json:"count"`
}

type NextQuestionResponse struct {
	*QuestionResult
	Audio       string `json:"audio,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", e.StartInterviewHandler)
		r.Get("/", e.ListInterviewsHandler)
		r.Get("/{id}", e.GetInterviewHandler)
		r.Delete("/{id}", e.DeleteInterviewHandler)
		r.Post("/{id}/audio-chunk", e.AudioChunkHandler)
		r.Get("/{id}/next-question", e.NextQuestionHandler)
		r.Post("/{id}/complete", e.CompleteInterviewHandler)
		r.Post("/{id}/abandon", e.AbandonInterviewHandler)
	})
}

// authorize loads the interview and hides it from anyone but its owner
func (e *InterviewEndpoints) authorize(ctx context.Context, id string) (*models.Interview, error) {
	interview, err := e.engine.GetInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owned("interview", id, interview.UserID, OwnerFromContext(ctx)); err != nil {
		return nil, err
	}
	return interview, nil
}

func (e *InterviewEndpoints) StartInterviewHandler(w http.ResponseWriter, r *http.Request) {
	interview, first, err := e.engine.StartInterview(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	e.timeouts.Touch(interview.ID)
	writeJSON(w, http.StatusCreated, StartInterviewResponse{
		Interview:        interview,
		FirstQuestion:    first.Question,
		QuestionCategory: first.Category,
	})
}

func (e *InterviewEndpoints) ListInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	interviews, err := e.engine.ListInterviews(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetInterviewsResponse{Interviews: interviews, Count: len(interviews)})
}

func (e *InterviewEndpoints) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	interview, err := e.authorize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

func (e *InterviewEndpoints) DeleteInterviewHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := e.engine.DeleteInterview(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	e.timeouts.Forget(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Interview deleted successfully"})
}

func (e *InterviewEndpoints) AudioChunkHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	audio, mimeType, err := readAudio(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := e.engine.IngestAudioChunk(r.Context(), id, audio, mimeType)
	if err != nil {
		writeError(w, err)
		return
	}
	e.timeouts.Touch(id)
	writeJSON(w, http.StatusOK, result)
}

// readAudio accepts a multipart "audio" field or a raw request body
func readAudio(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioChunkBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, "", fmt.Errorf("%w: missing audio field", ErrInvalidInput)
		}
		defer file.Close()

		audio, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("%w: failed to read audio", ErrInvalidInput)
		}
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = defaultAudioMime
		}
		return audio, mimeType, nil
	}

	audio, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to read audio", ErrInvalidInput)
	}
	mimeType := r.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = defaultAudioMime
	}
	return audio, mimeType, nil
}

func (e *InterviewEndpoints) NextQuestionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	dynamic := e.dynamicQuestions
	if raw := r.URL.Query().Get("use_ai"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: use_ai must be true or false", ErrInvalidInput))
			return
		}
		dynamic = parsed
	}

	question, err := e.engine.NextQuestion(r.Context(), id, dynamic)
	if err != nil {
		writeError(w, err)
		return
	}
	e.timeouts.Touch(id)

	response := NextQuestionResponse{QuestionResult: question}
	if r.URL.Query().Get("audio") == "true" && e.speaker != nil {
		audio, err := e.speaker.Speak(r.Context(), question.Question)
		if err != nil {
			// the question is still usable as text
			slog.Warn("Failed to synthesize question audio", "error", err, "interview_id", id)
		} else {
			response.Audio = base64.StdEncoding.EncodeToString(audio)
			response.AudioFormat = "mp3"
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (e *InterviewEndpoints) CompleteInterviewHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	interview, err := e.engine.CompleteInterview(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	e.timeouts.Forget(id)
	writeJSON(w, http.StatusOK, interview)
}

func (e *InterviewEndpoints) AbandonInterviewHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	interview, err := e.engine.AbandonInterview(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	e.timeouts.Forget(id)
	writeJSON(w, http.StatusOK, interview)
}
