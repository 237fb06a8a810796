package services

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultElevenLabsURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID       = "pNInz6obpgDQGcFmaJgB" // Adam
	elevenLabsModel      = "eleven_turbo_v2"
)

// stock ElevenLabs voices by gender
var femaleVoices = []string{
	"EXAVITQu4vr4xnSDxMaL", // Rachel
	"21m00Tcm4TlvDq8ikWAM", // Domi
	"AZnzlk1XvdvUeBnXmlld", // Bella
	"ErXwobaYiN019PkySvjV", // Elli
	"MF3mGyEYCl7XYWbV9V6O", // Dorothy
}

var maleVoices = []string{
	"pNInz6obpgDQGcFmaJgB", // Adam
	"TxGEqnHWrfWFTfGW9XjX", // Antoni
	"VR6AewLTigWG4xSOukaG", // Josh
	"yoZ06aMxZJJ28mfd3POQ", // Arnold
	"bVMeCyTHy58xNoL34h3p", // Clyde
}

// PickInterviewerVoice maps a configured interviewer persona name onto a stock voice, stably.
func PickInterviewerVoice(name, gender string) string {
	if strings.TrimSpace(name) == "" {
		return defaultVoiceID
	}
	var pool []string
	switch strings.ToLower(gender) {
	case "female":
		pool = femaleVoices
	case "male":
		pool = maleVoices
	default:
		pool = append(append([]string{}, femaleVoices...), maleVoices...)
	}
	sum := sha1.Sum([]byte(strings.ToLower(name)))
	return pool[binary.BigEndian.Uint16(sum[:2])%uint16(len(pool))]
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabsService renders interviewer questions as speech.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
}

func NewElevenLabsService(apiKey, voiceID string) *ElevenLabsService {
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: defaultElevenLabsURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (e *ElevenLabsService) VoiceID() string {
	return e.voiceID
}

func (e *ElevenLabsService) TextToSpeech(ctx context.Context, text string) (io.ReadCloser, error) {
	request := elevenLabsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/text-to-speech/"+e.voiceID, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs API error: %d - %s", resp.StatusCode, string(body))
	}

	slog.Debug("Generated question audio", "text_length", len(text), "voice_id", e.voiceID)
	return resp.Body, nil
}

// QuestionSpeaker produces MP3 audio for interviewer questions, caching the fixed ones.
type QuestionSpeaker struct {
	tts   *ElevenLabsService
	cache *AudioCache
}

func NewQuestionSpeaker(tts *ElevenLabsService, cache *AudioCache) *QuestionSpeaker {
	return &QuestionSpeaker{tts: tts, cache: cache}
}

func (s *QuestionSpeaker) Speak(ctx context.Context, text string) ([]byte, error) {
	if s == nil || s.tts == nil {
		return nil, fmt.Errorf("%w: text-to-speech is not configured", ErrInvalidInput)
	}
	generate := func() (io.ReadCloser, error) {
		return s.tts.TextToSpeech(ctx, text)
	}
	if s.cache == nil {
		reader, err := generate()
		if err != nil {
			return nil, collaboratorFailure("text-to-speech", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)
	}
	audio, err := s.cache.GetOrGenerate(ctx, text, s.tts.VoiceID(), generate)
	if err != nil {
		return nil, collaboratorFailure("text-to-speech", err)
	}
	return audio, nil
}
