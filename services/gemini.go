package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultModelName            = "gemini-2.5-flash"
	defaultCompletionTimeout    = 90 * time.Second
	defaultTranscriptionTimeout = 30 * time.Second
)

// GeminiService is the language model and speech-to-text collaborator backed by genai
type GeminiService struct {
	genaiClient          *genai.Client
	modelName            string
	completionTimeout    time.Duration
	transcriptionTimeout time.Duration
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, completionTimeout, transcriptionTimeout time.Duration) (*GeminiService, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = DefaultModelName
	}
	if completionTimeout <= 0 {
		completionTimeout = defaultCompletionTimeout
	}
	if transcriptionTimeout <= 0 {
		transcriptionTimeout = defaultTranscriptionTimeout
	}

	return &GeminiService{
		genaiClient:          genaiClient,
		modelName:            modelName,
		completionTimeout:    completionTimeout,
		transcriptionTimeout: transcriptionTimeout,
	}, nil
}

// Complete runs one structured-generation call and returns the raw model text
func (g *GeminiService) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	if g.genaiClient == nil {
		return "", fmt.Errorf("genai client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, g.completionTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	result, err := g.genaiClient.Models.GenerateContent(ctx, g.modelName, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	response := result.Text()
	slog.Info("Model completion finished", "model", g.modelName, "response_length", len(response), "elapsed", time.Since(start))
	return response, nil
}

// Transcribe sends inline audio together with a context prompt and returns the transcript
func (g *GeminiService) Transcribe(ctx context.Context, audio []byte, mimeType, languageHint, contextPrompt string) (*Transcription, error) {
	slog.Info("Transcribing audio with Gemini", "size", len(audio), "mime_type", mimeType)

	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, g.transcriptionTimeout)
	defer cancel()

	if mimeType == "" {
		mimeType = "audio/webm"
	}

	instruction := "Transcribe this audio to text. Provide only the transcript, no additional commentary."
	if languageHint != "" {
		instruction += fmt.Sprintf(" The speaker uses language code %q.", languageHint)
	}
	if contextPrompt != "" {
		instruction += " Context: " + contextPrompt
	}

	parts := []*genai.Part{
		genai.NewPartFromText(instruction),
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     audio,
			},
		},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(ctx, g.modelName, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate transcript: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	slog.Info("Audio transcribed successfully", "transcript_length", len(text))
	return &Transcription{Text: text}, nil
}
