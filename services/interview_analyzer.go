package services

import (
	"context"
	"log/slog"

	"github.com/krshsl/brandcast/models"
)

const analysisFailedMessage = "Failed to parse interview analysis"

const analysisSystemPrompt = `You are an expert marketing strategist. You read brand discovery interviews with small business owners and extract the facts a marketing strategy needs. Only use what the owner actually said. Respond with JSON only.`

const analysisSchemaHint = `{
  "business_summary": "2-3 sentence summary of the business",
  "target_audience": [{"persona": "name", "description": "who they are", "pain_points": ["..."]}],
  "unique_value_proposition": "what sets the business apart",
  "business_goals": ["..."],
  "current_marketing": {"channels_used": ["..."], "whats_working": "...", "whats_not_working": "..."},
  "brand_personality": {"voice": "...", "values": ["..."], "tone": "..."},
  "recommended_platforms": [{"platform": "...", "reasoning": "..."}],
  "content_pillars": ["..."]
}`

// InterviewAnalyzer turns a finished transcript into structured business facts.
type InterviewAnalyzer struct {
	model LanguageModel
}

func NewInterviewAnalyzer(model LanguageModel) *InterviewAnalyzer {
	return &InterviewAnalyzer{model: model}
}

// Analyze never fails; an unusable model response yields an analysis carrying only Error.
func (a *InterviewAnalyzer) Analyze(ctx context.Context, transcript models.Transcript) models.InterviewAnalysis {
	if a == nil || a.model == nil {
		return models.InterviewAnalysis{Error: analysisFailedMessage}
	}

	prompt := "Analyze this brand discovery interview.\n\nTRANSCRIPT:\n" + transcript.Render() +
		"\n\nReturn a JSON object with exactly this structure:\n" + analysisSchemaHint

	raw, err := a.model.Complete(ctx, analysisSystemPrompt, prompt, CompletionOptions{
		Temperature:     0.3,
		MaxOutputTokens: 2000,
		JSON:            true,
	})
	if err != nil {
		slog.Warn("Interview analysis call failed", "error", err)
		return models.InterviewAnalysis{Error: analysisFailedMessage}
	}

	var analysis models.InterviewAnalysis
	if err := decodeModelJSON(raw, nil, &analysis); err != nil {
		slog.Warn("Interview analysis was not valid JSON", "error", err, "response_length", len(raw))
		return models.InterviewAnalysis{Error: analysisFailedMessage}
	}
	return analysis
}
