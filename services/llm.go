package services

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// CompletionOptions tunes a single language model call.
type CompletionOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	JSON            bool
}

// LanguageModel returns raw model text, expected to contain a JSON object.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}

type Transcription struct {
	Text            string   `json:"text"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, languageHint, contextPrompt string) (*Transcription, error)
}

// cleanJSON strips markdown code fences and any prose around the outermost JSON object.
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "{") {
		return input
	}
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start >= 0 && end > start {
		return input[start : end+1]
	}
	return input
}

// decodeModelJSON parses model output into v, validating it first when schema is non-nil.
func decodeModelJSON(raw string, schema *jsonschema.Schema, v any) error {
	cleaned := cleanJSON(raw)
	if schema != nil {
		var instance map[string]interface{}
		if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
			return fmt.Errorf("failed to parse model output: %w", err)
		}
		if err := validateInstance(schema, instance); err != nil {
			return err
		}
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	questionSchema        = mustCompileSchema("question.json")
	contentBatchSchema    = mustCompileSchema("content_batch.json")
	regeneratedPostSchema = mustCompileSchema("regenerated_post.json")
	calendarSchema        = mustCompileSchema("calendar.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	schemaData, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("failed to read schema %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaData)
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema %s: %v", name, err))
	}
	return schema
}

func validateInstance(schema *jsonschema.Schema, instance map[string]interface{}) error {
	result := schema.Validate(instance)
	if result.IsValid() {
		return nil
	}

	var errorMessages []string
	for field, evalErr := range result.Errors {
		errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(errorMessages)
	return fmt.Errorf("model output failed validation: %s", strings.Join(errorMessages, "; "))
}
