package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krshsl/brandcast/models"
)

// MaxQuestions caps interviewer turns, the opening name question included.
const MaxQuestions = 9

const (
	CategoryIntroduction       = "introduction"
	CategoryBusinessOverview   = "business_overview"
	CategoryTargetAudience     = "target_audience"
	CategoryUniqueValue        = "unique_value"
	CategoryGoals              = "goals"
	CategoryCurrentMarketing   = "current_marketing"
	CategoryBrandPersonality   = "brand_personality"
	CategoryContentPreferences = "content_preferences"
	CategoryFollowUp           = "follow_up"
	CategoryWrapUp             = "wrap_up"
	CategoryComplete           = "complete"
	CategoryWaiting            = "waiting_for_response"
)

const (
	OpeningQuestion  = "Hi! Welcome to your brand discovery interview. I'm excited to learn about you and your business. Before we dive in, what's your name?"
	WrapUpQuestion   = "We're almost done! Is there anything else you'd like to share about your business or marketing goals that we haven't covered yet?"
	CeilingMessage   = "Thank you so much for sharing! I now have everything I need to create your personalized marketing strategy. Click 'Complete Interview' to see your results."
	CompletedMessage = "Thank you for all that information! Click 'Complete Interview' to generate your marketing strategy."
)

type interviewTopic struct {
	category string
	question string
	keywords []string
}

// interviewTopics is the canonical fallback order.
var interviewTopics = []interviewTopic{
	{
		category: CategoryBusinessOverview,
		question: "Nice to meet you! Now let's talk about your business - can you tell me what your business does and what products or services you offer?",
		keywords: []string{"business does", "products", "services", "what you offer", "tell me about your business", "what does your"},
	},
	{
		category: CategoryTargetAudience,
		question: "That's great! Now, who are your ideal customers? Can you describe the people or businesses you serve best?",
		keywords: []string{"customer", "audience", "serve", "who are", "ideal client", "target", "demographic"},
	},
	{
		category: CategoryUniqueValue,
		question: "What makes your business unique? What do you do differently from your competitors?",
		keywords: []string{"unique", "different", "competitor", "apart", "stand out", "differentiates", "sets you apart"},
	},
	{
		category: CategoryGoals,
		question: "What are your main business goals right now? What would success look like for you in the next year?",
		keywords: []string{"goal", "success", "objective", "achieve", "year", "aspiration", "vision"},
	},
	{
		category: CategoryCurrentMarketing,
		question: "Tell me about your current marketing efforts. What are you doing now, and what's working or not working?",
		keywords: []string{"marketing", "channel", "advertis", "promot", "current efforts", "campaigns", "outreach"},
	},
	{
		category: CategoryBrandPersonality,
		question: "How would you describe your brand's personality? If your brand was a person, what would they be like?",
		keywords: []string{"personality", "brand voice", "person", "describe your brand", "tone", "values"},
	},
	{
		category: CategoryContentPreferences,
		question: "What type of content do you enjoy creating or consuming? Are there any brands whose content you admire?",
		keywords: []string{"content", "creating", "consuming", "admire", "type of", "posts", "videos"},
	},
}

// FixedQuestions lists every question text the selector can emit without a model.
func FixedQuestions() []string {
	questions := []string{OpeningQuestion, WrapUpQuestion, CeilingMessage, CompletedMessage}
	for _, topic := range interviewTopics {
		questions = append(questions, topic.question)
	}
	return questions
}

// NextQuestion is the selector's decision for the next interviewer turn.
type NextQuestion struct {
	Question string `json:"question"`
	Category string `json:"category"`
	IsFinal  bool   `json:"is_final"`
}

// CoveredCategories classifies asked questions by keyword. A question may cover several
// categories, and introduction counts as covered once anything has been asked.
func CoveredCategories(questions []string) map[string]bool {
	covered := make(map[string]bool)
	if len(questions) > 0 {
		covered[CategoryIntroduction] = true
	}
	for _, question := range questions {
		lowered := strings.ToLower(question)
		for _, topic := range interviewTopics {
			for _, keyword := range topic.keywords {
				if strings.Contains(lowered, keyword) {
					covered[topic.category] = true
					break
				}
			}
		}
	}
	return covered
}

// QuestionRequest is what a dynamic question generator sees.
type QuestionRequest struct {
	Transcript string
	Asked      []string
	Covered    []string
	Remaining  []string
}

// QuestionGenerator proposes a contextual next question.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*NextQuestion, error)
}

// QuestionSelector decides the next interview question from transcript state.
// A nil generator disables dynamic questions regardless of what callers ask for.
type QuestionSelector struct {
	generator QuestionGenerator
}

func NewQuestionSelector(generator QuestionGenerator) *QuestionSelector {
	return &QuestionSelector{generator: generator}
}

// Select never mutates the transcript; the caller appends the returned question.
// dynamic asks the generator first, falling back to the fixed order when it fails.
func (s *QuestionSelector) Select(ctx context.Context, transcript models.Transcript, dynamic bool) NextQuestion {
	asked := transcript.Questions()

	if len(asked) >= MaxQuestions {
		return NextQuestion{Question: CeilingMessage, Category: CategoryComplete, IsFinal: true}
	}

	if len(asked) > 0 && transcript.AnswerCount() < len(asked) {
		return NextQuestion{Question: asked[len(asked)-1], Category: CategoryWaiting}
	}

	if len(asked) == 0 {
		return NextQuestion{Question: OpeningQuestion, Category: CategoryIntroduction}
	}

	if len(asked) == MaxQuestions-1 {
		return NextQuestion{Question: WrapUpQuestion, Category: CategoryWrapUp}
	}

	covered := CoveredCategories(asked)

	if dynamic && s.generator != nil {
		if next, ok := s.dynamicQuestion(ctx, transcript, asked, covered); ok {
			return next
		}
	}

	for _, topic := range interviewTopics {
		if !covered[topic.category] {
			return NextQuestion{Question: topic.question, Category: topic.category}
		}
	}

	return NextQuestion{Question: CompletedMessage, Category: CategoryComplete, IsFinal: true}
}

func (s *QuestionSelector) dynamicQuestion(ctx context.Context, transcript models.Transcript, asked []string, covered map[string]bool) (NextQuestion, bool) {
	req := QuestionRequest{
		Transcript: transcript.Render(),
		Asked:      asked,
	}
	if covered[CategoryIntroduction] {
		req.Covered = append(req.Covered, CategoryIntroduction)
	}
	for _, topic := range interviewTopics {
		if covered[topic.category] {
			req.Covered = append(req.Covered, topic.category)
		} else {
			req.Remaining = append(req.Remaining, topic.category)
		}
	}

	proposal, err := s.generator.GenerateQuestion(ctx, req)
	if err != nil {
		slog.Warn("Dynamic question generation failed, using fixed questions", "error", err)
		return NextQuestion{}, false
	}
	if proposal == nil || strings.TrimSpace(proposal.Question) == "" {
		return NextQuestion{}, false
	}
	for _, previous := range asked {
		if previous == proposal.Question {
			slog.Info("Dynamic question repeats an earlier question, discarding")
			return NextQuestion{}, false
		}
	}
	if proposal.Category != CategoryFollowUp && covered[proposal.Category] {
		slog.Info("Dynamic question targets a covered category, discarding", "category", proposal.Category)
		return NextQuestion{}, false
	}

	return NextQuestion{Question: proposal.Question, Category: proposal.Category}, true
}

// LLMQuestionGenerator asks the language model for a contextual question.
type LLMQuestionGenerator struct {
	model LanguageModel
}

func NewLLMQuestionGenerator(model LanguageModel) *LLMQuestionGenerator {
	return &LLMQuestionGenerator{model: model}
}

const questionSystemPrompt = `You are a friendly, professional brand strategist interviewing a small business owner.
You ask one question at a time, short enough to be read aloud, and you build on what the owner already said.

Interview categories:
- business_overview: what the business does, its products and services
- target_audience: ideal customers, who they serve best
- unique_value: what sets the business apart from competitors
- goals: business goals and what success looks like
- current_marketing: current marketing efforts, what works and what does not
- brand_personality: brand voice, values, personality
- content_preferences: content they like to create or consume, brands they admire
- follow_up: dig deeper into something interesting the owner just said
- wrap_up: invite any final thoughts

Respond with JSON only: {"question": "...", "category": "..."}`

var validQuestionCategories = map[string]bool{
	CategoryBusinessOverview:   true,
	CategoryTargetAudience:     true,
	CategoryUniqueValue:        true,
	CategoryGoals:              true,
	CategoryCurrentMarketing:   true,
	CategoryBrandPersonality:   true,
	CategoryContentPreferences: true,
	CategoryFollowUp:           true,
	CategoryWrapUp:             true,
}

func (g *LLMQuestionGenerator) GenerateQuestion(ctx context.Context, req QuestionRequest) (*NextQuestion, error) {
	var prompt strings.Builder
	prompt.WriteString("INTERVIEW SO FAR:\n")
	prompt.WriteString(req.Transcript)
	prompt.WriteString("\n\nQUESTIONS ALREADY ASKED:\n")
	for i, q := range req.Asked {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, q)
	}
	fmt.Fprintf(&prompt, "\nCATEGORIES COVERED: %s\n", joinOrNone(req.Covered))
	fmt.Fprintf(&prompt, "CATEGORIES REMAINING: %s\n\n", joinOrNone(req.Remaining))
	prompt.WriteString("Ask the single most useful next question. Prefer a remaining category; use follow_up only when the last answer deserves more depth. Never repeat a question already asked.")

	raw, err := g.model.Complete(ctx, questionSystemPrompt, prompt.String(), CompletionOptions{
		Temperature:     0.7,
		MaxOutputTokens: 300,
		JSON:            true,
	})
	if err != nil {
		return nil, collaboratorFailure("question generation", err)
	}

	var proposal NextQuestion
	if err := decodeModelJSON(raw, questionSchema, &proposal); err != nil {
		return nil, err
	}

	proposal.Question = strings.TrimSpace(proposal.Question)
	if !validQuestionCategories[proposal.Category] {
		invalid := proposal.Category
		proposal.Category = CategoryFollowUp
		if len(req.Remaining) > 0 {
			proposal.Category = req.Remaining[0]
		}
		slog.Info("Model returned unknown question category", "category", invalid, "replacement", proposal.Category)
	}
	return &proposal, nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
