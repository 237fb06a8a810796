package models

import "strings"

// Transcript is an interview's turns in append order.
type Transcript []TranscriptTurn

// Questions returns the interviewer turns in order.
func (t Transcript) Questions() []string {
	var questions []string
	for _, turn := range t {
		if turn.Speaker == SpeakerInterviewer {
			questions = append(questions, turn.Content)
		}
	}
	return questions
}

// AnswerCount counts respondent turns.
func (t Transcript) AnswerCount() int {
	count := 0
	for _, turn := range t {
		if turn.Speaker == SpeakerRespondent {
			count++
		}
	}
	return count
}

// LastQuestion returns the most recently appended interviewer turn.
func (t Transcript) LastQuestion() (string, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Speaker == SpeakerInterviewer {
			return t[i].Content, true
		}
	}
	return "", false
}

// IsDuplicateQuestion reports whether appending question would repeat the last interviewer turn verbatim.
func (t Transcript) IsDuplicateQuestion(question string) bool {
	last, ok := t.LastQuestion()
	return ok && last == question
}

// NextTurnOrder is the order value the next appended turn receives.
func (t Transcript) NextTurnOrder() int {
	next := 0
	for _, turn := range t {
		if turn.TurnOrder >= next {
			next = turn.TurnOrder + 1
		}
	}
	return next
}

// Render formats the transcript the way prompts expect it:
// "AI: ..." and "User: ..." paragraphs separated by blank lines.
func (t Transcript) Render() string {
	parts := make([]string, 0, len(t))
	for _, turn := range t {
		prefix := "User"
		if turn.Speaker == SpeakerInterviewer {
			prefix = "AI"
		}
		parts = append(parts, prefix+": "+turn.Content)
	}
	return strings.Join(parts, "\n\n")
}

// EstimateDurationSeconds assumes 150 spoken words per minute, truncated to whole seconds.
// Words are counted over the rendered transcript, so each turn's speaker label counts as one.
func (t Transcript) EstimateDurationSeconds() int {
	return len(strings.Fields(t.Render())) * 60 / 150
}
