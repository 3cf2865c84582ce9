package qa

import (
	"fmt"

	"annotation-judge/internal/db"
)

// NoAnswer stands in for an answer with no usable field.
const NoAnswer = "(no answer provided)"

// SystemPrompt is sent as the system message of every judge call.
const SystemPrompt = `You are an AI judge helping evaluate human annotations.
Return a strict JSON object with the fields "verdict" and "reasoning".
verdict must be one of "pass", "fail", or "inconclusive".`

// BuildPrompt renders the user message for one judge call.
func BuildPrompt(questionText, answer, judgePrompt string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s\nRubric: %s\n\nRespond with a JSON object matching the schema.",
		questionText, answer, judgePrompt)
}

// FormatAnswer reduces an answer to the single string shown to the judge.
//
// Single-choice-with-reasoning answers read "<choice> - <reasoning>" when
// both are set, else whichever is set. Every other type takes the first
// present field of text, reasoning, choice.
func FormatAnswer(questionType string, a db.Answer) string {
	if questionType == db.QuestionTypeSingleChoiceWithReasoning {
		choice, reasoning := deref(a.Choice), deref(a.Reasoning)
		switch {
		case choice != "" && reasoning != "":
			return choice + " - " + reasoning
		case choice != "":
			return choice
		case reasoning != "":
			return reasoning
		}
		return NoAnswer
	}
	for _, v := range []*string{a.Text, a.Reasoning, a.Choice} {
		if v != nil {
			return *v
		}
	}
	return NoAnswer
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
