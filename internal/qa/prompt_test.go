package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"annotation-judge/internal/db"
)

func str(s string) *string { return &s }

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		name         string
		questionType string
		answer       db.Answer
		want         string
	}{{
		name:         "choice and reasoning",
		questionType: db.QuestionTypeSingleChoiceWithReasoning,
		answer:       db.Answer{Choice: str("yes"), Reasoning: str("it rained")},
		want:         "yes - it rained",
	}, {
		name:         "choice only",
		questionType: db.QuestionTypeSingleChoiceWithReasoning,
		answer:       db.Answer{Choice: str("no")},
		want:         "no",
	}, {
		name:         "reasoning only",
		questionType: db.QuestionTypeSingleChoiceWithReasoning,
		answer:       db.Answer{Reasoning: str("unsure")},
		want:         "unsure",
	}, {
		name:         "empty choice counts as absent",
		questionType: db.QuestionTypeSingleChoiceWithReasoning,
		answer:       db.Answer{Choice: str(""), Reasoning: str("because")},
		want:         "because",
	}, {
		name:         "single choice with nothing",
		questionType: db.QuestionTypeSingleChoiceWithReasoning,
		answer:       db.Answer{Text: str("ignored")},
		want:         NoAnswer,
	}, {
		name:         "text wins for other types",
		questionType: "free_form",
		answer:       db.Answer{Choice: str("a"), Reasoning: str("b"), Text: str("c")},
		want:         "c",
	}, {
		name:         "reasoning before choice",
		questionType: "free_form",
		answer:       db.Answer{Choice: str("a"), Reasoning: str("b")},
		want:         "b",
	}, {
		name:         "choice last",
		questionType: "multiple_choice",
		answer:       db.Answer{Choice: str("a")},
		want:         "a",
	}, {
		name:         "present but empty text is used",
		questionType: "free_form",
		answer:       db.Answer{Text: str(""), Choice: str("a")},
		want:         "",
	}, {
		name:         "no fields",
		questionType: "free_form",
		want:         NoAnswer,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAnswer(tt.questionType, tt.answer))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Is water wet?", "yes - obviously", "Check the reasoning.")
	want := "Question: Is water wet?\nAnswer: yes - obviously\nRubric: Check the reasoning.\n\nRespond with a JSON object matching the schema."
	assert.Equal(t, want, got)
}
