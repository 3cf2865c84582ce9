package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"annotation-judge/internal/db"
	"annotation-judge/internal/schemas"
)

func ptr(s string) *string { return &s }

func TestEvaluations(t *testing.T) {
	out := Evaluations([]db.Evaluation{{
		ID: 1, SubmissionID: "s1", QuestionID: "q1", JudgeID: 7,
		Judge:   &db.Judge{Name: "math"},
		Status:  db.StatusCompleted,
		Verdict: ptr(db.VerdictPass), Reasoning: ptr("the sum\nis right"),
	}, {
		ID: 2, SubmissionID: "s1", QuestionID: "q2", JudgeID: 7,
		Status: db.StatusFailed,
		Error:  ptr(strings.Repeat("x", 100)),
	}})

	for _, want := range []string{"Submission", "math", "pass", "the sum is right", "failed", strings.Repeat("x", 57) + "..."} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, strings.Repeat("x", 58))
	assert.Contains(t, out, "| 7 ", "judge id used when the judge is not joined")
}

func TestSummaryAndStats(t *testing.T) {
	out := Summary(&schemas.RunSummary{RunID: "run-1", Planned: 4, Completed: 3, Failed: 1})
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "Completed")

	out = Stats(&db.EvaluationStats{Total: 3, Passed: 1, Failed: 1, Errored: 1, PassRate: 33})
	assert.Contains(t, out, "33%")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate(" a \n b ", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
