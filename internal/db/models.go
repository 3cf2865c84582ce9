package db

import (
	"errors"
	"fmt"
	"time"
)

// Evaluation statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Verdicts a judge may return.
const (
	VerdictPass         = "pass"
	VerdictFail         = "fail"
	VerdictInconclusive = "inconclusive"
)

// QuestionTypeSingleChoiceWithReasoning is the question type whose answers
// combine a choice with a free-text justification.
const QuestionTypeSingleChoiceWithReasoning = "single_choice_with_reasoning"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidEvaluation = errors.New("invalid evaluation")
)

// ValidVerdict reports whether v is one of the three verdicts.
func ValidVerdict(v string) bool {
	switch v {
	case VerdictPass, VerdictFail, VerdictInconclusive:
		return true
	}
	return false
}

type Question struct {
	ID           string `db:"id" json:"id"`
	QuestionType string `db:"question_type" json:"questionType"`
	QuestionText string `db:"question_text" json:"questionText"`
}

type Submission struct {
	ID             string    `db:"id" json:"id"`
	QueueID        string    `db:"queue_id" json:"queueId"`
	LabelingTaskID string    `db:"labeling_task_id" json:"labelingTaskId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	Answers        []Answer  `db:"-" json:"answers"`
}

// Answer is one submission's response to one question. Any of the three
// value fields may be absent.
type Answer struct {
	ID           int64     `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submissionId"`
	QuestionID   string    `db:"question_id" json:"questionId"`
	Choice       *string   `db:"choice" json:"choice"`
	Reasoning    *string   `db:"reasoning" json:"reasoning"`
	Text         *string   `db:"text" json:"text"`
	Question     *Question `db:"-" json:"question,omitempty"`
}

type Judge struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Prompt    string    `db:"prompt" json:"prompt"`
	Model     string    `db:"model" json:"model"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Assignment links a judge to a question template.
type Assignment struct {
	ID         int64     `db:"id" json:"id"`
	JudgeID    int64     `db:"judge_id" json:"judgeId"`
	QuestionID string    `db:"question_id" json:"questionId"`
	Judge      *Judge    `db:"-" json:"judge,omitempty"`
	Question   *Question `db:"-" json:"question,omitempty"`
}

type AssignmentPair struct {
	JudgeID    int64  `db:"judge_id" json:"judgeId"`
	QuestionID string `db:"question_id" json:"questionId"`
}

// Evaluation is the recorded outcome of one (answer, judge) attempt.
type Evaluation struct {
	ID           int64     `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"runId"`
	SubmissionID string    `db:"submission_id" json:"submissionId"`
	QuestionID   string    `db:"question_id" json:"questionId"`
	JudgeID      int64     `db:"judge_id" json:"judgeId"`
	Verdict      *string   `db:"verdict" json:"verdict"`
	Reasoning    *string   `db:"reasoning" json:"reasoning"`
	Status       string    `db:"status" json:"status"`
	Error        *string   `db:"error" json:"error"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`

	Judge      *Judge      `db:"-" json:"judge,omitempty"`
	Question   *Question   `db:"-" json:"question,omitempty"`
	Submission *Submission `db:"-" json:"submission,omitempty"`
}

// Validate enforces the only two shapes an evaluation row may take.
func (e *Evaluation) Validate() error {
	switch e.Status {
	case StatusCompleted:
		if e.Verdict == nil || !ValidVerdict(*e.Verdict) {
			return fmt.Errorf("%w: completed evaluation needs a valid verdict", ErrInvalidEvaluation)
		}
		if e.Error != nil {
			return fmt.Errorf("%w: completed evaluation cannot carry an error", ErrInvalidEvaluation)
		}
	case StatusFailed:
		if e.Verdict != nil || e.Reasoning != nil {
			return fmt.Errorf("%w: failed evaluation cannot carry a verdict or reasoning", ErrInvalidEvaluation)
		}
		if e.Error == nil {
			return fmt.Errorf("%w: failed evaluation needs an error", ErrInvalidEvaluation)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvaluation, e.Status)
	}
	return nil
}

// EvaluationBrief is the compact form returned with a run summary.
type EvaluationBrief struct {
	ID      int64   `db:"id" json:"id"`
	Verdict *string `db:"verdict" json:"verdict"`
	Status  string  `db:"status" json:"status"`
}

type EvaluationStats struct {
	Total        int64 `json:"total"`
	Passed       int64 `json:"passed"`
	Failed       int64 `json:"failed"`
	Inconclusive int64 `json:"inconclusive"`
	Errored      int64 `json:"errored"`
	PassRate     int   `json:"passRate"`
}
