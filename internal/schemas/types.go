package schemas

import (
	"time"

	"annotation-judge/internal/db"
)

type QuestionData struct {
	ID           string `json:"id" validate:"required"`
	QuestionType string `json:"questionType" validate:"required"`
	QuestionText string `json:"questionText" validate:"required"`
}

type SubmissionQuestion struct {
	Rev  int          `json:"rev"`
	Data QuestionData `json:"data"`
}

// SubmissionAnswer is an answer as exported by the annotation tool. Older
// exports put free text under "freeform".
type SubmissionAnswer struct {
	Choice    *string `json:"choice,omitempty"`
	Reasoning *string `json:"reasoning,omitempty"`
	Freeform  *string `json:"freeform,omitempty"`
	Text      *string `json:"text,omitempty"`
}

type ImportSubmission struct {
	ID             string                      `json:"id" validate:"required"`
	QueueID        string                      `json:"queueId" validate:"required"`
	LabelingTaskID string                      `json:"labelingTaskId" validate:"required"`
	CreatedAt      int64                       `json:"createdAt"`
	Questions      []SubmissionQuestion        `json:"questions" validate:"required,dive"`
	Answers        map[string]SubmissionAnswer `json:"answers" validate:"required"`
}

// ToDB converts the export format into store rows. CreatedAt is epoch
// milliseconds.
func (s ImportSubmission) ToDB() db.ImportSubmission {
	out := db.ImportSubmission{
		ID:             s.ID,
		QueueID:        s.QueueID,
		LabelingTaskID: s.LabelingTaskID,
		CreatedAt:      time.UnixMilli(s.CreatedAt).UTC(),
		Questions:      make([]db.Question, 0, len(s.Questions)),
		Answers:        make(map[string]db.AnswerInput, len(s.Answers)),
	}
	for _, q := range s.Questions {
		out.Questions = append(out.Questions, db.Question{
			ID:           q.Data.ID,
			QuestionType: q.Data.QuestionType,
			QuestionText: q.Data.QuestionText,
		})
	}
	for id, a := range s.Answers {
		text := a.Text
		if text == nil {
			text = a.Freeform
		}
		out.Answers[id] = db.AnswerInput{Choice: a.Choice, Reasoning: a.Reasoning, Text: text}
	}
	return out
}

type ImportResponse struct {
	Count      int    `json:"count"`
	Message    string `json:"message"`
	ArchiveRef string `json:"archiveRef,omitempty"`
}

type JudgeRequest struct {
	Name   string `json:"name" validate:"required"`
	Prompt string `json:"prompt" validate:"required"`
	Model  string `json:"model" validate:"required"`
	Active *bool  `json:"active"`
}

func (r JudgeRequest) ToDB() db.JudgeInput {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return db.JudgeInput{Name: r.Name, Prompt: r.Prompt, Model: r.Model, Active: active}
}

// JudgeUpdateRequest is a partial update; absent fields are left alone.
type JudgeUpdateRequest struct {
	Name   *string `json:"name" validate:"omitnil,min=1"`
	Prompt *string `json:"prompt" validate:"omitnil,min=1"`
	Model  *string `json:"model" validate:"omitnil,min=1"`
	Active *bool   `json:"active"`
}

func (r JudgeUpdateRequest) ToDB() db.JudgePatch {
	return db.JudgePatch{Name: r.Name, Prompt: r.Prompt, Model: r.Model, Active: r.Active}
}

type AssignmentUpdateRequest struct {
	JudgeIDs []int64 `json:"judgeIds" validate:"dive,gt=0"`
}

type AssignmentPair struct {
	JudgeID    int64  `json:"judgeId" validate:"gt=0"`
	QuestionID string `json:"questionId" validate:"required"`
}

type BulkAssignmentRequest struct {
	Assignments []AssignmentPair `json:"assignments" validate:"required,dive"`
}

func (r BulkAssignmentRequest) ToDB() []db.AssignmentPair {
	out := make([]db.AssignmentPair, 0, len(r.Assignments))
	for _, a := range r.Assignments {
		out = append(out, db.AssignmentPair{JudgeID: a.JudgeID, QuestionID: a.QuestionID})
	}
	return out
}

// EvaluateRequest scopes a run. An empty QueueID evaluates every queue.
// It is also the payload of queued run tasks.
type EvaluateRequest struct {
	QueueID string `json:"queueId,omitempty" validate:"omitempty,max=256"`
}

type RunSummary struct {
	RunID                string               `json:"runId"`
	Planned              int                  `json:"planned"`
	Completed            int                  `json:"completed"`
	Failed               int                  `json:"failed"`
	CreatedEvaluationIDs []int64              `json:"createdEvaluationIds"`
	Evaluations          []db.EvaluationBrief `json:"evaluations"`
}

type EnqueueResponse struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}

type DeleteEvaluationsResponse struct {
	Deleted int64  `json:"deleted"`
	Message string `json:"message"`
}
