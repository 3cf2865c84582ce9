package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ImportSubmission is one submission as delivered by the annotation tool.
type ImportSubmission struct {
	ID             string
	QueueID        string
	LabelingTaskID string
	CreatedAt      time.Time
	Questions      []Question
	Answers        map[string]AnswerInput
}

type AnswerInput struct {
	Choice    *string
	Reasoning *string
	Text      *string
}

const (
	upsertSubmission = `INSERT INTO submissions (id, queue_id, labeling_task_id, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	queue_id = excluded.queue_id,
	labeling_task_id = excluded.labeling_task_id,
	created_at = excluded.created_at`

	upsertQuestion = `INSERT INTO questions (id, question_type, question_text)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	question_type = excluded.question_type,
	question_text = excluded.question_text`

	upsertAnswer = `INSERT INTO answers (submission_id, question_id, choice, reasoning, text)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (submission_id, question_id) DO UPDATE SET
	choice = excluded.choice,
	reasoning = excluded.reasoning,
	text = excluded.text`
)

// ImportSubmissions upserts every submission, its questions and its answers
// in one transaction. Nothing is written if any row fails.
func (s *Store) ImportSubmissions(ctx context.Context, subs []ImportSubmission) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, sub := range subs {
			if _, err := tx.ExecContext(ctx, tx.Rebind(upsertSubmission),
				sub.ID, sub.QueueID, sub.LabelingTaskID, sub.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("upsert submission %s: %w", sub.ID, err)
			}
			for _, q := range sub.Questions {
				if _, err := tx.ExecContext(ctx, tx.Rebind(upsertQuestion),
					q.ID, q.QuestionType, q.QuestionText); err != nil {
					return fmt.Errorf("upsert question %s: %w", q.ID, err)
				}
				a, ok := sub.Answers[q.ID]
				if !ok {
					continue
				}
				if _, err := tx.ExecContext(ctx, tx.Rebind(upsertAnswer),
					sub.ID, q.ID, a.Choice, a.Reasoning, a.Text); err != nil {
					return fmt.Errorf("upsert answer %s/%s: %w", sub.ID, q.ID, err)
				}
			}
		}
		return nil
	})
}

// ListSubmissions returns submissions newest first with their answers, each
// answer carrying its question. An empty queueID selects every queue.
func (s *Store) ListSubmissions(ctx context.Context, queueID string) ([]Submission, error) {
	return s.loadSubmissions(ctx, queueID, true)
}

// SubmissionsForRun returns the submissions in scope of an evaluation run
// with their bare answers.
func (s *Store) SubmissionsForRun(ctx context.Context, queueID string) ([]Submission, error) {
	return s.loadSubmissions(ctx, queueID, false)
}

func (s *Store) loadSubmissions(ctx context.Context, queueID string, withQuestions bool) ([]Submission, error) {
	subQuery := `SELECT id, queue_id, labeling_task_id, created_at FROM submissions`
	ansQuery := `SELECT id, submission_id, question_id, choice, reasoning, text FROM answers`
	var args []any
	if queueID != "" {
		subQuery += ` WHERE queue_id = ?`
		ansQuery += ` WHERE submission_id IN (SELECT id FROM submissions WHERE queue_id = ?)`
		args = append(args, queueID)
	}
	subQuery += ` ORDER BY created_at DESC, id`
	ansQuery += ` ORDER BY id`

	subs := []Submission{}
	if err := s.db.SelectContext(ctx, &subs, s.db.Rebind(subQuery), args...); err != nil {
		return nil, fmt.Errorf("select submissions: %w", err)
	}
	var answers []Answer
	if err := s.db.SelectContext(ctx, &answers, s.db.Rebind(ansQuery), args...); err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}

	var questions map[string]*Question
	if withQuestions {
		qs, err := s.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}
		questions = make(map[string]*Question, len(qs))
		for i := range qs {
			questions[qs[i].ID] = &qs[i]
		}
	}

	bySubmission := make(map[string][]Answer, len(subs))
	for _, a := range answers {
		if withQuestions {
			a.Question = questions[a.QuestionID]
		}
		bySubmission[a.SubmissionID] = append(bySubmission[a.SubmissionID], a)
	}
	for i := range subs {
		subs[i].Answers = bySubmission[subs[i].ID]
		if subs[i].Answers == nil {
			subs[i].Answers = []Answer{}
		}
	}
	return subs, nil
}

// ListQueues returns the distinct queue ids across all submissions.
func (s *Store) ListQueues(ctx context.Context) ([]string, error) {
	queues := []string{}
	if err := s.db.SelectContext(ctx, &queues, `SELECT DISTINCT queue_id FROM submissions ORDER BY queue_id`); err != nil {
		return nil, fmt.Errorf("select queues: %w", err)
	}
	return queues, nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]Question, error) {
	questions := []Question{}
	if err := s.db.SelectContext(ctx, &questions,
		`SELECT id, question_type, question_text FROM questions ORDER BY question_text, id`); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return questions, nil
}
