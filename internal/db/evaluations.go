package db

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// EvaluationFilter narrows evaluation reads. Empty fields do not filter.
type EvaluationFilter struct {
	JudgeIDs    []int64
	QuestionIDs []string
	Verdicts    []string
	RunID       string
}

func (f EvaluationFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(f.JudgeIDs) > 0 {
		clauses = append(clauses, "e.judge_id IN (?)")
		args = append(args, f.JudgeIDs)
	}
	if len(f.QuestionIDs) > 0 {
		clauses = append(clauses, "e.question_id IN (?)")
		args = append(args, f.QuestionIDs)
	}
	if len(f.Verdicts) > 0 {
		clauses = append(clauses, "e.verdict IN (?)")
		args = append(args, f.Verdicts)
	}
	if f.RunID != "" {
		clauses = append(clauses, "e.run_id = ?")
		args = append(args, f.RunID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type evaluationRow struct {
	Evaluation
	J Judge      `db:"judge"`
	Q Question   `db:"question"`
	S Submission `db:"submission"`
}

const selectEvaluations = `SELECT e.id, e.run_id, e.submission_id, e.question_id, e.judge_id,
	e.verdict, e.reasoning, e.status, e.error, e.created_at,
	j.id AS "judge.id", j.name AS "judge.name", j.prompt AS "judge.prompt", j.model AS "judge.model",
	j.active AS "judge.active", j.created_at AS "judge.created_at", j.updated_at AS "judge.updated_at",
	q.id AS "question.id", q.question_type AS "question.question_type", q.question_text AS "question.question_text",
	s.id AS "submission.id", s.queue_id AS "submission.queue_id",
	s.labeling_task_id AS "submission.labeling_task_id", s.created_at AS "submission.created_at"
FROM evaluations e
JOIN judges j ON j.id = e.judge_id
JOIN questions q ON q.id = e.question_id
JOIN submissions s ON s.id = e.submission_id`

// CreateEvaluation appends one evaluation row and sets its id. Rows that
// break the completed/failed shape are rejected before reaching the table.
func (s *Store) CreateEvaluation(ctx context.Context, e *Evaluation) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`INSERT INTO evaluations
	(run_id, submission_id, question_id, judge_id, verdict, reasoning, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		e.RunID, e.SubmissionID, e.QuestionID, e.JudgeID, e.Verdict, e.Reasoning, e.Status, e.Error, e.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert evaluation: %w", err)
	}
	e.ID = id
	return id, nil
}

// ListEvaluations returns matching evaluations newest first, joined to
// their judge, question and submission.
func (s *Store) ListEvaluations(ctx context.Context, f EvaluationFilter) ([]Evaluation, error) {
	where, args := f.where()
	query, args, err := sqlx.In(selectEvaluations+where+` ORDER BY e.created_at DESC, e.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("expand evaluation filter: %w", err)
	}
	var rows []evaluationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select evaluations: %w", err)
	}
	out := make([]Evaluation, len(rows))
	for i := range rows {
		e := rows[i].Evaluation
		j, q, sub := rows[i].J, rows[i].Q, rows[i].S
		e.Judge, e.Question, e.Submission = &j, &q, &sub
		out[i] = e
	}
	return out, nil
}

// EvaluationsByIDs returns the compact form of the given evaluations.
func (s *Store) EvaluationsByIDs(ctx context.Context, ids []int64) ([]EvaluationBrief, error) {
	out := []EvaluationBrief{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, verdict, status FROM evaluations WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("expand evaluation ids: %w", err)
	}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select evaluations by id: %w", err)
	}
	return out, nil
}

// DeleteAllEvaluations clears the table and reports how many rows went.
func (s *Store) DeleteAllEvaluations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("delete evaluations: %w", err)
	}
	return res.RowsAffected()
}

// EvaluationStats tallies matching evaluations by verdict. Failed rows have
// no verdict and are counted as errored; the pass rate is over all rows.
func (s *Store) EvaluationStats(ctx context.Context, f EvaluationFilter) (*EvaluationStats, error) {
	where, args := f.where()
	query, args, err := sqlx.In(`SELECT e.verdict AS verdict, COUNT(*) AS count FROM evaluations e`+where+` GROUP BY e.verdict`, args...)
	if err != nil {
		return nil, fmt.Errorf("expand evaluation filter: %w", err)
	}
	var rows []struct {
		Verdict *string `db:"verdict"`
		Count   int64   `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("count evaluations: %w", err)
	}
	st := &EvaluationStats{}
	for _, r := range rows {
		st.Total += r.Count
		if r.Verdict == nil {
			st.Errored += r.Count
			continue
		}
		switch *r.Verdict {
		case VerdictPass:
			st.Passed += r.Count
		case VerdictFail:
			st.Failed += r.Count
		case VerdictInconclusive:
			st.Inconclusive += r.Count
		}
	}
	if st.Total > 0 {
		st.PassRate = int(math.Round(float64(st.Passed) / float64(st.Total) * 100))
	}
	return st, nil
}
