package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type AssignmentFilter struct {
	QuestionID string
}

type assignmentRow struct {
	Assignment
	J Judge    `db:"judge"`
	Q Question `db:"question"`
}

const selectAssignments = `SELECT a.id, a.judge_id, a.question_id,
	j.id AS "judge.id", j.name AS "judge.name", j.prompt AS "judge.prompt", j.model AS "judge.model",
	j.active AS "judge.active", j.created_at AS "judge.created_at", j.updated_at AS "judge.updated_at",
	q.id AS "question.id", q.question_type AS "question.question_type", q.question_text AS "question.question_text"
FROM assignments a
JOIN judges j ON j.id = a.judge_id
JOIN questions q ON q.id = a.question_id`

const insertAssignment = `INSERT INTO assignments (judge_id, question_id) VALUES (:judge_id, :question_id)`

// ListAssignments returns assignments joined to their judge and question.
func (s *Store) ListAssignments(ctx context.Context, f AssignmentFilter) ([]Assignment, error) {
	query := selectAssignments
	var args []any
	if f.QuestionID != "" {
		query += ` WHERE a.question_id = ?`
		args = append(args, f.QuestionID)
	}
	query += ` ORDER BY a.question_id, a.id`

	var rows []assignmentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	out := make([]Assignment, len(rows))
	for i := range rows {
		a := rows[i].Assignment
		j, q := rows[i].J, rows[i].Q
		a.Judge, a.Question = &j, &q
		out[i] = a
	}
	return out, nil
}

// ReplaceQuestionAssignments makes judgeIDs the complete judge set for
// questionID. Readers never see a partially replaced set.
func (s *Store) ReplaceQuestionAssignments(ctx context.Context, questionID string, judgeIDs []int64) error {
	pairs := make([]AssignmentPair, 0, len(judgeIDs))
	for _, id := range judgeIDs {
		pairs = append(pairs, AssignmentPair{JudgeID: id, QuestionID: questionID})
	}
	pairs = dedupePairs(pairs)
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM assignments WHERE question_id = ?`), questionID); err != nil {
			return fmt.Errorf("clear assignments for %s: %w", questionID, err)
		}
		return insertPairs(ctx, tx, pairs)
	})
}

// ReplaceAllAssignments swaps the whole assignment table for pairs.
func (s *Store) ReplaceAllAssignments(ctx context.Context, pairs []AssignmentPair) error {
	pairs = dedupePairs(pairs)
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM assignments`); err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		return insertPairs(ctx, tx, pairs)
	})
}

func insertPairs(ctx context.Context, tx *sqlx.Tx, pairs []AssignmentPair) error {
	if len(pairs) == 0 {
		return nil
	}
	if _, err := tx.NamedExecContext(ctx, insertAssignment, pairs); err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

// dedupePairs drops repeated pairs, keeping first occurrence order.
func dedupePairs(pairs []AssignmentPair) []AssignmentPair {
	seen := make(map[AssignmentPair]struct{}, len(pairs))
	out := pairs[:0:0]
	for _, p := range pairs {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
