package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type JudgeInput struct {
	Name   string
	Prompt string
	Model  string
	Active bool
}

// JudgePatch carries a partial judge update; nil fields are left unchanged.
type JudgePatch struct {
	Name   *string
	Prompt *string
	Model  *string
	Active *bool
}

const judgeColumns = `id, name, prompt, model, active, created_at, updated_at`

func (s *Store) ListJudges(ctx context.Context) ([]Judge, error) {
	judges := []Judge{}
	if err := s.db.SelectContext(ctx, &judges,
		`SELECT `+judgeColumns+` FROM judges ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("select judges: %w", err)
	}
	return judges, nil
}

func (s *Store) GetJudge(ctx context.Context, id int64) (*Judge, error) {
	var j Judge
	if err := s.db.GetContext(ctx, &j, s.db.Rebind(`SELECT `+judgeColumns+` FROM judges WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (s *Store) CreateJudge(ctx context.Context, in JudgeInput) (*Judge, error) {
	now := time.Now().UTC()
	var j Judge
	err := s.db.GetContext(ctx, &j, s.db.Rebind(`INSERT INTO judges (name, prompt, model, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING `+judgeColumns), in.Name, in.Prompt, in.Model, in.Active, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert judge: %w", err)
	}
	return &j, nil
}

// UpdateJudge applies patch to the judge with the given id.
func (s *Store) UpdateJudge(ctx context.Context, id int64, patch JudgePatch) (*Judge, error) {
	var j Judge
	err := WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &j, tx.Rebind(`SELECT `+judgeColumns+` FROM judges WHERE id = ?`), id); err != nil {
			return notFound(err)
		}
		if patch.Name != nil {
			j.Name = *patch.Name
		}
		if patch.Prompt != nil {
			j.Prompt = *patch.Prompt
		}
		if patch.Model != nil {
			j.Model = *patch.Model
		}
		if patch.Active != nil {
			j.Active = *patch.Active
		}
		j.UpdatedAt = time.Now().UTC()
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE judges SET name = ?, prompt = ?, model = ?, active = ?, updated_at = ? WHERE id = ?`),
			j.Name, j.Prompt, j.Model, j.Active, j.UpdatedAt, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update judge %d: %w", id, err)
	}
	return &j, nil
}

// DeleteJudge removes the judge; its assignments and evaluations go with it.
func (s *Store) DeleteJudge(ctx context.Context, id int64) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM assignments WHERE judge_id = ?`), id); err != nil {
			return fmt.Errorf("delete judge %d assignments: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM evaluations WHERE judge_id = ?`), id); err != nil {
			return fmt.Errorf("delete judge %d evaluations: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM judges WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete judge %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
