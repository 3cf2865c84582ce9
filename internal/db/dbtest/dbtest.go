// Package dbtest opens throwaway SQLite-backed stores for tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"annotation-judge/internal/db"
)

// schema mirrors the Postgres migrations in SQLite dialect.
const schema = `
CREATE TABLE submissions (
	id TEXT PRIMARY KEY,
	queue_id TEXT NOT NULL,
	labeling_task_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE questions (
	id TEXT PRIMARY KEY,
	question_type TEXT NOT NULL,
	question_text TEXT NOT NULL
);
CREATE TABLE answers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id TEXT NOT NULL REFERENCES submissions (id) ON DELETE CASCADE,
	question_id TEXT NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
	choice TEXT,
	reasoning TEXT,
	text TEXT,
	UNIQUE (submission_id, question_id)
);
CREATE TABLE judges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	prompt TEXT NOT NULL,
	model TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE assignments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	judge_id INTEGER NOT NULL REFERENCES judges (id) ON DELETE CASCADE,
	question_id TEXT NOT NULL REFERENCES questions (id) ON DELETE CASCADE
);
CREATE TABLE evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL DEFAULT '',
	submission_id TEXT NOT NULL REFERENCES submissions (id) ON DELETE CASCADE,
	question_id TEXT NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
	judge_id INTEGER NOT NULL REFERENCES judges (id) ON DELETE CASCADE,
	verdict TEXT,
	reasoning TEXT,
	status TEXT NOT NULL,
	error TEXT,
	created_at TIMESTAMP NOT NULL
);
`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open returns a store over a fresh SQLite file in t's temp dir.
func Open(t testing.TB) *db.Store {
	t.Helper()
	dbx, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "judge.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps concurrent writers from tripping SQLITE_BUSY.
	dbx.SetMaxOpenConns(1)
	if _, err := dbx.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = dbx.Close() })
	return db.NewStore(dbx)
}

// Seed describes fixture rows for a test.
type Seed struct {
	Submissions []db.ImportSubmission
	Judges      []db.JudgeInput
}

// Apply writes the seed through the store and returns the created judges
// in input order.
func (s Seed) Apply(t testing.TB, store *db.Store) []db.Judge {
	t.Helper()
	ctx := t.Context()
	if len(s.Submissions) > 0 {
		if err := store.ImportSubmissions(ctx, s.Submissions); err != nil {
			t.Fatalf("import submissions: %v", err)
		}
	}
	judges := make([]db.Judge, 0, len(s.Judges))
	for _, in := range s.Judges {
		j, err := store.CreateJudge(ctx, in)
		if err != nil {
			t.Fatalf("create judge: %v", err)
		}
		judges = append(judges, *j)
	}
	return judges
}

// Submission builds an import row answering each question in answers.
func Submission(id, queueID string, questions []db.Question, answers map[string]db.AnswerInput) db.ImportSubmission {
	return db.ImportSubmission{
		ID:             id,
		QueueID:        queueID,
		LabelingTaskID: "task-" + id,
		CreatedAt:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Questions:      questions,
		Answers:        answers,
	}
}

func Ptr[T any](v T) *T { return &v }
