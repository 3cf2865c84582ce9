package qa_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-judge/internal/db"
	"annotation-judge/internal/db/dbtest"
	"annotation-judge/internal/qa"
)

var (
	freeText = db.Question{ID: "q-free", QuestionType: "free_form", QuestionText: "Name a prime."}
	choice   = db.Question{ID: "q-choice", QuestionType: db.QuestionTypeSingleChoiceWithReasoning, QuestionText: "Is 9 prime?"}
)

// fakeProvider answers every call with respond and records the prompts.
type fakeProvider struct {
	configured bool
	respond    func(model, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Complete(_ context.Context, model, system, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(model, prompt)
}

func reply(verdict, reasoning string) func(string, string) (string, error) {
	return func(string, string) (string, error) {
		return fmt.Sprintf(`{"verdict":%q,"reasoning":%q}`, verdict, reasoning), nil
	}
}

func setup(t *testing.T, judges ...db.JudgeInput) (*db.Store, []db.Judge) {
	t.Helper()
	store := dbtest.Open(t)
	created := dbtest.Seed{
		Submissions: []db.ImportSubmission{
			dbtest.Submission("s1", "queue-a", []db.Question{freeText, choice}, map[string]db.AnswerInput{
				"q-free":   {Text: dbtest.Ptr("7")},
				"q-choice": {Choice: dbtest.Ptr("no"), Reasoning: dbtest.Ptr("3 x 3")},
			}),
			dbtest.Submission("s2", "queue-b", []db.Question{freeText}, map[string]db.AnswerInput{
				"q-free": {Text: dbtest.Ptr("10")},
			}),
		},
		Judges: judges,
	}.Apply(t, store)
	return store, created
}

func judge(name string, active bool) db.JudgeInput {
	return db.JudgeInput{Name: name, Prompt: name + " rubric", Model: "gpt-4o-mini", Active: active}
}

func TestRunRecordsCompletedEvaluation(t *testing.T) {
	store, judges := setup(t, judge("primes", true))
	ctx := t.Context()
	require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-free", []int64{judges[0].ID}))

	provider := &fakeProvider{configured: true, respond: reply("PASS", "7 is prime")}
	r := &qa.Runner{Store: store, Provider: provider}

	summary, err := r.Run(ctx, qa.Scope{QueueID: "queue-a"})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Planned)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.CreatedEvaluationIDs, 1)
	require.Len(t, summary.Evaluations, 1)
	assert.Equal(t, db.VerdictPass, *summary.Evaluations[0].Verdict)

	require.Len(t, provider.prompts, 1)
	assert.Equal(t, qa.BuildPrompt("Name a prime.", "7", "primes rubric"), provider.prompts[0])

	evals, err := store.ListEvaluations(ctx, db.EvaluationFilter{RunID: summary.RunID})
	require.NoError(t, err)
	require.Len(t, evals, 1)
	got := evals[0]
	assert.Equal(t, db.StatusCompleted, got.Status)
	assert.Equal(t, "s1", got.SubmissionID)
	assert.Equal(t, "7 is prime", *got.Reasoning)
	assert.Nil(t, got.Error)
}

func TestRunRecordsFailures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(string, string) (string, error)
		wantErr string
	}{{
		name:    "malformed json",
		respond: func(string, string) (string, error) { return "looks fine to me", nil },
		wantErr: "malformed judge response",
	}, {
		name:    "unknown verdict",
		respond: reply("maybe", "hard to say"),
		wantErr: "unexpected verdict: maybe",
	}, {
		name:    "provider error",
		respond: func(string, string) (string, error) { return "", errors.New("429 rate limited") },
		wantErr: "429 rate limited",
	}, {
		name:    "empty content",
		respond: func(string, string) (string, error) { return "", nil },
		wantErr: "no response content from model",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, judges := setup(t, judge("primes", true))
			ctx := t.Context()
			require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-free", []int64{judges[0].ID}))

			r := &qa.Runner{Store: store, Provider: &fakeProvider{configured: true, respond: tt.respond}}
			summary, err := r.Run(ctx, qa.Scope{QueueID: "queue-a"})
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Planned)
			assert.Equal(t, 0, summary.Completed)
			assert.Equal(t, 1, summary.Failed)
			assert.Empty(t, summary.CreatedEvaluationIDs)
			assert.Empty(t, summary.Evaluations)

			evals, err := store.ListEvaluations(ctx, db.EvaluationFilter{RunID: summary.RunID})
			require.NoError(t, err)
			require.Len(t, evals, 1)
			assert.Equal(t, db.StatusFailed, evals[0].Status)
			assert.Nil(t, evals[0].Verdict)
			assert.Nil(t, evals[0].Reasoning)
			require.NotNil(t, evals[0].Error)
			assert.Contains(t, *evals[0].Error, tt.wantErr)
		})
	}
}

func TestRunSkipsInactiveJudges(t *testing.T) {
	store, judges := setup(t, judge("on", true), judge("off", false))
	ctx := t.Context()
	require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-choice", []int64{judges[0].ID, judges[1].ID}))

	provider := &fakeProvider{configured: true, respond: reply("pass", "9 is composite")}
	r := &qa.Runner{Store: store, Provider: provider}
	summary, err := r.Run(ctx, qa.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Planned)
	assert.Equal(t, 1, summary.Completed)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Answer: no - 3 x 3\n")
	assert.Contains(t, provider.prompts[0], "Rubric: on rubric")
}

func TestRunWithoutProviderWritesNothing(t *testing.T) {
	store, judges := setup(t, judge("primes", true))
	ctx := t.Context()
	require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-free", []int64{judges[0].ID}))

	for _, p := range []qa.Provider{nil, &fakeProvider{configured: false}} {
		r := &qa.Runner{Store: store, Provider: p}
		_, err := r.Run(ctx, qa.Scope{})
		require.ErrorIs(t, err, qa.ErrProviderNotConfigured)
	}

	evals, err := store.ListEvaluations(ctx, db.EvaluationFilter{})
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestRunWithNothingAssigned(t *testing.T) {
	store, _ := setup(t, judge("idle", true))
	r := &qa.Runner{Store: store, Provider: &fakeProvider{configured: true, respond: reply("pass", "x")}}

	summary, err := r.Run(t.Context(), qa.Scope{})
	require.NoError(t, err)
	assert.Zero(t, summary.Planned)
	assert.Zero(t, summary.Completed)
	assert.Zero(t, summary.Failed)
	assert.NotNil(t, summary.CreatedEvaluationIDs)
	assert.NotNil(t, summary.Evaluations)
}

func TestRunScopesToQueue(t *testing.T) {
	store, judges := setup(t, judge("primes", true))
	ctx := t.Context()
	require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-free", []int64{judges[0].ID}))
	r := &qa.Runner{Store: store, Provider: &fakeProvider{configured: true, respond: reply("pass", "ok")}}

	scoped, err := r.Run(ctx, qa.Scope{QueueID: "queue-b"})
	require.NoError(t, err)
	assert.Equal(t, 1, scoped.Completed)

	all, err := r.Run(ctx, qa.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Completed)
	assert.NotEqual(t, scoped.RunID, all.RunID)

	// Runs append; earlier rows stay.
	evals, err := store.ListEvaluations(ctx, db.EvaluationFilter{})
	require.NoError(t, err)
	assert.Len(t, evals, 3)
}

func TestRunFansOutConcurrently(t *testing.T) {
	const subs = 25
	store := dbtest.Open(t)
	seed := dbtest.Seed{Judges: []db.JudgeInput{judge("a", true), judge("b", true)}}
	for i := range subs {
		seed.Submissions = append(seed.Submissions, dbtest.Submission(fmt.Sprintf("s%02d", i), "bulk",
			[]db.Question{freeText}, map[string]db.AnswerInput{"q-free": {Text: dbtest.Ptr(fmt.Sprint(i))}}))
	}
	judges := seed.Apply(t, store)
	ctx := t.Context()
	require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-free", []int64{judges[0].ID, judges[1].ID}))

	var inflight, peak atomic.Int64
	provider := &fakeProvider{configured: true, respond: func(_, prompt string) (string, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		// Odd answers fail to parse.
		if strings.HasSuffix(strings.SplitN(prompt, "\n", 3)[1], "1") {
			return "nope", nil
		}
		return `{"verdict":"pass","reasoning":"ok"}`, nil
	}}

	r := &qa.Runner{Store: store, Provider: provider, MaxConcurrency: 4}
	summary, err := r.Run(ctx, qa.Scope{QueueID: "bulk"})
	require.NoError(t, err)
	assert.Equal(t, 2*subs, summary.Planned)
	assert.Equal(t, summary.Planned, summary.Completed+summary.Failed)
	// Answers 1, 11, 21 end in 1, each judged twice.
	assert.Equal(t, 6, summary.Failed)
	assert.LessOrEqual(t, peak.Load(), int64(4))
	assert.Len(t, summary.Evaluations, summary.Completed)

	evals, err := store.ListEvaluations(ctx, db.EvaluationFilter{RunID: summary.RunID})
	require.NoError(t, err)
	assert.Len(t, evals, summary.Planned)
}

// flakyStore rejects the first completed write.
type flakyStore struct {
	*db.Store
	once sync.Once
}

func (f *flakyStore) CreateEvaluation(ctx context.Context, e *db.Evaluation) (int64, error) {
	var fail bool
	if e.Status == db.StatusCompleted {
		f.once.Do(func() { fail = true })
	}
	if fail {
		return 0, errors.New("disk full")
	}
	return f.Store.CreateEvaluation(ctx, e)
}

func TestRunFallsBackToFailedRowWhenWriteFails(t *testing.T) {
	store, judges := setup(t, judge("primes", true))
	ctx := t.Context()
	require.NoError(t, store.ReplaceQuestionAssignments(ctx, "q-free", []int64{judges[0].ID}))

	r := &qa.Runner{Store: &flakyStore{Store: store}, Provider: &fakeProvider{configured: true, respond: reply("pass", "ok")}}
	summary, err := r.Run(ctx, qa.Scope{QueueID: "queue-a"})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 1, summary.Failed)

	evals, err := store.ListEvaluations(ctx, db.EvaluationFilter{RunID: summary.RunID})
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, db.StatusFailed, evals[0].Status)
	assert.Contains(t, *evals[0].Error, "disk full")
}
