package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"annotation-judge/internal/db"
	"annotation-judge/internal/metrics"
	"annotation-judge/internal/schemas"
)

// ErrProviderNotConfigured is returned before any work when no model
// provider credential is available.
var ErrProviderNotConfigured = errors.New("model provider credential is not configured")

// Provider completes one chat prompt with the named model.
type Provider interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	Configured() bool
}

// Store is the slice of the relational store a run reads and writes.
type Store interface {
	SubmissionsForRun(ctx context.Context, queueID string) ([]db.Submission, error)
	ListAssignments(ctx context.Context, f db.AssignmentFilter) ([]db.Assignment, error)
	ListQuestions(ctx context.Context) ([]db.Question, error)
	CreateEvaluation(ctx context.Context, e *db.Evaluation) (int64, error)
	EvaluationsByIDs(ctx context.Context, ids []int64) ([]db.EvaluationBrief, error)
}

// Scope selects the submissions of a run. An empty QueueID means all.
type Scope struct {
	QueueID string
}

// Runner evaluates every answer in scope with every active judge assigned
// to the answer's question, recording one evaluation per attempt.
type Runner struct {
	Store    Store
	Provider Provider

	// MaxConcurrency caps in-flight provider calls. Zero leaves the fan-out
	// unbounded.
	MaxConcurrency int
	// CallTimeout bounds a single provider call. Zero means no bound.
	CallTimeout time.Duration
}

type unit struct {
	submissionID string
	answer       db.Answer
	question     db.Question
	judge        db.Judge
}

type outcome struct {
	id        int64
	completed bool
}

// Run performs one evaluation run. Once dispatch starts it always returns a
// summary; per-pair failures are only visible as failed rows.
func (r *Runner) Run(ctx context.Context, scope Scope) (*schemas.RunSummary, error) {
	if r.Provider == nil || !r.Provider.Configured() {
		metrics.ObserveRun(metrics.RunConfigError)
		return nil, ErrProviderNotConfigured
	}

	runID := uuid.NewString()
	log := clog.FromContext(ctx).With("run_id", runID, "queue_id", scope.QueueID)

	subs, err := r.Store.SubmissionsForRun(ctx, scope.QueueID)
	if err != nil {
		metrics.ObserveRun(metrics.RunStoreError)
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	assignments, err := r.Store.ListAssignments(ctx, db.AssignmentFilter{})
	if err != nil {
		metrics.ObserveRun(metrics.RunStoreError)
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	questions, err := r.Store.ListQuestions(ctx)
	if err != nil {
		metrics.ObserveRun(metrics.RunStoreError)
		return nil, fmt.Errorf("load questions: %w", err)
	}

	questionByID := make(map[string]db.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}
	byQuestion := make(map[string][]db.Assignment)
	for _, a := range assignments {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}

	planned := countPlanned(subs, byQuestion)
	units := planUnits(subs, byQuestion, questionByID)
	log.Infof("dispatching %d evaluations (%d planned) across %d submissions", len(units), planned, len(subs))

	// Dispatched units run to completion even if the caller goes away.
	dctx := clog.WithLogger(context.WithoutCancel(ctx), log)
	outcomes := make([]outcome, len(units))
	var g errgroup.Group
	if r.MaxConcurrency > 0 {
		g.SetLimit(r.MaxConcurrency)
	}
	for i, u := range units {
		g.Go(func() error {
			outcomes[i] = r.evaluate(dctx, runID, u)
			return nil
		})
	}
	_ = g.Wait()

	summary := &schemas.RunSummary{
		RunID:                runID,
		Planned:              planned,
		CreatedEvaluationIDs: []int64{},
		Evaluations:          []db.EvaluationBrief{},
	}
	for _, o := range outcomes {
		if o.completed {
			summary.Completed++
			summary.CreatedEvaluationIDs = append(summary.CreatedEvaluationIDs, o.id)
		} else {
			summary.Failed++
		}
	}

	briefs, err := r.Store.EvaluationsByIDs(dctx, summary.CreatedEvaluationIDs)
	if err != nil {
		log.Errorf("fetching created evaluations: %v", err)
	} else {
		summary.Evaluations = briefs
	}

	metrics.ObserveRun(metrics.RunOK)
	log.Infof("run finished: planned=%d completed=%d failed=%d", summary.Planned, summary.Completed, summary.Failed)
	return summary, nil
}

// countPlanned is the forecast of dispatched units: active judges assigned
// to each answered question, summed over every answer.
func countPlanned(subs []db.Submission, byQuestion map[string][]db.Assignment) int {
	n := 0
	for _, s := range subs {
		for _, a := range s.Answers {
			for _, as := range byQuestion[a.QuestionID] {
				if as.Judge != nil && as.Judge.Active {
					n++
				}
			}
		}
	}
	return n
}

func planUnits(subs []db.Submission, byQuestion map[string][]db.Assignment, questions map[string]db.Question) []unit {
	var units []unit
	for _, s := range subs {
		for _, a := range s.Answers {
			assigned := byQuestion[a.QuestionID]
			if len(assigned) == 0 {
				continue
			}
			q, ok := questions[a.QuestionID]
			if !ok {
				continue
			}
			for _, as := range assigned {
				if as.Judge == nil || !as.Judge.Active {
					continue
				}
				units = append(units, unit{submissionID: s.ID, answer: a, question: q, judge: *as.Judge})
			}
		}
	}
	return units
}

// evaluate runs one unit and records its outcome. A failure to judge is
// written as a failed row rather than dropped.
func (r *Runner) evaluate(ctx context.Context, runID string, u unit) outcome {
	log := clog.FromContext(ctx).With("submission_id", u.submissionID, "question_id", u.question.ID, "judge_id", u.judge.ID)

	verdict, reasoning, err := r.judge(ctx, u)
	if err == nil {
		e := &db.Evaluation{
			RunID:        runID,
			SubmissionID: u.submissionID,
			QuestionID:   u.question.ID,
			JudgeID:      u.judge.ID,
			Verdict:      &verdict,
			Reasoning:    &reasoning,
			Status:       db.StatusCompleted,
		}
		id, werr := r.Store.CreateEvaluation(ctx, e)
		if werr == nil {
			metrics.ObserveEvaluation(db.StatusCompleted)
			return outcome{id: id, completed: true}
		}
		err = fmt.Errorf("record evaluation: %w", werr)
	}

	msg := err.Error()
	log.Warnf("evaluation failed: %s", msg)
	e := &db.Evaluation{
		RunID:        runID,
		SubmissionID: u.submissionID,
		QuestionID:   u.question.ID,
		JudgeID:      u.judge.ID,
		Status:       db.StatusFailed,
		Error:        &msg,
	}
	id, werr := r.Store.CreateEvaluation(ctx, e)
	if werr != nil {
		log.Errorf("recording failed evaluation: %v", werr)
	}
	metrics.ObserveEvaluation(db.StatusFailed)
	return outcome{id: id}
}

func (r *Runner) judge(ctx context.Context, u unit) (string, string, error) {
	answer := FormatAnswer(u.question.QuestionType, u.answer)
	prompt := BuildPrompt(u.question.QuestionText, answer, u.judge.Prompt)

	if r.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CallTimeout)
		defer cancel()
	}
	start := time.Now()
	content, err := r.Provider.Complete(ctx, u.judge.Model, SystemPrompt, prompt)
	metrics.ObserveProviderCall(u.judge.Model, time.Since(start), err)
	if err != nil {
		return "", "", err
	}
	return ParseVerdict(content)
}
