// Package worker runs queued evaluation runs off the request path.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/hibiken/asynq"

	"annotation-judge/internal/qa"
	"annotation-judge/internal/schemas"
)

// TypeEvaluationRun is the asynq task type for one evaluation run.
const TypeEvaluationRun = "evaluation:run"

// Archiver stores finished run summaries.
type Archiver interface {
	ArchiveReport(ctx context.Context, runID string, v any) (string, error)
}

// NewRunTask builds a task that evaluates req's scope. Runs are not
// retried: a retry would record a second set of rows.
func NewRunTask(req schemas.EvaluateRequest) (*asynq.Task, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode run payload: %w", err)
	}
	return asynq.NewTask(TypeEvaluationRun, b, asynq.MaxRetry(0)), nil
}

type Server struct {
	Runner  *qa.Runner
	Archive Archiver
}

func (s *Server) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEvaluationRun, s.handleRun)
	return mux
}

func (s *Server) handleRun(ctx context.Context, t *asynq.Task) error {
	var req schemas.EvaluateRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("decode run payload: %w: %w", err, asynq.SkipRetry)
	}
	log := clog.FromContext(ctx).With("queue_id", req.QueueID)
	rw := t.ResultWriter()
	if rw != nil {
		log = log.With("task_id", rw.TaskID())
	}

	summary, err := s.Runner.Run(ctx, qa.Scope{QueueID: req.QueueID})
	if errors.Is(err, qa.ErrProviderNotConfigured) {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	log.With("run_id", summary.RunID).Infof("run done: planned=%d completed=%d failed=%d",
		summary.Planned, summary.Completed, summary.Failed)

	if b, err := json.Marshal(summary); err == nil && rw != nil {
		_, _ = rw.Write(b)
	}
	if s.Archive != nil {
		if _, err := s.Archive.ArchiveReport(ctx, summary.RunID, summary); err != nil {
			// The rows are already written; losing the report is not worth a retry.
			log.Warnf("archiving run report: %v", err)
		}
	}
	return nil
}

// Run serves evaluation tasks from redis until ctx is done.
func Run(ctx context.Context, redisAddr string, concurrency int, s *Server) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		BaseContext: func() context.Context { return ctx },
	})
	if err := srv.Start(s.Mux()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}
