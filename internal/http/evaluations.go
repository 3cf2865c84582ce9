package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"annotation-judge/internal/db"
	"annotation-judge/internal/qa"
	"annotation-judge/internal/schemas"
	"annotation-judge/internal/worker"
)

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req schemas.EvaluateRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	summary, err := s.Runner.Run(r.Context(), qa.Scope{QueueID: req.QueueID})
	if errors.Is(err, qa.ErrProviderNotConfigured) {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) evaluateAsync(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "background queue is not configured", nil)
		return
	}
	var req schemas.EvaluateRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	task, err := worker.NewRunTask(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	info, err := s.Queue.EnqueueContext(r.Context(), task)
	if err != nil {
		storeError(w, r, fmt.Errorf("enqueue run: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, schemas.EnqueueResponse{TaskID: info.ID, Queue: info.Queue})
}

func (s *Server) listEvaluations(w http.ResponseWriter, r *http.Request) {
	f, ok := evaluationFilter(w, r)
	if !ok {
		return
	}
	evals, err := s.Store.ListEvaluations(r.Context(), f)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evals)
}

func (s *Server) evaluationStats(w http.ResponseWriter, r *http.Request) {
	f, ok := evaluationFilter(w, r)
	if !ok {
		return
	}
	stats, err := s.Store.EvaluationStats(r.Context(), f)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) deleteEvaluations(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.DeleteAllEvaluations(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas.DeleteEvaluationsResponse{
		Deleted: n,
		Message: fmt.Sprintf("Deleted %d evaluations", n),
	})
}

// evaluationFilter reads comma-separated judgeIds, questionIds and verdicts
// plus an optional runId from the query string.
func evaluationFilter(w http.ResponseWriter, r *http.Request) (db.EvaluationFilter, bool) {
	q := r.URL.Query()
	f := db.EvaluationFilter{
		QuestionIDs: splitList(q.Get("questionIds")),
		Verdicts:    splitList(q.Get("verdicts")),
		RunID:       q.Get("runId"),
	}
	for _, raw := range splitList(q.Get("judgeIds")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid filters", []issue{{Field: "judgeIds", Message: fmt.Sprintf("not an integer: %q", raw)}})
			return f, false
		}
		f.JudgeIDs = append(f.JudgeIDs, id)
	}
	return f, true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
