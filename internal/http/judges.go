package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"annotation-judge/internal/schemas"
)

func (s *Server) listJudges(w http.ResponseWriter, r *http.Request) {
	judges, err := s.Store.ListJudges(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, judges)
}

func (s *Server) createJudge(w http.ResponseWriter, r *http.Request) {
	var req schemas.JudgeRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	j, err := s.Store.CreateJudge(r.Context(), req.ToDB())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (s *Server) updateJudge(w http.ResponseWriter, r *http.Request) {
	id, ok := judgeID(w, r)
	if !ok {
		return
	}
	var req schemas.JudgeUpdateRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	j, err := s.Store.UpdateJudge(r.Context(), id, req.ToDB())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) deleteJudge(w http.ResponseWriter, r *http.Request) {
	id, ok := judgeID(w, r)
	if !ok {
		return
	}
	if err := s.Store.DeleteJudge(r.Context(), id); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func judgeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid judge id", nil)
		return 0, false
	}
	return id, true
}
