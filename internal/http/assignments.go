package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"annotation-judge/internal/db"
	"annotation-judge/internal/schemas"
)

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	as, err := s.Store.ListAssignments(r.Context(), db.AssignmentFilter{})
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

// replaceQuestionAssignments makes the body's judges the full set for one
// question and returns that question's assignments.
func (s *Server) replaceQuestionAssignments(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionId")
	var req schemas.AssignmentUpdateRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	if err := s.Store.ReplaceQuestionAssignments(r.Context(), questionID, req.JudgeIDs); err != nil {
		storeError(w, r, err)
		return
	}
	as, err := s.Store.ListAssignments(r.Context(), db.AssignmentFilter{QuestionID: questionID})
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (s *Server) replaceAllAssignments(w http.ResponseWriter, r *http.Request) {
	var req schemas.BulkAssignmentRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	if err := s.Store.ReplaceAllAssignments(r.Context(), req.ToDB()); err != nil {
		storeError(w, r, err)
		return
	}
	as, err := s.Store.ListAssignments(r.Context(), db.AssignmentFilter{})
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}
