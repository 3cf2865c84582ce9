package http

import (
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"

	"annotation-judge/internal/db"
	"annotation-judge/internal/schemas"
)

func (s *Server) importSubmissions(w http.ResponseWriter, r *http.Request) {
	var req []schemas.ImportSubmission
	if !s.decode(w, r, &req, false) {
		return
	}

	resp := schemas.ImportResponse{
		Count:   len(req),
		Message: fmt.Sprintf("Imported %d submissions", len(req)),
	}
	if s.Archive != nil {
		ref, err := s.Archive.ArchiveImport(r.Context(), req)
		if err != nil {
			clog.FromContext(r.Context()).Warnf("archiving import payload: %v", err)
		}
		resp.ArchiveRef = ref
	}

	rows := make([]db.ImportSubmission, 0, len(req))
	for _, sub := range req {
		rows = append(rows, sub.ToDB())
	}
	if err := s.Store.ImportSubmissions(r.Context(), rows); err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.Store.ListSubmissions(r.Context(), r.URL.Query().Get("queueId"))
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.Store.ListQueues(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.Store.ListQuestions(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}
