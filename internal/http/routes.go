// Package http serves the judge API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"annotation-judge/internal/db"
	"annotation-judge/internal/qa"
)

const maxBody = 2 << 20

// Archiver keeps a copy of raw import payloads.
type Archiver interface {
	ArchiveImport(ctx context.Context, v any) (string, error)
}

// Enqueuer hands tasks to the background worker. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	Store    *db.Store
	Runner   *qa.Runner
	Archive  Archiver
	Queue    Enqueuer
	APIToken string

	validate *validator.Validate
}

func NewServer(s *Server, addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: s.Routes()}
}

// Routes builds the router. Archive, Queue and APIToken are optional.
func (s *Server) Routes() http.Handler {
	s.validate = newValidator()

	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Logger, m.Recoverer)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Group(func(r chi.Router) {
			if s.APIToken != "" {
				r.Use(RequireAPIToken(s.APIToken))
			}
			r.Use(limitBody)

			r.Post("/submissions/import", s.importSubmissions)
			r.Get("/submissions", s.listSubmissions)
			r.Get("/queues", s.listQueues)
			r.Get("/questions", s.listQuestions)

			r.Get("/judges", s.listJudges)
			r.Post("/judges", s.createJudge)
			r.Put("/judges/{id}", s.updateJudge)
			r.Delete("/judges/{id}", s.deleteJudge)

			r.Get("/assignments", s.listAssignments)
			r.Put("/assignments/{questionId}", s.replaceQuestionAssignments)
			r.Post("/assignments/bulk", s.replaceAllAssignments)

			r.Post("/evaluate", s.evaluate)
			r.Post("/evaluate/async", s.evaluateAsync)
			r.Get("/evaluations", s.listEvaluations)
			r.Get("/evaluations/stats", s.evaluationStats)
			r.Delete("/evaluations", s.deleteEvaluations)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResp struct {
	Error  string  `json:"error"`
	Issues []issue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string, issues []issue) {
	writeJSON(w, code, errResp{Error: msg, Issues: issues})
}

// storeError maps a store failure to a response and logs the unexpected ones.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found", nil)
		return
	}
	clog.FromContext(r.Context()).Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, err.Error(), nil)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into v and validates it; slices are validated
// element by element. An empty body decodes as the zero value when
// allowEmpty is set. On failure it writes the error response and reports
// false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && allowEmpty:
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), nil)
			return false
		}
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() == reflect.Slice {
		return s.check(w, s.validate.Var(rv.Interface(), "dive"))
	}
	return s.check(w, s.validate.Struct(v))
}

func (s *Server) check(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	issues := make([]issue, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if !strings.HasPrefix(field, "[") {
			if _, rest, ok := strings.Cut(field, "."); ok {
				field = rest
			}
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		issues = append(issues, issue{Field: field, Message: msg})
	}
	writeError(w, http.StatusBadRequest, "invalid payload", issues)
	return false
}
