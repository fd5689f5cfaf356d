// Package httpapi exposes the service over HTTP: fetch requests, job
// polling, result retrieval and the cached share lookup.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/jobs"
	"tweetmap/pkg/logger"
	"tweetmap/pkg/manager"
	"tweetmap/pkg/ratelimit"
)

// Server is the HTTP front end over the dispatch manager
type Server struct {
	manager *manager.Manager
	limiter ratelimit.Limiter
	logger  logger.Logger
	http    *http.Server
}

// New builds the server and its routes
func New(addr string, m *manager.Manager, limiter ratelimit.Limiter, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		manager: m,
		limiter: limiter,
		logger:  log,
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes assembles the router. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/fetch/{subject}", s.handleFetch)
	})

	r.Get("/status/{jobID}", s.handleStatus)
	r.Get("/result/{jobID}", s.handleResult)
	r.Get("/share/{subject}", s.handleShare)

	return r
}

// ListenAndServe runs the server until Shutdown or a listener error
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.http.Addr).Info("http server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	outcome, err := s.manager.RequestFetch(subject)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// statusResponse is the poll payload; Result is present only once done
type statusResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.Status(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := statusResponse{
		JobID:  job.ID,
		Status: job.Status,
		Error:  job.Error,
	}
	if job.Status == jobs.StatusDone {
		resp.Result = job.Result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.manager.Result(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	result, err := s.manager.Shared(chi.URLParam(r, "subject"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// errorResponse is the uniform error payload
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	errType := apierrors.TypeOf(err)
	status := statusForType(errType)
	if status >= 500 {
		s.logger.WithError(err).Error("request failed")
	}

	writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Type:  string(errType),
	})
}

// statusForType maps the error taxonomy onto HTTP status codes
func statusForType(t apierrors.ErrorType) int {
	switch t {
	case apierrors.ErrorTypeInvalidSubject:
		return http.StatusBadRequest
	case apierrors.ErrorTypeJobNotFound, apierrors.ErrorTypeSubjectNotFound:
		return http.StatusNotFound
	case apierrors.ErrorTypeResultNotReady:
		return http.StatusConflict
	case apierrors.ErrorTypeJobFailed:
		return http.StatusBadGateway
	case apierrors.ErrorTypeServerError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
