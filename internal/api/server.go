// Package api serves the storyboard pipeline over HTTP: the one-shot
// /generate-veo3 endpoint and a session API that runs each stage on demand.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fpang/veo3-storyboard/internal/metrics"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
	"github.com/fpang/veo3-storyboard/internal/session"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

// Options tunes request handling.
type Options struct {
	// MaxUploadBytes bounds multipart and raw image uploads.
	MaxUploadBytes int64
	// CORSOrigin is echoed in Access-Control-Allow-Origin; "*" allows any.
	CORSOrigin string
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	orch     *pipeline.Orchestrator
	sessions *session.Store
	opts     Options
}

// NewServer creates a Server.
func NewServer(orch *pipeline.Orchestrator, sessions *session.Store, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Server{orch: orch, sessions: sessions, opts: opts}
}

// Handler returns the routed handler wrapped in metrics, logging, CORS and
// compression middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /generate-veo3", s.handleGenerate)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/analyze", s.withSession(s.handleAnalyze))
	mux.HandleFunc("POST /api/sessions/{id}/annotate", s.withSession(s.handleAnnotate))
	mux.HandleFunc("PUT /api/sessions/{id}/manual", s.withSession(s.handleManual))
	mux.HandleFunc("POST /api/sessions/{id}/finalize", s.withSession(s.handleFinalize))
	mux.HandleFunc("GET /api/sessions/{id}/images/{selection}", s.withSession(s.handleImage))

	mux.Handle("GET /metrics", promhttp.Handler())

	return withMetrics(withLogging(withCORS(s.opts.CORSOrigin, withCompression(mux))))
}

// sessionHandler is a handler for routes under /api/sessions/{id}.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves {id} and answers 404 for unknown sessions.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(r.PathValue("id"))
		if !ok {
			respondError(w, r, errSessionNotFound)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) trackSessions() {
	metrics.SetActiveSessions(s.sessions.Len())
}
