package web

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"mbart/internal/config"
	"mbart/internal/logger"
	"mbart/internal/pipeline"
	"mbart/internal/selector"
)

type Server struct {
	ctx    context.Context
	jobMgr *JobManager
	config config.Config
	logger *logger.Logger

	// newPipeline builds the pipeline of a job; jobs always select
	// automatically.
	newPipeline func(cfg config.Config, log *logger.Logger) *pipeline.Pipeline
}

func NewServer(ctx context.Context, jobMgr *JobManager, cfg config.Config, log *logger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		jobMgr: jobMgr,
		config: cfg,
		logger: log,
		newPipeline: func(cfg config.Config, log *logger.Logger) *pipeline.Pipeline {
			return pipeline.New(cfg, log, selector.Auto{})
		},
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jobs", s.handleCreateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/cancel", s.handleCancelJob).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocket)
	r.Use(s.loggingMiddleware)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
