// Package web runs lyrics fetch jobs behind a small HTTP API and streams
// their progress over WebSocket.
package web

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"lrcfetch/internal/config"
	"lrcfetch/internal/library"
	"lrcfetch/internal/logger"
	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Server struct {
	ctx      context.Context
	jobMgr   *JobManager
	config   config.Config
	registry *lyrics.Registry
	logger   *logger.Logger

	loadSongs func(path string, log *logger.Logger) ([]library.Song, error)
	newSaver  func(dump bool) pipeline.Saver
}

// NewServer creates a server whose jobs run until they finish or ctx is
// cancelled. Providers are looked up in registry by each job's order.
func NewServer(ctx context.Context, jobMgr *JobManager, cfg config.Config, registry *lyrics.Registry, log *logger.Logger) *Server {
	return &Server{
		ctx:       ctx,
		jobMgr:    jobMgr,
		config:    cfg,
		registry:  registry,
		logger:    log,
		loadSongs: library.FromPath,
		newSaver: func(dump bool) pipeline.Saver {
			return library.Saver{Dump: dump}
		},
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/fetch", s.handleFetch)
	mux.HandleFunc("/api/providers", s.handleProviders)
	mux.HandleFunc("/api/jobs", s.handleListJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobAction)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
