package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/substudio/subtitle-translator/internal/jobs"
	"github.com/substudio/subtitle-translator/internal/storage"
	"github.com/substudio/subtitle-translator/internal/translate"
)

type Server struct {
	engine *translate.Engine
	queue  *jobs.Queue
	files  *storage.Manager

	maxFilesPerBatch     int
	maxFileSizeMB        int
	defaultUseContext    bool
	defaultContextWindow int

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUploadLimits(maxFilesPerBatch, maxFileSizeMB int) Option {
	return func(s *Server) {
		s.maxFilesPerBatch = maxFilesPerBatch
		s.maxFileSizeMB = maxFileSizeMB
	}
}

func WithContextDefaults(useContext bool, window int) Option {
	return func(s *Server) {
		s.defaultUseContext = useContext
		s.defaultContextWindow = window
	}
}

func NewServer(engine *translate.Engine, queue *jobs.Queue, files *storage.Manager, opts ...Option) *Server {
	s := &Server{
		engine:               engine,
		queue:                queue,
		files:                files,
		maxFilesPerBatch:     20,
		maxFileSizeMB:        1,
		defaultUseContext:    true,
		defaultContextWindow: translate.DefaultContextWindow,
		mux:                  http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/services", s.handleServices)
	s.mux.HandleFunc("/api/languages", s.handleLanguages)
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/translate", s.handleTranslate)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/status/", s.handleStatus)
	s.mux.HandleFunc("/api/download/", s.handleDownload)
	s.mux.HandleFunc("/api/edit/", s.handleEdit)
	s.mux.HandleFunc("/api/save/", s.handleSave)
	s.mux.HandleFunc("/api/delete/", s.handleDelete)
}
