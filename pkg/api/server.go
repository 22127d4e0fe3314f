package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vjranagit/healthdash/pkg/health"
	"github.com/vjranagit/healthdash/pkg/metrics"
	"github.com/vjranagit/healthdash/pkg/render"
)

// Config holds server configuration
type Config struct {
	ListenAddr     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
	// ExportPath backs GET /api/v1/dashboard
	ExportPath string
}

// Server implements the HTTP API server
type Server struct {
	cfg      Config
	pipeline *health.Pipeline
	metrics  *metrics.Collector
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a new API server. m may be nil.
func NewServer(cfg Config, pipeline *health.Pipeline, m *metrics.Collector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		metrics:  m,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router with all routes registered
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard", s.handleUpload)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// logRequests logs each request and records it in the metrics collector
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
		}

		s.logger.Info("HTTP Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
		)
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleDashboard renders the dashboard for the configured export file
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.serveDashboard(w, health.NewFileSource(s.cfg.ExportPath))
}

// handleUpload renders the dashboard for an uploaded export, sent either as
// the raw request body or as the "file" field of a multipart form
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	src, err := s.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, "bad_upload", err.Error())
		return
	}

	s.serveDashboard(w, src)
}

func (s *Server) readUpload(r *http.Request) (*health.UploadSource, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return health.NewUploadSource("", r.Body)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return health.NewUploadSource(header.Filename, file)
}

func (s *Server) serveDashboard(w http.ResponseWriter, src health.Source) {
	dash, err := s.pipeline.Load(src)
	if err != nil {
		kind := health.ErrorKind(err)
		s.writeError(w, statusFor(kind), kind, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, render.NewDashboardView(dash))
}

func statusFor(kind string) int {
	switch kind {
	case "source_not_found":
		return http.StatusNotFound
	case "malformed_document", "malformed_record":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

// writeJSON writes v with the given status. The header is already sent when
// encoding fails, so the failure is only logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Int("status", status), zap.Error(err))
	}
}
