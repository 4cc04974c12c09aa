package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/db"
	"github.com/jonathan/career-predictor/internal/jobs"
	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/jonathan/career-predictor/internal/replacement"
	"github.com/jonathan/career-predictor/internal/schemas"
	"github.com/jonathan/career-predictor/internal/server/middleware"
	"github.com/jonathan/career-predictor/internal/server/ratelimit"
	"github.com/jonathan/career-predictor/internal/training"
	schemafiles "github.com/jonathan/career-predictor/schemas"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Predictor ranks roles for a skill set.
type Predictor interface {
	Predict(ctx context.Context, skills []string) (*prediction.Outcome, error)
}

// ModelStatusProvider reports the training state.
type ModelStatusProvider interface {
	Status() training.Status
}

// DatasetUploader validates and commits a new dataset.
type DatasetUploader interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*replacement.Result, error)
}

// RetrainScheduler queues retrains and reports on them.
type RetrainScheduler interface {
	Enqueue(reason string, datasetCommitted bool) (*jobs.Job, error)
	Get(id uuid.UUID) (*jobs.Job, error)
}

// HistoryStore persists prediction history and the upload audit trail.
type HistoryStore interface {
	UpsertPredictions(ctx context.Context, userID, modelVersion uuid.UUID, inputs []db.PredictionInput) ([]db.Prediction, error)
	ListPredictions(ctx context.Context, userID uuid.UUID, limit int) ([]db.Prediction, error)
	DeletePrediction(ctx context.Context, userID, id uuid.UUID) error
	RecordDatasetUpload(ctx context.Context, u *db.DatasetUpload) error
	ListDatasetUploads(ctx context.Context, limit int) ([]db.DatasetUpload, error)
}

// Config holds server configuration
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigin      string
	MaxUploadBytes  int64

	// ValidateResponses checks every prediction response against the
	// published response schema and logs mismatches.
	ValidateResponses bool
}

// Deps are the components the API is served from. Store is optional; the
// rest are required.
type Deps struct {
	Predictor Predictor
	Model     ModelStatusProvider
	Uploader  DatasetUploader
	Jobs      RetrainScheduler
	Store     HistoryStore
	Tokens    middleware.TokenValidator
	RateLimit *ratelimit.Config
	Logger    *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	handler         http.Handler
	logger          *zap.Logger
	shutdownTimeout time.Duration
	corsOrigin      string
	maxUploadBytes  int64

	predictor     Predictor
	model         ModelStatusProvider
	uploader      DatasetUploader
	jobs          RetrainScheduler
	store         HistoryStore
	rateLimiter   *ratelimit.Limiter
	predictSchema *schemas.Schema

	// responseSchema is nil unless response validation is enabled.
	responseSchema *schemas.Schema
	validate       *validator.Validate
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Predictor == nil:
		return nil, errors.New("server requires a predictor")
	case deps.Model == nil:
		return nil, errors.New("server requires a model status provider")
	case deps.Uploader == nil:
		return nil, errors.New("server requires a dataset uploader")
	case deps.Jobs == nil:
		return nil, errors.New("server requires a retrain scheduler")
	case deps.Tokens == nil:
		return nil, errors.New("server requires a token validator")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = replacement.DefaultMaxBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	predictSchema, err := schemas.Compile(schemafiles.MustLoad(schemafiles.PredictRequestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to compile predict request schema: %w", err)
	}
	var responseSchema *schemas.Schema
	if cfg.ValidateResponses {
		responseSchema, err = schemas.Compile(schemafiles.MustLoad(schemafiles.PredictResponseFile))
		if err != nil {
			return nil, fmt.Errorf("failed to compile predict response schema: %w", err)
		}
	}

	s := &Server{
		logger:          deps.Logger.Named("http"),
		shutdownTimeout: cfg.ShutdownTimeout,
		corsOrigin:      cfg.CORSOrigin,
		maxUploadBytes:  cfg.MaxUploadBytes,
		predictor:       deps.Predictor,
		model:           deps.Model,
		uploader:        deps.Uploader,
		jobs:            deps.Jobs,
		store:           deps.Store,
		rateLimiter:     ratelimit.NewLimiter(deps.RateLimit),
		predictSchema:   predictSchema,
		responseSchema:  responseSchema,
		validate:        validator.New(),
	}

	auth := middleware.AuthMiddleware(deps.Tokens)
	admin := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RequireRole(middleware.RoleAdmin)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /model", s.handleModelStatus)

	// Predictions and per-user history
	mux.Handle("POST /predictions", auth(http.HandlerFunc(s.handlePredict)))
	mux.Handle("GET /predictions", auth(http.HandlerFunc(s.handleListPredictions)))
	mux.Handle("DELETE /predictions/{id}", auth(http.HandlerFunc(s.handleDeletePrediction)))

	// Dataset administration
	mux.Handle("POST /admin/dataset", admin(s.handleUploadDataset))
	mux.Handle("GET /admin/uploads", admin(s.handleListUploads))
	mux.Handle("POST /admin/retrain", admin(s.handleRetrain))
	mux.Handle("GET /admin/jobs/{id}", admin(s.handleGetJob))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status and a client-safe body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	body := map[string]any{"error": err.Error()}

	var (
		rejected      *replacement.InputRejected
		partial       *replacement.PartialFailure
		schemaInvalid *schemas.ValidationError
	)
	switch {
	case errors.As(err, &rejected):
		body["error"] = rejected.Reason
		body["stage"] = replacement.StageRejected
	case errors.As(err, &partial):
		body["dataset_committed"] = true
	case errors.As(err, &schemaInvalid):
		body["error"] = "request does not match schema"
		body["details"] = schemaInvalid.Errors
	case status == http.StatusInternalServerError:
		body["error"] = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.jsonResponse(w, status, body)
}

// extractClientID uses the IP address from RemoteAddr. X-Forwarded-For is
// ignored since there is no trusted proxy list.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Time("reset_at", info.ResetTime),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
