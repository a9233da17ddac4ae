// Package server exposes the anonymizer over HTTP together with the
// dashboard, its event stream and the optional sentiment analysis flow.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
	"github.com/raaihank/pii-anonymizer/internal/config"
	"github.com/raaihank/pii-anonymizer/internal/history"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"github.com/raaihank/pii-anonymizer/internal/ratelimit"
	"github.com/raaihank/pii-anonymizer/internal/sentiment"
	"github.com/raaihank/pii-anonymizer/internal/telemetry"
	"github.com/raaihank/pii-anonymizer/internal/web"
	"github.com/raaihank/pii-anonymizer/internal/websocket"
	"go.uber.org/zap"
)

const statusInterval = 30 * time.Second

// Dependencies are the collaborators the server does not build itself.
// Nil fields get in-process defaults; a nil Scorer disables /api/analyze.
type Dependencies struct {
	Anonymizer *anonymizer.Anonymizer
	Scorer     sentiment.Scorer
	History    history.Store
	Hub        *websocket.Hub
	Limiter    *ratelimit.Limiter
	Recorder   *telemetry.Recorder
	Version    string
}

// Server represents the HTTP service
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	anonymizer *anonymizer.Anonymizer
	scorer     sentiment.Scorer
	history    history.Store
	hub        *websocket.Hub
	limiter    *ratelimit.Limiter
	recorder   *telemetry.Recorder
	version    string
	router     *mux.Router
	server     *http.Server
	startedAt  time.Time

	// hot-reloadable settings
	mu            sync.RWMutex
	defaults      anonymizer.Config
	maxTextLength int

	totalRequests atomic.Int64
	totalEntities atomic.Int64
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger, deps Dependencies) (*Server, error) {
	defaults := anonymizer.ConfigFromMap(cfg.Anonymizer.Defaults)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid anonymization defaults: %w", err)
	}

	if deps.Anonymizer == nil {
		registry, err := anonymizer.NewRegistry(
			anonymizer.WithFirstNames(cfg.Anonymizer.ExtraFirstNames),
			anonymizer.WithExclusions(cfg.Anonymizer.ExtraExclusions),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build pattern registry: %w", err)
		}
		deps.Anonymizer = anonymizer.New(registry, log.WithComponent("anonymizer"))
	}
	if deps.History == nil {
		deps.History = history.NewMemoryStore(cfg.History.Capacity)
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub(&cfg.WebSocket, log.WithComponent("websocket"))
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.New(&cfg.RateLimit)
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	s := &Server{
		config:        cfg,
		logger:        log.WithComponent("server"),
		anonymizer:    deps.Anonymizer,
		scorer:        deps.Scorer,
		history:       deps.History,
		hub:           deps.Hub,
		limiter:       deps.Limiter,
		recorder:      deps.Recorder,
		version:       deps.Version,
		router:        mux.NewRouter(),
		startedAt:     time.Now(),
		defaults:      defaults,
		maxTextLength: cfg.Anonymizer.MaxTextLength,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	dashboard := web.DashboardHandler(s.config.Server.DashboardPath)
	s.router.HandleFunc("/", dashboard).Methods(http.MethodGet)
	s.router.HandleFunc("/dashboard", dashboard).Methods(http.MethodGet)

	// the upgrade needs the raw ResponseWriter, so no logging wrapper here
	s.router.HandleFunc(s.hubPath(), s.hub.HandleWebSocket).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.corsMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/restore", s.handleRestore).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet, http.MethodOptions)
}

func (s *Server) hubPath() string {
	if s.config.WebSocket.Path != "" {
		return s.config.WebSocket.Path
	}
	return "/ws"
}

// Handler returns the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the background loops and serves HTTP until Stop is called.
// The loops exit when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting PII anonymizer server",
		zap.Int("port", s.config.Server.Port),
		zap.String("version", s.version),
		zap.Bool("sentiment_enabled", s.scorer != nil),
		zap.String("history_backend", s.config.History.Backend),
	)

	go s.hub.Run(ctx)
	go s.limiter.Run(ctx)
	go s.statusLoop(ctx)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping PII anonymizer server")
	return s.server.Shutdown(ctx)
}

// ApplyConfig swaps the hot-reloadable settings: anonymization defaults and
// the text length cap. Everything else needs a restart.
func (s *Server) ApplyConfig(cfg *config.Config) error {
	defaults := anonymizer.ConfigFromMap(cfg.Anonymizer.Defaults)
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("invalid anonymization defaults: %w", err)
	}

	s.mu.Lock()
	s.defaults = defaults
	s.maxTextLength = cfg.Anonymizer.MaxTextLength
	s.mu.Unlock()

	s.logger.Info("Anonymization defaults reloaded", zap.Any("defaults", cfg.Anonymizer.Defaults))
	return nil
}

func (s *Server) settings() (anonymizer.Config, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults, s.maxTextLength
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.BroadcastEvent(s.statusEvent())
		}
	}
}

func (s *Server) statusEvent() websocket.Event {
	return websocket.Event{
		Type:      websocket.EventTypeSystemStatus,
		Timestamp: time.Now(),
		Data: websocket.SystemStatusEvent{
			Status:           "healthy",
			Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
			TotalRequests:    s.totalRequests.Load(),
			TotalEntities:    s.totalEntities.Load(),
			ConnectedClients: s.hub.ClientCount(),
		},
	}
}
