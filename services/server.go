package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/krshsl/brandcast/repository"
	ws "github.com/krshsl/brandcast/websocket"
)

const lockTTL = 3 * time.Minute

// Server holds all server dependencies
type Server struct {
	config   *Config
	store    Store
	db       *gorm.DB
	upgrader websocket.Upgrader

	locker      Locker
	closeLocker func() error
	wsHub       *ws.Hub
	owners      *OwnerIdentifier
	publisher   *PublishingOrchestrator

	interviewEndpoints *InterviewEndpoints
	strategyEndpoints  *StrategyEndpoints
	contentEndpoints   *ContentEndpoints
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// OpenStore connects to postgres when a database URL is configured and falls back to memory otherwise.
// The returned db is nil for the in-memory store.
func OpenStore(cfg DatabaseConfig) (Store, *gorm.DB, error) {
	if cfg.URL == "" {
		slog.Warn("Database URL not configured, using in-memory store")
		return repository.NewMemoryRepository(), nil, nil
	}

	db, err := repository.Open(repository.Options{
		URL:          cfg.URL,
		LogLevel:     cfg.LogLevel,
		MaxIdleConns: cfg.MaxIdleConns,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Connected to database")
	return repository.NewGORMRepository(db), db, nil
}

// SetStore sets the persistence layer; db is kept only so Close can release the pool
func (s *Server) SetStore(store Store, db *gorm.DB) {
	s.store = store
	s.db = db
}

// InitializeServices builds every collaborator from config. Missing credentials degrade features
// rather than failing startup: no Gemini key means placeholder outputs, no aggregator key means simulation.
func (s *Server) InitializeServices(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}

	var model LanguageModel
	var transcriber Transcriber
	if s.config.AI.GeminiAPIKey != "" {
		gemini, err := NewGeminiService(ctx, s.config.AI.GeminiAPIKey, s.config.AI.Model, s.config.AI.CompletionTimeout, s.config.AI.TranscriptionTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize gemini: %w", err)
		}
		model, transcriber = gemini, gemini
		slog.Info("Gemini service initialized", "model", s.config.AI.Model)
	} else {
		slog.Warn("Gemini API key not configured, model-backed features will return placeholders")
	}

	if s.config.Redis.URL != "" {
		redisLocker, err := NewRedisLockerFromURL(ctx, s.config.Redis.URL, lockTTL)
		if err != nil {
			return err
		}
		s.locker = redisLocker
		s.closeLocker = redisLocker.Close
		slog.Info("Redis lock initialized")
	} else {
		s.locker = NewKeyedMutex()
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run(ctx)

	var generator QuestionGenerator
	if model != nil {
		generator = NewLLMQuestionGenerator(model)
		slog.Info("Dynamic question generation available", "default", s.config.AI.DynamicQuestions)
	}
	engine := NewInterviewEngine(s.store, NewQuestionSelector(generator), transcriber, NewInterviewAnalyzer(model), s.locker, s.wsHub)
	engine.SetLanguage(s.config.AI.TranscriptionLanguage)

	var speaker *QuestionSpeaker
	if s.config.Speech.ElevenLabsKey != "" {
		voiceID := PickInterviewerVoice(s.config.Speech.VoiceName, s.config.Speech.VoiceGender)
		speaker = NewQuestionSpeaker(NewElevenLabsService(s.config.Speech.ElevenLabsKey, voiceID), NewAudioCache(s.config.Speech.CacheDir))
		slog.Info("ElevenLabs service initialized", "voice_id", voiceID)
	}

	aggregator := NewAggregatorClient(s.config.Aggregator.BaseURL, s.config.Aggregator.APIKey, s.config.Aggregator.Timeout)
	s.publisher = NewPublishingOrchestrator(s.store, aggregator, s.locker, s.wsHub)
	if s.publisher.Simulated() {
		slog.Warn("Aggregator API key not configured, publishing runs in simulation mode")
	}

	strategies := NewStrategyService(s.store, s.store, NewStrategySynthesizer(model), s.locker, s.wsHub)
	s.owners = NewOwnerIdentifier(s.store, s.config.Auth.JWTSecret, s.config.Auth.DefaultOwnerID)
	timeouts := NewInterviewTimeoutService(engine, s.config.Server.InterviewIdleTimeout)
	go timeouts.Run(ctx)
	s.interviewEndpoints = NewInterviewEndpoints(engine, speaker, timeouts, s.config.AI.DynamicQuestions)
	s.strategyEndpoints = NewStrategyEndpoints(strategies, s.store)
	s.contentEndpoints = NewContentEndpoints(
		NewContentGenerator(s.store, s.store, model, s.locker),
		NewContentService(s.store, s.locker),
		s.publisher,
		strategies,
	)
	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		r.Group(func(r chi.Router) {
			r.Use(s.owners.Middleware)
			r.Get("/events", s.websocketHandlerFunc)
			s.interviewEndpoints.RegisterRoutes(r)
			s.strategyEndpoints.RegisterRoutes(r)
			s.contentEndpoints.RegisterRoutes(r)
		})
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", port, "simulated_publishing", s.publisher.Simulated())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
	return nil
}

// Close releases the database pool and the redis client
func (s *Server) Close() {
	if s.closeLocker != nil {
		if err := s.closeLocker(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}
	if err := repository.Close(s.db); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "memory"

	if s.db != nil {
		dbStatus = "up"
		if err := s.store.Ping(r.Context()); err != nil {
			slog.Error("Database ping failed", "error", err)
			dbStatus = "down"
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status, "database": dbStatus})
	slog.Debug("Health check", "status", status, "database", dbStatus)
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API v1", "version": "1.0.0"})
}

// websocketHandlerFunc streams lifecycle events for the request's owner
func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := s.wsHub.RegisterClient(conn, ownerID)
	slog.Info("WebSocket connection established", "user_id", ownerID, "client_id", client.ID)

	go client.WritePump()
	client.ReadPump()
}
