package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/channels"
	"github.com/agrodesk/agrodesk/internal/engine"
	"github.com/agrodesk/agrodesk/internal/ticketing"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Server is the agrodesk HTTP surface: the chat endpoint in front of the
// decision engine, the work-order API, and the channel webhooks.
type Server struct {
	cfg        Config
	engine     channels.TurnProcessor
	orders     *ticketing.Store
	slack      *channels.SlackHandler
	webhook    *channels.WebhookHandler
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server. orders, slack, and webhook are optional; their
// routes are mounted only when present.
func New(cfg Config, eng channels.TurnProcessor, orders *ticketing.Store,
	slack *channels.SlackHandler, webhook *channels.WebhookHandler, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		orders:  orders,
		slack:   slack,
		webhook: webhook,
		logger:  logger,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/runbooks", s.handleRunbooks)

	if s.orders != nil {
		ticketing.RegisterRoutes(r, s.orders)
	}
	if s.slack != nil && s.webhook != nil {
		channels.RegisterRoutes(r, s.slack, s.webhook)
	}

	return r
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	res := s.engine.Process(r.Context(), req.Message, req.SessionID)

	s.logger.Info("chat turn served",
		zap.String("session_id", res.SessionID),
		zap.String("flow_state", string(res.FlowState)),
		zap.Float64("elapsed_ms", res.ElapsedMS))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleRunbooks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": engine.RunbookCatalog()})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("agrodesk server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
