package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"solden-marketplace-service/internal/adapters/ws"
	"solden-marketplace-service/internal/auth"
	"solden-marketplace-service/internal/config"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the HTTP front door: the WebSocket upgrade endpoints, the few
// REST bootstrap routes the client calls before opening a socket, health,
// metrics and (outside S3 deployments) the local media files.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config       *config.Config
	Gate         *auth.Gate
	Gateway      *ws.Gateway
	ChatService  inbound.ChatService
	CategoryRepo outbound.CategoryRepository
	Logger       zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	h := &handlers{
		gate:         params.Gate,
		chatService:  params.ChatService,
		categoryRepo: params.CategoryRepo,
		logger:       params.Logger.With().Str("component", "rest").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/ws/auctions", params.Gateway.HandleAuctions)
	r.Get("/ws/chat", params.Gateway.HandleChat)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.listCategories)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/chats/check/{sellerId}", h.checkConnection)
			r.Get("/chats/messages/{connectionId}", h.fetchMessages)
		})
	})

	// S3 deployments serve media straight from the bucket.
	if params.Config.Storage.S3Bucket == "" {
		fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(params.Config.Storage.Root)))
		r.Handle("/media/*", fileServer)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok", "service": "marketplace"}`))
}
