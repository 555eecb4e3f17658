// Package server assembles the HTTP API: routes, middleware, and the
// WebSocket hub.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/misionbonos/bondgame/internal/server/handler"
	"github.com/misionbonos/bondgame/internal/server/middleware"
	"github.com/misionbonos/bondgame/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	ModeratorKey string // if empty, moderator endpoints are open
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Games    *handler.GameHandler
	Scenario *handler.ScenarioHandler
	Teams    *handler.TeamHandler
	Orders   *handler.OrderHandler
}

// Server is the HTTP + WebSocket API server for the game.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. Moderator
// lifecycle endpoints sit behind the auth middleware; team and read
// endpoints are open.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mod := middleware.Auth(cfg.ModeratorKey)

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Game state, open to everyone in the room.
	mux.HandleFunc("GET /api/games", handlers.Games.ListGames)
	mux.HandleFunc("GET /api/games/{code}", handlers.Games.GetGame)
	mux.HandleFunc("GET /api/games/{code}/bonds", handlers.Games.ListBonds)
	mux.HandleFunc("GET /api/games/{code}/events", handlers.Games.ListEvents)
	mux.HandleFunc("GET /api/games/{code}/quotes", handlers.Games.GetQuotes)
	mux.HandleFunc("GET /api/games/{code}/leaderboard", handlers.Games.Leaderboard)
	mux.HandleFunc("GET /api/games/{code}/ranking", handlers.Games.Ranking)

	// Moderator lifecycle endpoints.
	mux.Handle("PUT /api/games/{code}/config", mod(http.HandlerFunc(handlers.Games.UpdateConfig)))
	mux.Handle("POST /api/games/{code}/scenario", mod(http.HandlerFunc(handlers.Scenario.Upload)))
	mux.Handle("POST /api/games/{code}/publish", mod(http.HandlerFunc(handlers.Games.Publish)))
	mux.Handle("POST /api/games/{code}/close", mod(http.HandlerFunc(handlers.Games.Close)))
	mux.Handle("POST /api/games/{code}/advance", mod(http.HandlerFunc(handlers.Games.Advance)))
	mux.Handle("POST /api/games/{code}/finalize", mod(http.HandlerFunc(handlers.Games.Finalize)))
	mux.Handle("GET /api/games/{code}/audit", mod(http.HandlerFunc(handlers.Games.AuditTrail)))

	// Team endpoints.
	mux.HandleFunc("POST /api/games/{code}/teams", handlers.Teams.Register)
	mux.HandleFunc("POST /api/games/{code}/teams/{name}/login", handlers.Teams.Login)
	mux.HandleFunc("GET /api/games/{code}/teams/{name}", handlers.Teams.GetTeam)

	// Order endpoints.
	mux.HandleFunc("POST /api/games/{code}/orders", handlers.Orders.Submit)
	mux.HandleFunc("GET /api/games/{code}/orders", handlers.Orders.List)

	// WebSocket feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
