// Package adminapi exposes a debug/ops HTTP surface over an Orchestrator:
// read-only node/player introspection plus two bearer-guarded mutating
// routes, force-migrate and snapshot. It is not a metrics-serving endpoint.
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ryxu-xo/euralink/internal/orchestrator"
	"github.com/ryxu-xo/euralink/logger"
)

// Config controls the bind address and the bearer secret guarding mutating
// routes.
type Config struct {
	Addr      string
	JWTSecret string
}

// Server wraps an http.Server routed by gorilla/mux over one Orchestrator.
type Server struct {
	cfg    Config
	orch   *orchestrator.Orchestrator
	store  orchestrator.SnapshotStore
	region string

	httpServer *http.Server
}

// New builds an admin API server. store may be nil; the snapshot routes
// then return 503.
func New(cfg Config, orch *orchestrator.Orchestrator, store orchestrator.SnapshotStore, defaultRegion string) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":9091"
	}

	s := &Server{cfg: cfg, orch: orch, store: store, region: defaultRegion}

	router := mux.NewRouter()
	router.Use(requestLogMiddleware)
	router.HandleFunc("/nodes", s.handleListNodes).Methods(http.MethodGet)
	router.HandleFunc("/players", s.handleListPlayers).Methods(http.MethodGet)

	guarded := router.NewRoute().Subrouter()
	guarded.Use(bearerAuthMiddleware(cfg.JWTSecret))
	guarded.HandleFunc("/players/{guildId}/migrate", s.handleForceMigrate).Methods(http.MethodPost)
	guarded.HandleFunc("/snapshot/save", s.handleSnapshotSave).Methods(http.MethodPost)
	guarded.HandleFunc("/snapshot/load", s.handleSnapshotLoad).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins serving in the background. Call Shutdown to stop it.
func (s *Server) Start() {
	go func() {
		logger.Info("adminapi: listening", logger.String("addr", s.cfg.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("adminapi: server exited", logger.ErrorField(err))
		}
	}()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
