// Package httpapi is the External Interface Adapter (§6): a Go 1.22+
// net/http.ServeMux exposing the content store, Workspace Engine, Link
// Parser, and AI Streaming Bridge as a JSON + SSE HTTP API, the same
// struct-per-resource-handler shape the teacher uses in its own
// internal/http package.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flabwick/papyrus/internal/aistream"
	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/factory"
	"github.com/flabwick/papyrus/internal/linkgraph"
	"github.com/flabwick/papyrus/internal/store"
	"github.com/flabwick/papyrus/internal/sync"
	"github.com/flabwick/papyrus/internal/workspace"
)

// Server holds every service-layer dependency the HTTP handlers call into,
// and assembles them onto one *http.ServeMux.
type Server struct {
	cfg     *config.Config
	stores  *store.Stores
	content *contentstore.Store
	factory *factory.Factory
	engine  *workspace.Engine
	graph   *linkgraph.Graph
	bridge  *aistream.Bridge
	recon   *sync.Reconciler

	limiters *limiterRegistry

	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer wires the Server from its constituent services. recon and
// bridge may be nil: a deployment with AI streaming disabled passes a nil
// bridge, and /v1/libraries/{id}/sync responds with a ProcessingError
// without a Reconciler.
func NewServer(cfg *config.Config, stores *store.Stores, content *contentstore.Store, fact *factory.Factory, engine *workspace.Engine, graph *linkgraph.Graph, bridge *aistream.Bridge, recon *sync.Reconciler) *Server {
	return &Server{
		cfg:      cfg,
		stores:   stores,
		content:  content,
		factory:  fact,
		engine:   engine,
		graph:    graph,
		bridge:   bridge,
		recon:    recon,
		limiters: newLimiterRegistry(cfg.Server.RateLimitPerMin),
	}
}

// BuildMux creates and caches the HTTP mux with every resource's routes
// registered, mirroring the teacher's gateway.Server.BuildMux pattern.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	(&authHandler{s: s}).RegisterRoutes(mux)
	(&librariesHandler{s: s}).RegisterRoutes(mux)
	(&pagesHandler{s: s}).RegisterRoutes(mux)
	(&filesHandler{s: s}).RegisterRoutes(mux)
	(&workspacesHandler{s: s}).RegisterRoutes(mux)
	(&streamHandler{s: s}).RegisterRoutes(mux)

	s.mux = mux
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully within a 10-second grace period.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.BuildMux(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("httpapi.listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
