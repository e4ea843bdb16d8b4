// Package server wires a loaded config.Config into a running proxy:
// a routing.Registry of providers/channels, a transform.Registry of
// built-ins, a core.BearerAuthenticator of tenants, the middleware
// chain, and one internal/ingress.Handler per wire dialect (spec.md
// §6), mounted behind an *http.Server with the teacher's
// signal-driven graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/monoize-go/monoize/internal/config"
	"github.com/monoize-go/monoize/internal/core"
	"github.com/monoize-go/monoize/internal/ingress"
	"github.com/monoize-go/monoize/internal/middleware"
	"github.com/monoize-go/monoize/internal/routing"
	"github.com/monoize-go/monoize/internal/transform"
)

// dialectRoutes binds each client-facing wire dialect to the endpoint
// path it's mounted at, per spec.md §6.
var dialectRoutes = map[string]routing.Dialect{
	"/v1/responses":        routing.DialectResponses,
	"/v1/chat/completions": routing.DialectChatCompletion,
	"/v1/messages":         routing.DialectMessages,
	"/v1/grok/responses":   routing.DialectGrok,
}

type Server struct {
	config      *config.Manager
	logger      *slog.Logger
	registry    *routing.Registry
	server      *http.Server
	probeCancel context.CancelFunc
}

func New(configManager *config.Manager, logger *slog.Logger) *Server {
	return &Server{config: configManager, logger: logger, registry: routing.NewRegistry()}
}

func (s *Server) Start() error {
	cfg := s.config.Get()
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	providers, err := cfg.ToRegistryProviders()
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}

	// Providers flow through core.ConfigStore rather than straight into
	// the registry, so a persisted-config deployment can later swap in
	// its own ConfigStore without touching this wiring.
	configStore := core.NewMemoryConfigStore()
	configStore.SetProviders(providers)
	storedProviders, err := configStore.Providers(context.Background())
	if err != nil {
		return fmt.Errorf("read provider catalogue: %w", err)
	}
	s.registry.SetProviders(storedProviders)

	httpClient := &http.Client{Timeout: time.Duration(cfg.Runtime.RequestTimeoutMs) * time.Millisecond}
	dispatchCfg := cfg.Runtime.DispatchConfig(httpClient)

	authenticator := core.NewBearerAuthenticator()
	for token, principal := range cfg.ToPrincipals() {
		authenticator.Register(token, principal)
	}

	transforms := transform.NewRegistry()
	mwSet := middleware.NewSet(authenticator, s.logger, middleware.DefaultBlockRules()...)

	mux := s.setupRoutes(mwSet, transforms, dispatchCfg)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	probeCtx, cancel := context.WithCancel(context.Background())
	s.probeCancel = cancel
	go routing.RunActiveProbes(probeCtx, s.registry, httpClient, cfg.Runtime.ActiveProbeConfig())

	s.logger.Info("starting server", "address", addr, "providers", len(providers))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.logger.Info("server is shutting down...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server exited")
	return nil
}

func (s *Server) Stop() error {
	if s.probeCancel != nil {
		s.probeCancel()
	}
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes(mwSet middleware.Set, transforms *transform.Registry, dispatchCfg routing.DispatchConfig) *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := ingress.NewHealthHandler(s.registry)
	mux.Handle("/health", mwSet.HealthChain().Handler(healthHandler))

	for path, dialect := range dialectRoutes {
		h := ingress.New(dialect, s.registry, transforms, dispatchCfg, s.logger)
		mux.Handle(path, mwSet.DefaultChain().Handler(h))
	}

	// Gemini's generateContent path carries the model in the URL rather
	// than the JSON body, so it is mounted on a prefix and the model is
	// recovered by ingress.Handler from the path itself.
	geminiHandler := ingress.New(routing.DialectGemini, s.registry, transforms, dispatchCfg, s.logger)
	mux.Handle("/v1beta/models/", mwSet.DefaultChain().Handler(geminiHandler))

	return mux
}
