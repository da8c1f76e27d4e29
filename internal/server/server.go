// Package server wires the gateway together: configuration, stores,
// connection engine, authorization facade, and the HTTP surface.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arcline/toolgate/pkg/agent"
	agentpg "github.com/arcline/toolgate/pkg/agent/postgres"
	"github.com/arcline/toolgate/pkg/auth"
	"github.com/arcline/toolgate/pkg/authz"
	"github.com/arcline/toolgate/pkg/connection"
	"github.com/arcline/toolgate/pkg/database/migrate"
	"github.com/arcline/toolgate/pkg/health"
	"github.com/arcline/toolgate/pkg/httpapi"
	"github.com/arcline/toolgate/pkg/mcpgate"
	"github.com/arcline/toolgate/pkg/preference"
	prefpg "github.com/arcline/toolgate/pkg/preference/postgres"
	"github.com/arcline/toolgate/pkg/provider"
	"github.com/arcline/toolgate/pkg/registry"
	registrypg "github.com/arcline/toolgate/pkg/registry/postgres"
	"github.com/arcline/toolgate/pkg/toolkit"
)

// Version is the gateway version, overridable at build time.
var Version = "dev"

// Server is the assembled gateway.
type Server struct {
	cfg     *Config
	http    *http.Server
	db      *sql.DB
	checker *health.Checker

	// Facade is exported for MCP transports that mount the gate middleware.
	Facade *authz.Facade
}

// New assembles a Server from configuration.
func New(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, checker: health.NewChecker()}

	tools, prefs, agents, err := s.buildStores(cfg)
	if err != nil {
		return nil, err
	}

	platformClient, err := provider.NewClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider client: %w", err)
	}
	engine := connection.NewEngine(platformClient, cfg.Provider.FallbackKeys)

	s.Facade = authz.NewFacade(tools, prefs, engine)

	authn, err := buildAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	api := httpapi.NewHandler(httpapi.Deps{
		Tools:    tools,
		Prefs:    prefs,
		Agents:   agents,
		Toolkits: toolkit.NewAggregator(tools, prefs),
		Engine:   engine,
	}, auth.Middleware(authn))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", api)
	mux.HandleFunc("GET /healthz", s.checker.LivenessHandler())
	mux.HandleFunc("GET /readyz", s.checker.ReadinessHandler())

	s.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}
	return s, nil
}

// buildStores creates the configured persistence backends.
func (s *Server) buildStores(cfg *Config) (registry.Store, preference.Store, agent.Store, error) {
	if cfg.Database.Backend == "memory" {
		return registry.NewMemoryStore(), preference.NewMemoryStore(), agent.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	s.db = db
	s.checker.AddProbe("database", db.PingContext)

	if cfg.Database.AutoMigrate {
		if err := migrate.Run(db); err != nil {
			return nil, nil, nil, err
		}
	}
	return registrypg.New(db), prefpg.New(db), agentpg.New(db), nil
}

// buildAuthenticator assembles the configured credential validators.
func buildAuthenticator(cfg AuthConfig) (auth.Authenticator, error) {
	var chain []auth.Authenticator

	if cfg.JWT.Issuer != "" {
		jwtAuth, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Issuer:     cfg.JWT.Issuer,
			SigningKey: []byte(cfg.JWT.SigningKey),
		})
		if err != nil {
			return nil, fmt.Errorf("configuring jwt auth: %w", err)
		}
		chain = append(chain, jwtAuth)
	}

	if len(cfg.APIKeys) > 0 {
		keys := make([]auth.APIKey, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, auth.APIKey{Name: k.Name, Hash: k.Hash, Roles: k.Roles})
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{Keys: keys}))
	}

	if len(chain) == 1 {
		return chain[0], nil
	}
	return auth.NewChainedAuthenticator(chain...), nil
}

// GateMiddleware returns the MCP middleware pair enforcing tool
// availability on an MCP server mounted alongside the REST surface.
func (s *Server) GateMiddleware() (visibility, callGate mcp.Middleware) {
	return mcpgate.VisibilityMiddleware(s.Facade), mcpgate.CallGateMiddleware(s.Facade)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then drains.
func (s *Server) Run(ctx context.Context) error {
	s.checker.SetReady()
	slog.Info("gateway listening",
		"name", s.cfg.Server.Name,
		"address", s.cfg.Server.Address,
		"backend", s.cfg.Database.Backend,
		"version", Version)

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.checker.SetDraining()
	slog.Info("shutting down", "timeout", s.cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}
