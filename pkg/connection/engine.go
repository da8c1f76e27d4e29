package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Engine drives the connection lifecycle against an injected Provider. It
// holds no per-request state; the suspension between INITIATED and ACTIVE in
// the redirect flow spans an out-of-band human action and no lock.
type Engine struct {
	provider  Provider
	fallbacks map[string]string
}

// NewEngine creates a connection engine. fallbacks maps toolkit slugs to
// server-held API keys used when the caller supplies none; nil disables
// fallback credentials.
func NewEngine(provider Provider, fallbacks map[string]string) *Engine {
	return &Engine{provider: provider, fallbacks: fallbacks}
}

// HasFallback reports whether a server-held credential is configured for the
// toolkit, enabling auto-connection without caller-supplied secrets.
func (e *Engine) HasFallback(toolkitSlug string) bool {
	return e.fallbacks[toolkitSlug] != ""
}

// InitiateAPIKey establishes a connection synchronously from an API key. The
// caller may omit apiKey when a server-held fallback is configured for the
// toolkit. If the user already holds an ACTIVE connection for the toolkit it
// is returned unchanged with IsExisting set, and no duplicate is created.
func (e *Engine) InitiateAPIKey(ctx context.Context, userID, authConfigID, apiKey string, extra map[string]string) (*InitiateResult, error) {
	cfg, err := e.provider.GetAuthConfig(ctx, authConfigID)
	if err != nil {
		return nil, fmt.Errorf("resolving auth config %s: %w", authConfigID, err)
	}

	if existing, err := e.findActive(ctx, userID, cfg.ToolkitSlug); err != nil {
		return nil, err
	} else if existing != nil {
		return &InitiateResult{Connection: *existing, IsExisting: true}, nil
	}

	if apiKey == "" {
		apiKey = e.fallbacks[cfg.ToolkitSlug]
	}
	if apiKey == "" {
		return nil, &MissingCredentialError{ToolkitSlug: cfg.ToolkitSlug, Field: genericKeyField}
	}

	info, err := e.provider.GetToolkit(ctx, cfg.ToolkitSlug)
	if err != nil {
		return nil, fmt.Errorf("fetching toolkit metadata for %s: %w", cfg.ToolkitSlug, err)
	}

	fields, err := buildAPIKeyFields(cfg.ToolkitSlug, apiKey, extra, info.AuthFields)
	if err != nil {
		return nil, err
	}

	conn, err := e.provider.InitiateConnection(ctx, ConnectRequest{
		UserID:       userID,
		AuthConfigID: authConfigID,
		AuthScheme:   SchemeAPIKey,
		Fields:       fields,
	})
	if err != nil {
		slog.Error("api key connection rejected",
			"toolkit", cfg.ToolkitSlug,
			"user_id", userID,
			"fields", fieldNames(fields),
			"error", err)
		return nil, err
	}

	slog.Info("connection established",
		"toolkit", cfg.ToolkitSlug,
		"user_id", userID,
		"connection_id", conn.ID,
		"status", conn.Status)
	return &InitiateResult{Connection: *conn}, nil
}

// InitiateRedirect creates an INITIATED connection and returns the redirect
// URL the caller must complete out-of-band. The engine does not await
// completion; a later provider callback flips the state to ACTIVE or FAILED.
func (e *Engine) InitiateRedirect(ctx context.Context, userID, authConfigID string) (*InitiateResult, error) {
	cfg, err := e.provider.GetAuthConfig(ctx, authConfigID)
	if err != nil {
		return nil, fmt.Errorf("resolving auth config %s: %w", authConfigID, err)
	}

	if existing, err := e.findActive(ctx, userID, cfg.ToolkitSlug); err != nil {
		return nil, err
	} else if existing != nil {
		return &InitiateResult{Connection: *existing, IsExisting: true}, nil
	}

	conn, err := e.provider.InitiateConnection(ctx, ConnectRequest{
		UserID:       userID,
		AuthConfigID: authConfigID,
		AuthScheme:   SchemeOAuth,
	})
	if err != nil {
		slog.Error("redirect connection rejected",
			"toolkit", cfg.ToolkitSlug,
			"user_id", userID,
			"error", err)
		return nil, err
	}

	slog.Info("connection initiated",
		"toolkit", cfg.ToolkitSlug,
		"user_id", userID,
		"connection_id", conn.ID)
	return &InitiateResult{Connection: *conn}, nil
}

// List returns the user's connections ordered by toolkit slug. Only ACTIVE
// entries are authoritative for authorization decisions.
func (e *Engine) List(ctx context.Context, userID string) ([]Connection, error) {
	conns, err := e.provider.ListConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].ToolkitSlug < conns[j].ToolkitSlug })
	return conns, nil
}

// Revoke deletes a connection. Revoking an unknown or already-revoked
// connection returns ErrNotFound, never a generic failure.
func (e *Engine) Revoke(ctx context.Context, connectionID string) error {
	if err := e.provider.DeleteConnection(ctx, connectionID); err != nil {
		return fmt.Errorf("revoking connection %s: %w", connectionID, err)
	}
	slog.Info("connection revoked", "connection_id", connectionID)
	return nil
}

// findActive returns the user's ACTIVE connection for a toolkit, or nil.
func (e *Engine) findActive(ctx context.Context, userID, toolkitSlug string) (*Connection, error) {
	conns, err := e.provider.ListConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checking existing connections: %w", err)
	}
	for i := range conns {
		if conns[i].ToolkitSlug == toolkitSlug && conns[i].Status == StatusActive {
			return &conns[i], nil
		}
	}
	return nil, nil
}
