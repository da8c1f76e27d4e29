// Package connection manages the lifecycle of provider credentials. A
// connection links one user to one toolkit's provider and moves through
// INITIATED to ACTIVE or FAILED; an ACTIVE connection can only leave that
// state by revocation. Only ACTIVE connections count for authorization.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is a connection lifecycle state.
type Status string

// Connection lifecycle states. A REVOKED connection is terminal; the pair can
// reconnect only through a fresh initiation.
const (
	StatusInitiated Status = "INITIATED"
	StatusActive    Status = "ACTIVE"
	StatusFailed    Status = "FAILED"
	StatusRevoked   Status = "REVOKED"
)

// AuthScheme identifies how a connection is established.
type AuthScheme string

const (
	// SchemeAPIKey establishes the connection synchronously from a key.
	SchemeAPIKey AuthScheme = "API_KEY"

	// SchemeOAuth returns a redirect URL; completion happens out-of-band.
	SchemeOAuth AuthScheme = "OAUTH"
)

// Connection is a provider-held credential record, referenced not owned.
type Connection struct {
	ID          string     `json:"connection_id"`
	UserID      string     `json:"user_id"`
	ToolkitSlug string     `json:"toolkit_slug"`
	Status      Status     `json:"status"`
	AuthScheme  AuthScheme `json:"auth_scheme"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuthConfig is the provider-side description of how a toolkit authenticates.
type AuthConfig struct {
	ID          string     `json:"id"`
	ToolkitSlug string     `json:"toolkit_slug"`
	AuthScheme  AuthScheme `json:"auth_scheme"`
}

// AuthField is one credential field the provider declares for a toolkit.
type AuthField struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// ToolkitInfo is provider metadata about a toolkit's credential fields.
type ToolkitInfo struct {
	Slug       string      `json:"slug"`
	Name       string      `json:"name"`
	AuthFields []AuthField `json:"auth_fields"`
}

// ConnectRequest is the payload submitted to the provider to create a
// connection.
type ConnectRequest struct {
	UserID       string
	AuthConfigID string
	AuthScheme   AuthScheme
	Fields       map[string]string
}

// InitiateResult is the outcome of an initiation call. IsExisting reports
// that an ACTIVE connection already covered the (user, toolkit) pair and no
// new credential was created.
type InitiateResult struct {
	Connection Connection `json:"connection"`
	IsExisting bool       `json:"is_existing"`
}

// Provider is the external credential broker. It is injected so tests can
// substitute a fake; the engine never reaches for a process-global client.
type Provider interface {
	// GetAuthConfig resolves an auth config. Returns ErrNotFound if unknown.
	GetAuthConfig(ctx context.Context, authConfigID string) (*AuthConfig, error)

	// GetToolkit returns credential field metadata for a toolkit.
	GetToolkit(ctx context.Context, toolkitSlug string) (*ToolkitInfo, error)

	// InitiateConnection submits a connect request. Provider-side rejection
	// is returned as a *ProviderError.
	InitiateConnection(ctx context.Context, req ConnectRequest) (*Connection, error)

	// ListConnections returns all connections for a user.
	ListConnections(ctx context.Context, userID string) ([]Connection, error)

	// DeleteConnection revokes a connection. Returns ErrNotFound if unknown.
	DeleteConnection(ctx context.Context, connectionID string) error
}

// ErrNotFound indicates an unknown auth config or connection ID.
var ErrNotFound = errors.New("not found")

// MissingCredentialError indicates a required credential field was neither
// supplied by the caller nor available from a fallback or field default.
type MissingCredentialError struct {
	ToolkitSlug string
	Field       string
}

// Error implements the error interface.
func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("toolkit %s requires credential field %q", e.ToolkitSlug, e.Field)
}

// ProviderError carries a provider-side rejection through to the caller with
// the provider's message intact, never masked as an internal failure.
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected request (%d): %s", e.StatusCode, e.Message)
}

// ClientCorrectable reports whether the rejection signals a configuration or
// credential problem the caller can fix, as opposed to a provider outage.
func (e *ProviderError) ClientCorrectable() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
