// Package provider implements the HTTP client for the upstream tool
// platform. It satisfies connection.Provider, translating platform REST
// responses into the engine's types and platform failures into the engine's
// error taxonomy.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arcline/toolgate/pkg/connection"
)

// Config configures the platform client.
type Config struct {
	// BaseURL is the platform API root, e.g. https://backend.example.com/api/v3.
	BaseURL string

	// APIKey authenticates this server to the platform.
	APIKey string

	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
}

// Client talks to the tool platform's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a platform client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider API key is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Wire shapes for the platform API.

type authConfigResponse struct {
	ID          string `json:"id"`
	ToolkitSlug string `json:"toolkit_slug"`
	AuthScheme  string `json:"auth_scheme"`
}

type toolkitResponse struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	AuthFields []struct {
		Name     string `json:"name"`
		Required bool   `json:"required"`
		Default  string `json:"default"`
	} `json:"auth_fields"`
}

type connectedAccountResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ToolkitSlug string    `json:"toolkit_slug"`
	AuthScheme  string    `json:"auth_scheme"`
	Status      string    `json:"status"`
	RedirectURL string    `json:"redirect_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type initiateRequest struct {
	AuthConfigID string            `json:"auth_config_id"`
	UserID       string            `json:"user_id"`
	AuthScheme   string            `json:"auth_scheme"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// GetAuthConfig fetches an auth config by ID.
func (c *Client) GetAuthConfig(ctx context.Context, id string) (*connection.AuthConfig, error) {
	var body authConfigResponse
	if err := c.do(ctx, http.MethodGet, "/auth_configs/"+url.PathEscape(id), nil, &body); err != nil {
		return nil, err
	}
	return &connection.AuthConfig{
		ID:          body.ID,
		ToolkitSlug: body.ToolkitSlug,
		AuthScheme:  connection.AuthScheme(body.AuthScheme),
	}, nil
}

// GetToolkit fetches toolkit metadata, including declared auth fields.
func (c *Client) GetToolkit(ctx context.Context, slug string) (*connection.ToolkitInfo, error) {
	var body toolkitResponse
	if err := c.do(ctx, http.MethodGet, "/toolkits/"+url.PathEscape(slug), nil, &body); err != nil {
		return nil, err
	}
	info := &connection.ToolkitInfo{Slug: body.Slug, Name: body.Name}
	for _, f := range body.AuthFields {
		info.AuthFields = append(info.AuthFields, connection.AuthField{
			Name:     f.Name,
			Required: f.Required,
			Default:  f.Default,
		})
	}
	return info, nil
}

// InitiateConnection creates a connected account on the platform.
func (c *Client) InitiateConnection(ctx context.Context, req connection.ConnectRequest) (*connection.Connection, error) {
	payload := initiateRequest{
		AuthConfigID: req.AuthConfigID,
		UserID:       req.UserID,
		AuthScheme:   string(req.AuthScheme),
		Fields:       req.Fields,
	}
	var body connectedAccountResponse
	if err := c.do(ctx, http.MethodPost, "/connected_accounts", payload, &body); err != nil {
		return nil, err
	}
	conn := toConnection(body)
	return &conn, nil
}

// ListConnections lists a user's connected accounts.
func (c *Client) ListConnections(ctx context.Context, userID string) ([]connection.Connection, error) {
	var body struct {
		Items []connectedAccountResponse `json:"items"`
	}
	path := "/connected_accounts?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	conns := make([]connection.Connection, 0, len(body.Items))
	for _, item := range body.Items {
		conns = append(conns, toConnection(item))
	}
	return conns, nil
}

// DeleteConnection removes a connected account.
func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/connected_accounts/"+url.PathEscape(id), nil, nil)
}

func toConnection(r connectedAccountResponse) connection.Connection {
	return connection.Connection{
		ID:          r.ID,
		UserID:      r.UserID,
		ToolkitSlug: r.ToolkitSlug,
		AuthScheme:  connection.AuthScheme(r.AuthScheme),
		Status:      connection.Status(r.Status),
		RedirectURL: r.RedirectURL,
		CreatedAt:   r.CreatedAt,
	}
}

// do performs one platform request. A 404 maps to connection.ErrNotFound;
// any other non-2xx status maps to *connection.ProviderError carrying the
// platform's message.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling platform: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return connection.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &connection.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the platform's error message, falling back to the
// raw body when the payload is not structured.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "platform request failed"
	}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// Verify interface compliance.
var _ connection.Provider = (*Client)(nil)
