// Package mcpgate puts the availability rules in front of an MCP server:
// tools/list shows only tools callable by the session's (user, agent) pair,
// and tools/call re-checks the same rules before dispatch, naming the gate
// that failed.
package mcpgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arcline/toolgate/pkg/auth"
	"github.com/arcline/toolgate/pkg/authz"
	"github.com/arcline/toolgate/pkg/registry"
)

// MCP method names intercepted by the gate.
const (
	methodToolsList = "tools/list"
	methodToolsCall = "tools/call"
)

// contextKey is a private type for context keys.
type contextKey int

const agentContextKey contextKey = iota

// WithAgentID selects an agent scope for the session. Sessions without an
// agent run in the user's own scope.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentContextKey, agentID)
}

// AgentID returns the session's agent scope, empty for user scope.
func AgentID(ctx context.Context) string {
	if id, ok := ctx.Value(agentContextKey).(string); ok {
		return id
	}
	return ""
}

// identity resolves the session's (user, agent) pair from the context.
func identity(ctx context.Context) (userID, agentID string, err error) {
	uc := auth.GetUserContext(ctx)
	if uc == nil {
		return "", "", errors.New("no authenticated user in session")
	}
	return uc.UserID, AgentID(ctx), nil
}

// VisibilityMiddleware filters tools/list responses down to tools the
// session can actually call. Hidden tools are still gated on tools/call;
// visibility is a convenience, not the security boundary.
func VisibilityMiddleware(facade *authz.Facade) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			result, err := next(ctx, method, req)
			if err != nil || method != methodToolsList {
				return result, err
			}
			listResult, ok := result.(*mcp.ListToolsResult)
			if !ok || listResult == nil {
				return result, nil
			}

			userID, agentID, err := identity(ctx)
			if err != nil {
				listResult.Tools = nil
				return listResult, nil
			}

			decisions, err := facade.CheckAll(ctx, userID, agentID)
			if err != nil {
				return nil, fmt.Errorf("evaluating tool availability: %w", err)
			}
			callable := make(map[string]bool, len(decisions))
			for _, d := range decisions {
				callable[d.ToolSlug] = d.Callable()
			}

			filtered := make([]*mcp.Tool, 0, len(listResult.Tools))
			for _, tool := range listResult.Tools {
				if callable[tool.Name] {
					filtered = append(filtered, tool)
				}
			}
			listResult.Tools = filtered
			return listResult, nil
		}
	}
}

// CallGateMiddleware intercepts tools/call and rejects tools that are not
// callable, reporting whether the flag or the connection was the blocker.
func CallGateMiddleware(facade *authz.Facade) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				return errorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			userID, agentID, err := identity(ctx)
			if err != nil {
				return errorResult("authentication required: " + err.Error()), nil
			}

			decision, err := facade.Check(ctx, userID, agentID, toolName)
			if err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					return errorResult(fmt.Sprintf("unknown tool: %s", toolName)), nil
				}
				return nil, fmt.Errorf("evaluating tool availability: %w", err)
			}
			if !decision.Callable() {
				return errorResult("tool not available: " + decision.Reason()), nil
			}

			return next(ctx, method, req)
		}
	}
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	params := req.GetParams()
	if params == nil {
		return "", fmt.Errorf("missing params")
	}
	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok || callParams == nil {
		return "", fmt.Errorf("unexpected params type: %T", params)
	}
	if callParams.Name == "" {
		return "", fmt.Errorf("missing tool name")
	}
	return callParams.Name, nil
}

// errorResult creates an MCP tool error result.
func errorResult(msg string) mcp.Result {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
