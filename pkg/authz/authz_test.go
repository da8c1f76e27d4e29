package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcline/toolgate/pkg/connection"
	"github.com/arcline/toolgate/pkg/preference"
	"github.com/arcline/toolgate/pkg/registry"
)

type stubConns struct {
	conns []connection.Connection
	err   error
}

func (s *stubConns) List(_ context.Context, userID string) ([]connection.Connection, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []connection.Connection
	for _, c := range s.conns {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

func newFacade(t *testing.T, conns *stubConns) (*Facade, registry.Store, preference.Store) {
	t.Helper()
	ctx := context.Background()

	tools := registry.NewMemoryStore()
	require.NoError(t, tools.Add(ctx, registry.Tool{
		Slug: "GMAIL_SEND_EMAIL", ToolkitSlug: "gmail", ToolkitName: "Gmail",
	}))
	require.NoError(t, tools.Add(ctx, registry.Tool{
		Slug: "SLACK_POST_MESSAGE", ToolkitSlug: "slack", ToolkitName: "Slack",
	}))

	prefs := preference.NewMemoryStore()
	return NewFacade(tools, prefs, conns), tools, prefs
}

func activeGmail(userID string) *stubConns {
	return &stubConns{conns: []connection.Connection{
		{ID: "c1", UserID: userID, ToolkitSlug: "gmail", Status: connection.StatusActive},
	}}
}

func TestCheck_EnabledAndConnected(t *testing.T) {
	ctx := context.Background()
	facade, _, prefs := newFacade(t, activeGmail("u1"))
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "GMAIL_SEND_EMAIL", true))

	d, err := facade.Check(ctx, "u1", "", "GMAIL_SEND_EMAIL")
	require.NoError(t, err)
	assert.True(t, d.Callable())
	assert.Empty(t, d.Reason())
}

func TestCheck_DisabledByDefault(t *testing.T) {
	ctx := context.Background()
	facade, _, _ := newFacade(t, activeGmail("u1"))

	// Connected but never enabled: absence means disabled.
	d, err := facade.Check(ctx, "u1", "", "GMAIL_SEND_EMAIL")
	require.NoError(t, err)
	assert.False(t, d.Callable())
	assert.True(t, d.Connected)
	assert.Contains(t, d.Reason(), "not enabled")
}

func TestCheck_EnabledButNotConnected(t *testing.T) {
	ctx := context.Background()
	facade, _, prefs := newFacade(t, &stubConns{})
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "GMAIL_SEND_EMAIL", true))

	d, err := facade.Check(ctx, "u1", "", "GMAIL_SEND_EMAIL")
	require.NoError(t, err)
	assert.False(t, d.Callable())
	assert.True(t, d.Enabled)
	assert.Contains(t, d.Reason(), "gmail is not connected")
}

func TestCheck_RevokedConnectionDoesNotCount(t *testing.T) {
	ctx := context.Background()
	conns := &stubConns{conns: []connection.Connection{
		{ID: "c1", UserID: "u1", ToolkitSlug: "gmail", Status: connection.StatusRevoked},
	}}
	facade, _, prefs := newFacade(t, conns)
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "GMAIL_SEND_EMAIL", true))

	d, err := facade.Check(ctx, "u1", "", "GMAIL_SEND_EMAIL")
	require.NoError(t, err)
	assert.False(t, d.Connected)
}

func TestCheck_AgentScopeIsNotUserScope(t *testing.T) {
	ctx := context.Background()
	facade, _, prefs := newFacade(t, activeGmail("u1"))
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "GMAIL_SEND_EMAIL", true))

	// The agent has its own flag set; the user's enablement does not leak in.
	d, err := facade.Check(ctx, "u1", "agent-1", "GMAIL_SEND_EMAIL")
	require.NoError(t, err)
	assert.False(t, d.Enabled)

	require.NoError(t, prefs.Set(ctx, preference.ScopeAgent, "agent-1", "GMAIL_SEND_EMAIL", true))
	d, err = facade.Check(ctx, "u1", "agent-1", "GMAIL_SEND_EMAIL")
	require.NoError(t, err)
	assert.True(t, d.Callable())
}

func TestCheck_UnknownTool(t *testing.T) {
	facade, _, _ := newFacade(t, &stubConns{})

	_, err := facade.Check(context.Background(), "u1", "", "NOPE_TOOL")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCheck_ConnectionListFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("provider down")
	facade, _, prefs := newFacade(t, &stubConns{err: boom})
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "GMAIL_SEND_EMAIL", true))

	_, err := facade.Check(ctx, "u1", "", "GMAIL_SEND_EMAIL")
	assert.ErrorIs(t, err, boom)
}

func TestCheckAll(t *testing.T) {
	ctx := context.Background()
	facade, _, prefs := newFacade(t, activeGmail("u1"))
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "GMAIL_SEND_EMAIL", true))
	require.NoError(t, prefs.Set(ctx, preference.ScopeUser, "u1", "SLACK_POST_MESSAGE", true))

	decisions, err := facade.CheckAll(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, decisions, 2)

	byTool := make(map[string]Decision, len(decisions))
	for _, d := range decisions {
		byTool[d.ToolSlug] = d
	}
	assert.True(t, byTool["GMAIL_SEND_EMAIL"].Callable())
	// Slack is enabled but has no active connection.
	assert.False(t, byTool["SLACK_POST_MESSAGE"].Callable())
	assert.True(t, byTool["SLACK_POST_MESSAGE"].Enabled)
}
