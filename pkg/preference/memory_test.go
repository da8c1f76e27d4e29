package preference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		input   string
		want    Scope
		wantErr bool
	}{
		{input: "user", want: ScopeUser},
		{input: "agent", want: ScopeAgent},
		{input: "", wantErr: true},
		{input: "global", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryStore_AbsenceMeansDisabled(t *testing.T) {
	store := NewMemoryStore()

	prefs, err := store.List(context.Background(), ScopeUser, "user-1")
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestMemoryStore_SetAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeUser, "user-1", "GMAIL_SEND_EMAIL", true))
	require.NoError(t, store.Set(ctx, ScopeUser, "user-1", "GMAIL_CREATE_DRAFT", false))

	prefs, err := store.List(ctx, ScopeUser, "user-1")
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	// Ordered by tool slug.
	assert.Equal(t, "GMAIL_CREATE_DRAFT", prefs[0].ToolSlug)
	assert.False(t, prefs[0].Enabled)
	assert.Equal(t, "GMAIL_SEND_EMAIL", prefs[1].ToolSlug)
	assert.True(t, prefs[1].Enabled)
}

func TestMemoryStore_SetOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeUser, "user-1", "GMAIL_SEND_EMAIL", true))
	require.NoError(t, store.Set(ctx, ScopeUser, "user-1", "GMAIL_SEND_EMAIL", false))

	prefs, err := store.List(ctx, ScopeUser, "user-1")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.False(t, prefs[0].Enabled)
}

func TestMemoryStore_ScopeIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Same ID in both scopes: toggling one never leaks into the other.
	require.NoError(t, store.Set(ctx, ScopeUser, "owner-1", "GMAIL_SEND_EMAIL", true))
	require.NoError(t, store.Set(ctx, ScopeAgent, "owner-1", "GMAIL_SEND_EMAIL", false))

	userPrefs, err := store.List(ctx, ScopeUser, "owner-1")
	require.NoError(t, err)
	require.Len(t, userPrefs, 1)
	assert.True(t, userPrefs[0].Enabled)

	agentPrefs, err := store.List(ctx, ScopeAgent, "owner-1")
	require.NoError(t, err)
	require.Len(t, agentPrefs, 1)
	assert.False(t, agentPrefs[0].Enabled)
}

func TestMemoryStore_SetMany(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	n, err := store.SetMany(ctx, ScopeAgent, "agent-1", []string{"A", "B", "C"}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	prefs, err := store.List(ctx, ScopeAgent, "agent-1")
	require.NoError(t, err)
	assert.Len(t, prefs, 3)
}

func TestMemoryStore_DeleteForTool(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeUser, "user-1", "GMAIL_SEND_EMAIL", true))
	require.NoError(t, store.Set(ctx, ScopeAgent, "agent-1", "GMAIL_SEND_EMAIL", true))
	require.NoError(t, store.Set(ctx, ScopeAgent, "agent-1", "SLACK_POST", true))

	require.NoError(t, store.DeleteForTool(ctx, "GMAIL_SEND_EMAIL"))

	userPrefs, err := store.List(ctx, ScopeUser, "user-1")
	require.NoError(t, err)
	assert.Empty(t, userPrefs)

	agentPrefs, err := store.List(ctx, ScopeAgent, "agent-1")
	require.NoError(t, err)
	require.Len(t, agentPrefs, 1)
	assert.Equal(t, "SLACK_POST", agentPrefs[0].ToolSlug)
}
