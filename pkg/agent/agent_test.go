package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutableBy(t *testing.T) {
	tests := []struct {
		name   string
		agent  Agent
		userID string
		want   bool
	}{
		{name: "owner", agent: Agent{OwnerID: "u1"}, userID: "u1", want: true},
		{name: "non-owner", agent: Agent{OwnerID: "u1"}, userID: "u2", want: false},
		{name: "global rejects owner-equivalent", agent: Agent{IsGlobal: true}, userID: "u1", want: false},
		{name: "global with stale owner still rejects", agent: Agent{OwnerID: "u1", IsGlobal: true}, userID: "u1", want: false},
		{name: "ownerless non-global", agent: Agent{}, userID: "u1", want: false},
		{name: "empty caller never matches empty owner", agent: Agent{}, userID: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.agent.MutableBy(tt.userID))
		})
	}
}

func TestReadableBy(t *testing.T) {
	global := Agent{IsGlobal: true}
	assert.True(t, global.ReadableBy("anyone"))

	owned := Agent{OwnerID: "u1"}
	assert.True(t, owned.ReadableBy("u1"))
	assert.False(t, owned.ReadableBy("u2"))
}

func TestMemoryStore_CRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &Agent{ID: "agent-1", OwnerID: "u1", Name: "Research Assistant", CreatedAt: time.Now()}
	require.NoError(t, store.Create(ctx, a))

	got, err := store.Get(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)

	require.NoError(t, store.Delete(ctx, "agent-1"))
	_, err = store.Get(ctx, "agent-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "agent-1"), ErrNotFound)
}

func TestMemoryStore_ListForUserIncludesGlobals(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Agent{ID: "a1", OwnerID: "u1", Name: "Mine"}))
	require.NoError(t, store.Create(ctx, &Agent{ID: "a2", OwnerID: "u2", Name: "Theirs"}))
	require.NoError(t, store.Create(ctx, &Agent{ID: "a3", IsGlobal: true, Name: "Everyone"}))

	agents, err := store.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Everyone", agents[0].Name)
	assert.Equal(t, "Mine", agents[1].Name)
}
