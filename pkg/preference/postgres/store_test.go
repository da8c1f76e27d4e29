package postgres

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcline/toolgate/pkg/preference"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestList_UserScope(t *testing.T) {
	store, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"user_id", "tool_slug", "enabled"}).
		AddRow("user-1", "GMAIL_SEND_EMAIL", true)
	mock.ExpectQuery("SELECT .+ FROM user_tool_preferences").
		WithArgs("user-1").
		WillReturnRows(rows)

	prefs, err := store.List(context.Background(), preference.ScopeUser, "user-1")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.True(t, prefs[0].Enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_AgentScopeUsesAgentTable(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT .+ FROM agent_tool_preferences").
		WithArgs("agent-1").
		WillReturnRows(sqlmock.NewRows([]string{"agent_id", "tool_slug", "enabled"}))

	prefs, err := store.List(context.Background(), preference.ScopeAgent, "agent-1")
	require.NoError(t, err)
	assert.Empty(t, prefs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_UnknownScope(t *testing.T) {
	store, _ := newMock(t)

	_, err := store.List(context.Background(), preference.Scope("tenant"), "x")
	assert.Error(t, err)
}

func TestSet_Upsert(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO user_tool_preferences .+ ON CONFLICT").
		WithArgs("user-1", "GMAIL_SEND_EMAIL", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Set(context.Background(), preference.ScopeUser, "user-1", "GMAIL_SEND_EMAIL", true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMany_SingleTransaction(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO agent_tool_preferences .+ ON CONFLICT").
		WithArgs("agent-1", "A", true, "agent-1", "B", true).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := store.SetMany(context.Background(), preference.ScopeAgent, "agent-1", []string{"A", "B"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMany_RollsBackOnError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_tool_preferences").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := store.SetMany(context.Background(), preference.ScopeUser, "user-1", []string{"A"}, false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bulk upserting preferences")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMany_CommitFailureIsPartialWrite(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_tool_preferences").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := store.SetMany(context.Background(), preference.ScopeUser, "user-1", []string{"A"}, true)
	var pwe *preference.PartialWriteError
	require.ErrorAs(t, err, &pwe)
	assert.Equal(t, 1, pwe.Written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMany_Empty(t *testing.T) {
	store, _ := newMock(t)

	n, err := store.SetMany(context.Background(), preference.ScopeUser, "user-1", nil, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteForTool_BothScopes(t *testing.T) {
	store, mock := newMock(t)

	// Both scope tables are cleared; map iteration order is not fixed, so
	// match either table on each statement.
	mock.ExpectExec("DELETE FROM (user|agent)_tool_preferences").
		WithArgs("GMAIL_SEND_EMAIL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM (user|agent)_tool_preferences").
		WithArgs("GMAIL_SEND_EMAIL").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DeleteForTool(context.Background(), "GMAIL_SEND_EMAIL")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
