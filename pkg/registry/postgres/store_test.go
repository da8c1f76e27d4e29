package postgres

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcline/toolgate/pkg/registry"
)

var selectColumns = []string{
	"slug", "toolkit_slug", "toolkit_name", "display_name", "description",
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestList(t *testing.T) {
	store, mock := newMock(t)

	rows := sqlmock.NewRows(selectColumns).
		AddRow("GMAIL_SEND_EMAIL", "gmail", "Gmail", "Send Email", "").
		AddRow("SLACK_POST", "slack", "Slack", "Post Message", "")
	mock.ExpectQuery("SELECT .+ FROM tools ORDER BY toolkit_name, slug").WillReturnRows(rows)

	tools, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "gmail", tools[0].ToolkitSlug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT .+ FROM tools").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows(selectColumns))

	_, err := store.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_UniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO tools").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := store.Add(context.Background(), registry.Tool{Slug: "GMAIL_SEND_EMAIL"})
	assert.ErrorIs(t, err, registry.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_DBError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO tools").
		WillReturnError(errors.New("connection refused"))

	err := store.Add(context.Background(), registry.Tool{Slug: "GMAIL_SEND_EMAIL"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inserting tool")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Partial(t *testing.T) {
	store, mock := newMock(t)

	desc := "better description"
	mock.ExpectExec("UPDATE tools SET description").
		WithArgs(desc, "GMAIL_SEND_EMAIL").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), "GMAIL_SEND_EMAIL", registry.FieldPatch{Description: &desc})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	store, mock := newMock(t)

	desc := "x"
	mock.ExpectExec("UPDATE tools").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), "NOPE", registry.FieldPatch{Description: &desc})
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("DELETE FROM tools").
		WithArgs("GMAIL_SEND_EMAIL").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), "GMAIL_SEND_EMAIL"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("DELETE FROM tools").
		WithArgs("NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "NOPE")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
