// Package postgres provides PostgreSQL storage for tool preferences. One
// store serves both scopes; the scope tag selects the backing table so the
// user and agent record types share a single implementation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/arcline/toolgate/pkg/preference"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// scopeTable maps a scope to its backing table and owner column.
type scopeTable struct {
	table  string
	column string
}

var scopeTables = map[preference.Scope]scopeTable{
	preference.ScopeUser:  {table: "user_tool_preferences", column: "user_id"},
	preference.ScopeAgent: {table: "agent_tool_preferences", column: "agent_id"},
}

// Store implements preference.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL preference store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns all preference rows for a scope owner ordered by tool slug.
func (s *Store) List(ctx context.Context, scope preference.Scope, scopeID string) ([]preference.Preference, error) {
	st, err := tableFor(scope)
	if err != nil {
		return nil, err
	}

	query, args, err := psq.Select(st.column, "tool_slug", "enabled").
		From(st.table).
		Where(sq.Eq{st.column: scopeID}).
		OrderBy("tool_slug").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building preference list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	prefs := make([]preference.Preference, 0)
	for rows.Next() {
		var p preference.Preference
		if err := rows.Scan(&p.ScopeID, &p.ToolSlug, &p.Enabled); err != nil {
			return nil, fmt.Errorf("scanning preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating preference rows: %w", err)
	}
	return prefs, nil
}

// Set upserts a single preference row.
func (s *Store) Set(ctx context.Context, scope preference.Scope, scopeID, toolSlug string, enabled bool) error {
	st, err := tableFor(scope)
	if err != nil {
		return err
	}

	query, args, err := upsertQuery(st, scopeID, []string{toolSlug}, enabled)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting preference: %w", err)
	}
	return nil
}

// SetMany upserts rows for every slug inside a single transaction so the call
// is atomic: either every row is written or none are.
func (s *Store) SetMany(ctx context.Context, scope preference.Scope, scopeID string, toolSlugs []string, enabled bool) (int, error) {
	if len(toolSlugs) == 0 {
		return 0, nil
	}
	st, err := tableFor(scope)
	if err != nil {
		return 0, err
	}

	query, args, err := upsertQuery(st, scopeID, toolSlugs, enabled)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning preference transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("bulk upserting preferences: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("checking bulk upsert result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		// The statement succeeded but the commit did not; the rows may or may
		// not be visible, so surface it as a partial write.
		return 0, &preference.PartialWriteError{Written: int(affected), Err: err}
	}
	return int(affected), nil
}

// DeleteForTool removes every row referencing the slug in both scopes.
func (s *Store) DeleteForTool(ctx context.Context, toolSlug string) error {
	for _, st := range scopeTables {
		query, args, err := psq.Delete(st.table).Where(sq.Eq{"tool_slug": toolSlug}).ToSql()
		if err != nil {
			return fmt.Errorf("building preference delete: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("deleting preferences from %s: %w", st.table, err)
		}
	}
	return nil
}

// upsertQuery builds a multi-row INSERT ... ON CONFLICT upsert. The unique
// constraint on (owner, tool_slug) makes concurrent toggles of the same pair
// converge to last-write-wins without duplicate rows.
func upsertQuery(st scopeTable, scopeID string, toolSlugs []string, enabled bool) (string, []any, error) {
	qb := psq.Insert(st.table).Columns(st.column, "tool_slug", "enabled")
	for _, slug := range toolSlugs {
		qb = qb.Values(scopeID, slug, enabled)
	}
	qb = qb.Suffix(fmt.Sprintf(
		"ON CONFLICT (%s, tool_slug) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = NOW()",
		st.column,
	))

	query, args, err := qb.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("building preference upsert: %w", err)
	}
	return query, args, nil
}

// tableFor resolves the backing table for a scope.
func tableFor(scope preference.Scope) (scopeTable, error) {
	st, ok := scopeTables[scope]
	if !ok {
		return scopeTable{}, fmt.Errorf("unknown scope %q", scope)
	}
	return st, nil
}

// Verify interface compliance.
var _ preference.Store = (*Store)(nil)
