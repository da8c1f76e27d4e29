// Package postgres provides PostgreSQL storage for the tool registry.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/arcline/toolgate/pkg/registry"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// toolColumns lists columns returned by tool SELECT queries.
var toolColumns = []string{
	"slug", "toolkit_slug", "toolkit_name", "display_name", "description",
}

// uniqueViolation is the PostgreSQL error code for unique constraint violation.
const uniqueViolation = "23505"

// Store implements registry.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL tool registry store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns all registered tools ordered by toolkit name then slug.
func (s *Store) List(ctx context.Context) ([]registry.Tool, error) {
	query, args, err := psq.Select(toolColumns...).
		From("tools").
		OrderBy("toolkit_name", "slug").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building tool list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tools := make([]registry.Tool, 0)
	for rows.Next() {
		var t registry.Tool
		if err := rows.Scan(&t.Slug, &t.ToolkitSlug, &t.ToolkitName, &t.DisplayName, &t.Description); err != nil {
			return nil, fmt.Errorf("scanning tool row: %w", err)
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tool rows: %w", err)
	}
	return tools, nil
}

// Get retrieves a tool by slug.
func (s *Store) Get(ctx context.Context, slug string) (*registry.Tool, error) {
	query, args, err := psq.Select(toolColumns...).
		From("tools").
		Where(sq.Eq{"slug": slug}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building tool get query: %w", err)
	}

	var t registry.Tool
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&t.Slug, &t.ToolkitSlug, &t.ToolkitName, &t.DisplayName, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tool: %w", err)
	}
	return &t, nil
}

// Add registers a new tool.
func (s *Store) Add(ctx context.Context, tool registry.Tool) error {
	query, args, err := psq.Insert("tools").
		Columns(toolColumns...).
		Values(tool.Slug, tool.ToolkitSlug, tool.ToolkitName, tool.DisplayName, tool.Description).
		ToSql()
	if err != nil {
		return fmt.Errorf("building tool insert: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return registry.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting tool: %w", err)
	}
	return nil
}

// Update applies a partial metadata update.
func (s *Store) Update(ctx context.Context, slug string, patch registry.FieldPatch) error {
	qb := psq.Update("tools").Where(sq.Eq{"slug": slug})

	changed := false
	if patch.ToolkitSlug != nil {
		qb = qb.Set("toolkit_slug", *patch.ToolkitSlug)
		changed = true
	}
	if patch.ToolkitName != nil {
		qb = qb.Set("toolkit_name", *patch.ToolkitName)
		changed = true
	}
	if patch.DisplayName != nil {
		qb = qb.Set("display_name", *patch.DisplayName)
		changed = true
	}
	if patch.Description != nil {
		qb = qb.Set("description", *patch.Description)
		changed = true
	}
	if !changed {
		// Nothing to write, but the contract still requires an existence check.
		_, err := s.Get(ctx, slug)
		return err
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("building tool update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating tool: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking tool update result: %w", err)
	}
	if affected == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// Delete removes a tool. Preference rows referencing the slug are removed by
// ON DELETE CASCADE foreign keys (see migrations).
func (s *Store) Delete(ctx context.Context, slug string) error {
	query, args, err := psq.Delete("tools").Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return fmt.Errorf("building tool delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting tool: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking tool delete result: %w", err)
	}
	if affected == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// Verify interface compliance.
var _ registry.Store = (*Store)(nil)
