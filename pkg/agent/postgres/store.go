// Package postgres provides PostgreSQL storage for agents.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/arcline/toolgate/pkg/agent"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// agentColumns lists columns returned by agent SELECT queries.
var agentColumns = []string{
	"id", "owner_id", "name", "description", "is_global", "created_at",
}

// Store implements agent.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL agent store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new agent.
func (s *Store) Create(ctx context.Context, a *agent.Agent) error {
	query, args, err := psq.Insert("agents").
		Columns(agentColumns...).
		Values(a.ID, nullable(a.OwnerID), a.Name, a.Description, a.IsGlobal, a.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building agent insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

// Get retrieves an agent by ID.
func (s *Store) Get(ctx context.Context, id string) (*agent.Agent, error) {
	query, args, err := psq.Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building agent get query: %w", err)
	}

	var a agent.Agent
	var owner sql.NullString
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &owner, &a.Name, &a.Description, &a.IsGlobal, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, agent.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting agent: %w", err)
	}
	a.OwnerID = owner.String
	return &a, nil
}

// ListForUser returns the user's own agents plus all global agents.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]agent.Agent, error) {
	query, args, err := psq.Select(agentColumns...).
		From("agents").
		Where(sq.Or{sq.Eq{"owner_id": userID}, sq.Eq{"is_global": true}}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building agent list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	agents := make([]agent.Agent, 0)
	for rows.Next() {
		var a agent.Agent
		var owner sql.NullString
		if err := rows.Scan(&a.ID, &owner, &a.Name, &a.Description, &a.IsGlobal, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning agent row: %w", err)
		}
		a.OwnerID = owner.String
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agent rows: %w", err)
	}
	return agents, nil
}

// Delete removes an agent. Preference rows cascade via foreign key.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := psq.Delete("agents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building agent delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking agent delete result: %w", err)
	}
	if affected == 0 {
		return agent.ErrNotFound
	}
	return nil
}

// nullable maps an empty owner to NULL so global agents carry no owner row.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Verify interface compliance.
var _ agent.Store = (*Store)(nil)
