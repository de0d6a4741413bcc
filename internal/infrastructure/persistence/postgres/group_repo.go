package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROUP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const groupColumns = `id, code, subgroups, event_ids, created_at, updated_at`

// GroupRepository implements group.Repository for PostgreSQL.
type GroupRepository struct {
	db Querier
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db Querier) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create creates a new group.
func (r *GroupRepository) Create(ctx context.Context, g *group.Group) error {
	query := `
		INSERT INTO groups (id, code, subgroups, event_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		g.ID,
		g.Code.String(),
		g.Subgroups,
		g.EventIDs(),
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return group.ErrGroupAlreadyExists
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetByCode returns a group by code.
func (r *GroupRepository) GetByCode(ctx context.Context, code user.GroupCode) (*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE code = $1`

	return r.scanGroup(r.db.QueryRow(ctx, query, code.String()))
}

// List returns all groups.
func (r *GroupRepository) List(ctx context.Context) ([]*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups ORDER BY code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*group.Group
	for rows.Next() {
		g, err := r.scanGroupRow(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return groups, nil
}

// Update updates a group, including its event index.
func (r *GroupRepository) Update(ctx context.Context, g *group.Group) error {
	query := `
		UPDATE groups SET
			code = $1,
			subgroups = $2,
			event_ids = $3,
			updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query,
		g.Code.String(),
		g.Subgroups,
		g.EventIDs(),
		time.Now().UTC(),
		g.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return group.ErrGroupAlreadyExists
		}
		return fmt.Errorf("failed to update group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return group.ErrGroupNotFound
	}

	return nil
}

// Delete deletes a group.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return group.ErrGroupNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *GroupRepository) scanGroup(row pgx.Row) (*group.Group, error) {
	g, err := scanGroupFrom(row)
	if IsNoRows(err) {
		return nil, group.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) scanGroupRow(rows pgx.Rows) (*group.Group, error) {
	g, err := scanGroupFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return g, nil
}

func scanGroupFrom(row pgx.Row) (*group.Group, error) {
	var (
		id, code             string
		subgroups            []int
		eventIDs             []string
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &code, &subgroups, &eventIDs, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return group.Restore(id, user.GroupCode(code), subgroups, eventIDs, createdAt, updatedAt), nil
}
