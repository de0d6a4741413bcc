package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const categoryColumns = `id, subject_name, group_code, auto_create, unfinished, created_at, updated_at`

// CategoryRepository implements category.Repository for PostgreSQL.
type CategoryRepository struct {
	db Querier
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db Querier) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (
			id, subject_name, group_code, auto_create, unfinished, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.SubjectName,
		c.GroupCode.String(),
		c.IsAutoCreate,
		telegramIDsToInts(c.CarryOver()),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return category.ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID returns a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	return r.scanCategory(r.db.QueryRow(ctx, query, id))
}

// GetByGroupAndSubject returns a category by group code and exact subject name.
// The match is case-sensitive.
func (r *CategoryRepository) GetByGroupAndSubject(ctx context.Context, code user.GroupCode, subjectName string) (*category.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE group_code = $1 AND subject_name = $2`

	return r.scanCategory(r.db.QueryRow(ctx, query, code.String(), subjectName))
}

// GetAutoCreate returns all categories with auto-create enabled.
func (r *CategoryRepository) GetAutoCreate(ctx context.Context) ([]*category.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE auto_create ORDER BY group_code, subject_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-create categories: %w", err)
	}
	defer rows.Close()

	return r.scanCategories(rows)
}

// GetByGroup returns all categories of a group.
func (r *CategoryRepository) GetByGroup(ctx context.Context, code user.GroupCode) ([]*category.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE group_code = $1 ORDER BY subject_name`

	rows, err := r.db.Query(ctx, query, code.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query categories by group: %w", err)
	}
	defer rows.Close()

	return r.scanCategories(rows)
}

// Update updates a category, including its carry-over list.
func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	query := `
		UPDATE categories SET
			subject_name = $1,
			group_code = $2,
			auto_create = $3,
			unfinished = $4,
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.Exec(ctx, query,
		c.SubjectName,
		c.GroupCode.String(),
		c.IsAutoCreate,
		telegramIDsToInts(c.CarryOver()),
		time.Now().UTC(),
		c.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return category.ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return category.ErrCategoryNotFound
	}

	return nil
}

// Delete deletes a category. Events of the category go with it
// through the ON DELETE CASCADE on events.category_id.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return category.ErrCategoryNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *CategoryRepository) scanCategory(row pgx.Row) (*category.Category, error) {
	var (
		id, subjectName, groupCode string
		autoCreate                 bool
		unfinished                 []int64
		createdAt, updatedAt       time.Time
	)

	err := row.Scan(&id, &subjectName, &groupCode, &autoCreate, &unfinished, &createdAt, &updatedAt)
	if IsNoRows(err) {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	return category.Restore(
		id, subjectName, user.GroupCode(groupCode), autoCreate,
		intsToTelegramIDs(unfinished), createdAt, updatedAt,
	), nil
}

func (r *CategoryRepository) scanCategories(rows pgx.Rows) ([]*category.Category, error) {
	var categories []*category.Category

	for rows.Next() {
		var (
			id, subjectName, groupCode string
			autoCreate                 bool
			unfinished                 []int64
			createdAt, updatedAt       time.Time
		)

		err := rows.Scan(&id, &subjectName, &groupCode, &autoCreate, &unfinished, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}

		categories = append(categories, category.Restore(
			id, subjectName, user.GroupCode(groupCode), autoCreate,
			intsToTelegramIDs(unfinished), createdAt, updatedAt,
		))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return categories, nil
}

func telegramIDsToInts(ids []user.TelegramID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func intsToTelegramIDs(raw []int64) []user.TelegramID {
	out := make([]user.TelegramID, len(raw))
	for i, v := range raw {
		out[i] = user.TelegramID(v)
	}
	return out
}
