package category

import (
	"context"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранения категорий.
type Repository interface {
	// Create создаёт новую категорию.
	// Возвращает ErrCategoryAlreadyExists при дубликате.
	Create(ctx context.Context, c *Category) error

	// GetByID возвращает категорию по ID.
	// Возвращает ErrCategoryNotFound, если категория не найдена.
	GetByID(ctx context.Context, id string) (*Category, error)

	// GetByGroupAndSubject возвращает категорию по группе и точному
	// (с учётом регистра) названию предмета.
	GetByGroupAndSubject(ctx context.Context, code user.GroupCode, subjectName string) (*Category, error)

	// GetAutoCreate возвращает все категории с включённым автосозданием.
	GetAutoCreate(ctx context.Context) ([]*Category, error)

	// GetByGroup возвращает все категории группы.
	GetByGroup(ctx context.Context, code user.GroupCode) ([]*Category, error)

	// Update обновляет категорию (включая carry-over список).
	// Возвращает ErrCategoryNotFound, если категория не найдена.
	Update(ctx context.Context, c *Category) error

	// Delete удаляет категорию.
	Delete(ctx context.Context, id string) error
}
