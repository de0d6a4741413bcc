package group

import (
	"context"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// Repository определяет операции хранения групп.
type Repository interface {
	// Create создаёт новую группу.
	// Возвращает ErrGroupAlreadyExists при дубликате кода.
	Create(ctx context.Context, g *Group) error

	// GetByCode возвращает группу по коду.
	// Возвращает ErrGroupNotFound, если группа не найдена.
	GetByCode(ctx context.Context, code user.GroupCode) (*Group, error)

	// List возвращает все группы.
	List(ctx context.Context) ([]*Group, error)

	// Update обновляет группу (включая индекс событий).
	// Возвращает ErrGroupNotFound, если группа не найдена.
	Update(ctx context.Context, g *Group) error

	// Delete удаляет группу.
	Delete(ctx context.Context, id string) error
}
