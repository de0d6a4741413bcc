package event

import (
	"context"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// DuePhase указывает, какой порог жизненного цикла проверяет выборка
// GetDue.
type DuePhase string

const (
	// DueNotification - события с NotificationTime <= now, ещё не
	// уведомлённые.
	DueNotification DuePhase = "notification"
	// DueFormation - события с FormationTime <= now, ещё не
	// сформированные.
	DueFormation DuePhase = "formation"
	// DueDeletion - события с DeletionTime <= now.
	DueDeletion DuePhase = "deletion"
)

// Repository определяет операции хранения событий.
type Repository interface {
	// Create создаёт новое событие.
	// Возвращает ErrEventAlreadyExists при дубликате.
	Create(ctx context.Context, e *Event) error

	// GetByID возвращает событие по ID.
	// Возвращает ErrEventNotFound, если событие не найдено.
	GetByID(ctx context.Context, id string) (*Event, error)

	// GetDue возвращает события, пересёкшие порог указанной фазы к
	// моменту now. Порядок не гарантируется.
	GetDue(ctx context.Context, phase DuePhase, now time.Time) ([]*Event, error)

	// GetByGroup возвращает все события группы.
	GetByGroup(ctx context.Context, code user.GroupCode) ([]*Event, error)

	// GetByCategory возвращает все события категории.
	GetByCategory(ctx context.Context, categoryID string) ([]*Event, error)

	// Update обновляет событие (участники, пожелания, фаза).
	// Возвращает ErrEventNotFound, если событие не найдено.
	Update(ctx context.Context, e *Event) error

	// Delete удаляет событие.
	Delete(ctx context.Context, id string) error
}
