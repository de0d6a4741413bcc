package user

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет основные операции CRUD для участников.
type Repository interface {
	// Create создаёт нового участника.
	// Возвращает ErrUserAlreadyExists, если участник уже существует.
	Create(ctx context.Context, u *User) error

	// GetByID возвращает участника по внутреннему ID.
	// Возвращает ErrUserNotFound, если участник не найден.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByTelegramID возвращает участника по Telegram ID.
	// Возвращает ErrUserNotFound, если участник не найден.
	GetByTelegramID(ctx context.Context, telegramID TelegramID) (*User, error)

	// GetByTelegramIDs возвращает участников по списку Telegram ID.
	// Отсутствующие участники молча пропускаются.
	GetByTelegramIDs(ctx context.Context, ids []TelegramID) ([]*User, error)

	// Update обновляет данные участника.
	// Возвращает ErrUserNotFound, если участник не найден.
	Update(ctx context.Context, u *User) error

	// Delete удаляет участника.
	Delete(ctx context.Context, id string) error
}

// FairnessStore определяет минимальный контракт алгоритма упорядочивания:
// чтение и запись двух полей статистики справедливости.
type FairnessStore interface {
	// GetFairness возвращает (averagePosition, participationCount).
	// Для неизвестного участника возвращает (0.0, 0) без ошибки.
	GetFairness(ctx context.Context, telegramID TelegramID) (float64, int, error)

	// UpdateFairness сохраняет обновлённую статистику.
	UpdateFairness(ctx context.Context, telegramID TelegramID, avg float64, count int) error
}

// GroupMembership возвращает состав группы. Используется внешним
// нотификатором при рассылке о новых очередях.
type GroupMembership interface {
	// MembersOf возвращает Telegram ID всех участников группы.
	MembersOf(ctx context.Context, code GroupCode) ([]TelegramID, error)
}
