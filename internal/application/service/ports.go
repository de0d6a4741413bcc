// Package service содержит прикладные сервисы ядра: запись в очереди,
// управляемые временем переходы жизненного цикла событий и автосоздание
// событий из фактов расписания.
package service

import (
	"context"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// Транзакционная граница. Формирование очереди обязано сохранять финальный
// порядок, фазу, статистику справедливости и carry-over категории атомарно:
// либо фиксируется всё, либо переход целиком повторяется на следующем цикле.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork объединяет репозитории в рамках одной транзакции.
type UnitOfWork interface {
	// Events возвращает репозиторий событий в рамках транзакции.
	Events() event.Repository

	// Categories возвращает репозиторий категорий в рамках транзакции.
	Categories() category.Repository

	// Users возвращает репозиторий участников в рамках транзакции.
	Users() user.Repository

	// Groups возвращает репозиторий групп в рамках транзакции.
	Groups() group.Repository

	// Commit фиксирует транзакцию.
	Commit(ctx context.Context) error

	// Rollback откатывает транзакцию. Безопасен после Commit (no-op).
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory создаёт единицы работы.
type UnitOfWorkFactory interface {
	// Begin начинает новую транзакцию.
	Begin(ctx context.Context) (UnitOfWork, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXTERNAL PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Notifier рассылает уведомление о предстоящем событии всем участникам
// группы. Сам канал доставки (Telegram и т.п.) - забота инфраструктуры;
// ошибки доставки не откатывают переход фазы.
type Notifier interface {
	NotifyGroup(ctx context.Context, code user.GroupCode, e *event.Event) error
}

// ScheduleEntry - факт внешнего расписания: предмет проходит у группы в
// указанное время.
type ScheduleEntry struct {
	// SubjectName - название предмета, как оно записано в расписании.
	SubjectName string

	// GroupCode - код группы.
	GroupCode user.GroupCode

	// SubgroupNumber - номер подгруппы, если занятие для подгруппы.
	SubgroupNumber *int

	// OccurredOn - время проведения занятия.
	OccurredOn time.Time
}

// ScheduleSource отдаёт факты расписания на указанную дату.
// Разбор внешней таблицы остаётся за инфраструктурой.
type ScheduleSource interface {
	Entries(ctx context.Context, date time.Time) ([]ScheduleEntry, error)
}
