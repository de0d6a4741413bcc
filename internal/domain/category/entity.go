// Package category содержит доменную модель категории событий.
// Категория - это повторяющийся предмет в рамках группы (например,
// "Алгоритмы" для SE-2301). Она переживает отдельные события и несёт
// через них carry-over список незавершивших участников.
package category

import (
	"fmt"
	"strings"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EVENT CATEGORY
// ══════════════════════════════════════════════════════════════════════════════

// Category - повторяющийся предмет, к которому привязываются события.
//
// unfinished - упорядоченный список участников, не дошедших до начала
// предыдущей сформированной очереди. Это "долг справедливости": при
// следующем формировании эти участники получают место в начале очереди.
// Инварианты: список не содержит дубликатов и потребляется целиком
// ровно один раз за цикл формирования (consumed-and-reset).
type Category struct {
	// ID - уникальный идентификатор (UUID в строковом формате).
	ID string

	// SubjectName - название предмета. Сопоставление фактов расписания
	// с категориями идёт по точному совпадению имени.
	SubjectName string

	// GroupCode - группа, на которую распространяется категория.
	GroupCode user.GroupCode

	// IsAutoCreate - создавать ли события автоматически из расписания.
	IsAutoCreate bool

	// unfinished - carry-over список (Telegram ID, порядок значим).
	unfinished []user.TelegramID

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewCategory создаёт новую категорию с валидацией полей.
func NewCategory(id, subjectName string, groupCode user.GroupCode, isAutoCreate bool) (*Category, error) {
	if id == "" {
		return nil, fmt.Errorf("category id is required")
	}

	subjectName = strings.TrimSpace(subjectName)
	if len(subjectName) == 0 || len(subjectName) > 100 {
		return nil, ErrInvalidSubjectName
	}

	if !groupCode.IsValid() {
		return nil, ErrInvalidGroupCode
	}

	now := time.Now().UTC()

	return &Category{
		ID:           id,
		SubjectName:  subjectName,
		GroupCode:    groupCode,
		IsAutoCreate: isAutoCreate,
		unfinished:   make([]user.TelegramID, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Restore восстанавливает категорию из хранилища без валидации.
// Carry-over список дедуплицируется при восстановлении: категория отвечает
// за инвариант отсутствия дубликатов, а не алгоритм формирования.
func Restore(id, subjectName string, groupCode user.GroupCode, isAutoCreate bool,
	unfinished []user.TelegramID, createdAt, updatedAt time.Time) *Category {

	return &Category{
		ID:           id,
		SubjectName:  subjectName,
		GroupCode:    groupCode,
		IsAutoCreate: isAutoCreate,
		unfinished:   dedupe(unfinished),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CARRY-OVER (unfinished participants)
// ══════════════════════════════════════════════════════════════════════════════

// CarryOver возвращает копию carry-over списка в его порядке.
func (c *Category) CarryOver() []user.TelegramID {
	out := make([]user.TelegramID, len(c.unfinished))
	copy(out, c.unfinished)
	return out
}

// ConsumeCarryOver возвращает carry-over список и очищает его.
// Вызывается ровно один раз за формирование очереди.
func (c *Category) ConsumeCarryOver() []user.TelegramID {
	out := c.unfinished
	c.unfinished = make([]user.TelegramID, 0)
	c.UpdatedAt = time.Now().UTC()
	return out
}

// ClearCarryOver очищает carry-over список. Идемпотентно.
func (c *Category) ClearCarryOver() {
	if len(c.unfinished) == 0 {
		return
	}
	c.unfinished = make([]user.TelegramID, 0)
	c.UpdatedAt = time.Now().UTC()
}

// MarkUnfinishedFrom заменяет carry-over список хвостом сформированной
// очереди, начиная с позиции cutoff (нумерация с 1). Участники на позициях
// >= cutoff считаются не дошедшими до своей очереди.
func (c *Category) MarkUnfinishedFrom(queue []user.TelegramID, cutoff int) error {
	if cutoff < 1 {
		return ErrInvalidCutoff
	}

	start := cutoff - 1
	if start >= len(queue) {
		// Хвост пуст: все успели, долга нет.
		c.unfinished = make([]user.TelegramID, 0)
		c.UpdatedAt = time.Now().UTC()
		return nil
	}

	c.unfinished = dedupe(queue[start:])
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// dedupe убирает дубликаты, сохраняя порядок первых вхождений.
func dedupe(ids []user.TelegramID) []user.TelegramID {
	seen := make(map[user.TelegramID]struct{}, len(ids))
	out := make([]user.TelegramID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// String возвращает строковое представление категории для логирования.
func (c *Category) String() string {
	return fmt.Sprintf(
		"Category{ID: %s, Subject: %s, Group: %s, AutoCreate: %t, Unfinished: %d}",
		c.ID, c.SubjectName, c.GroupCode, c.IsAutoCreate, len(c.unfinished),
	)
}

// Clone создаёт глубокую копию категории.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}

	clone := *c
	clone.unfinished = make([]user.TelegramID, len(c.unfinished))
	copy(clone.unfinished, c.unfinished)
	return &clone
}
