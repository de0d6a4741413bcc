// Package group содержит доменную модель учебной группы.
// Группа хранит индекс своих событий и номера подгрупп - факты
// расписания с номером подгруппы сопоставляются именно с ними.
package group

import (
	"errors"
	"fmt"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

var (
	// ErrInvalidCode - невалидный код группы.
	ErrInvalidCode = errors.New("invalid group code")

	// ErrGroupNotFound - группа не найдена.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupAlreadyExists - группа уже существует.
	ErrGroupAlreadyExists = errors.New("group already exists")
)

// Group - учебная группа, владелец индекса событий.
type Group struct {
	// ID - уникальный идентификатор (UUID в строковом формате).
	ID string

	// Code - код группы (например, "SE-2301").
	Code user.GroupCode

	// Subgroups - номера подгрупп внутри группы (например, 1 и 2).
	Subgroups []int

	// eventIDs - индекс событий группы.
	eventIDs []string

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewGroup создаёт новую группу с валидацией кода.
func NewGroup(id string, code user.GroupCode, subgroups []int) (*Group, error) {
	if id == "" {
		return nil, fmt.Errorf("group id is required")
	}
	if !code.IsValid() {
		return nil, ErrInvalidCode
	}

	now := time.Now().UTC()

	return &Group{
		ID:        id,
		Code:      code,
		Subgroups: subgroups,
		eventIDs:  make([]string, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Restore восстанавливает группу из хранилища без валидации.
func Restore(id string, code user.GroupCode, subgroups []int, eventIDs []string,
	createdAt, updatedAt time.Time) *Group {

	return &Group{
		ID:        id,
		Code:      code,
		Subgroups: subgroups,
		eventIDs:  eventIDs,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// EventIDs возвращает копию индекса событий группы.
func (g *Group) EventIDs() []string {
	out := make([]string, len(g.eventIDs))
	copy(out, g.eventIDs)
	return out
}

// AddEvent добавляет событие в индекс группы. Повторное добавление - no-op.
func (g *Group) AddEvent(eventID string) {
	for _, id := range g.eventIDs {
		if id == eventID {
			return
		}
	}
	g.eventIDs = append(g.eventIDs, eventID)
	g.UpdatedAt = time.Now().UTC()
}

// RemoveEvent убирает событие из индекса группы. Идемпотентно.
func (g *Group) RemoveEvent(eventID string) {
	for i, id := range g.eventIDs {
		if id == eventID {
			g.eventIDs = append(g.eventIDs[:i], g.eventIDs[i+1:]...)
			g.UpdatedAt = time.Now().UTC()
			return
		}
	}
}

// HasSubgroup возвращает true, если в группе есть подгруппа с таким
// номером.
func (g *Group) HasSubgroup(number int) bool {
	for _, n := range g.Subgroups {
		if n == number {
			return true
		}
	}
	return false
}

// String возвращает строковое представление группы для логирования.
func (g *Group) String() string {
	return fmt.Sprintf("Group{ID: %s, Code: %s, Events: %d}", g.ID, g.Code, len(g.eventIDs))
}
