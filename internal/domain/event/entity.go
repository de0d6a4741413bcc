// Package event содержит доменную модель события очереди - одного
// вхождения повторяющейся активности (например, сдачи работ на паре).
// Жизненный цикл события управляется временем, а не внешними командами:
// уведомление, формирование очереди и удаление наступают по порогам,
// вычисленным от времени проведения.
package event

import (
	"fmt"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS & ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Preference - пожелание участника о месте в очереди.
type Preference string

const (
	// PreferenceStart - участник хочет быть в начале очереди.
	PreferenceStart Preference = "start"
	// PreferenceEnd - участник хочет быть в конце очереди.
	// Явная просьба "в конец" отменяет carry-over приоритет.
	PreferenceEnd Preference = "end"
	// PreferenceNone - участнику всё равно.
	PreferenceNone Preference = "none"
)

// IsValid проверяет, что пожелание корректно.
func (p Preference) IsValid() bool {
	switch p {
	case PreferenceStart, PreferenceEnd, PreferenceNone:
		return true
	default:
		return false
	}
}

// Rank возвращает ранг пожелания для сортировки:
// Start < NoPreference < End.
func (p Preference) Rank() int {
	switch p {
	case PreferenceStart:
		return 0
	case PreferenceEnd:
		return 2
	default:
		return 1
	}
}

// Phase - фаза жизненного цикла события. Переходы строго односторонние:
// Created → Notified → Formed, из любой фазы событие удаляется по
// наступлению DeletionTime (Created может уйти в удаление, минуя
// формирование - путь заброшенного события).
type Phase string

const (
	// PhaseCreated - событие создано, запись открыта.
	PhaseCreated Phase = "created"
	// PhaseNotified - группа уведомлена о предстоящем событии.
	PhaseNotified Phase = "notified"
	// PhaseFormed - финальный порядок очереди вычислен и зафиксирован.
	PhaseFormed Phase = "formed"
	// PhaseDeleted - событие удалено. Не хранится: удаление убирает
	// запись, константа используется в отчётах о переходах.
	PhaseDeleted Phase = "deleted"
)

// IsValid проверяет, что фаза корректна.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseCreated, PhaseNotified, PhaseFormed:
		return true
	default:
		return false
	}
}

// TimeOffsets определяет, как пороги жизненного цикла вычисляются от
// времени проведения события.
type TimeOffsets struct {
	// Notification - за сколько до проведения уведомлять группу.
	Notification time.Duration

	// Formation - за сколько до проведения фиксировать очередь.
	Formation time.Duration

	// Deletion - через сколько после проведения удалять событие.
	Deletion time.Duration
}

// DefaultTimeOffsets возвращает пороги по умолчанию:
// уведомление за 48 часов, формирование за 24 часа, удаление через 24 часа.
func DefaultTimeOffsets() TimeOffsets {
	return TimeOffsets{
		Notification: 48 * time.Hour,
		Formation:    24 * time.Hour,
		Deletion:     24 * time.Hour,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EVENT
// ══════════════════════════════════════════════════════════════════════════════

// Event - одно вхождение повторяющейся активности.
//
// participants хранит порядок записи до формирования и финальный порядок
// после него. preferences - пожелание каждого записанного участника,
// ровно одно на участника. Участник записывается не более одного раза;
// выход из очереди возможен только до формирования.
type Event struct {
	// ID - уникальный идентификатор (UUID в строковом формате).
	ID string

	// CategoryID - ссылка на категорию-владельца carry-over списка.
	// Только ссылка: событие никогда не хранит копию состояния категории.
	CategoryID string

	// GroupCode - группа, участники которой могут записываться.
	GroupCode user.GroupCode

	// OccurredOn - время проведения активности.
	OccurredOn time.Time

	// NotificationTime - когда уведомить группу.
	NotificationTime time.Time

	// FormationTime - когда зафиксировать финальный порядок.
	FormationTime time.Time

	// DeletionTime - когда удалить событие.
	DeletionTime time.Time

	// Phase - текущая фаза жизненного цикла.
	Phase Phase

	participants []user.TelegramID
	preferences  map[user.TelegramID]Preference

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewEventParams содержит параметры для создания нового события.
type NewEventParams struct {
	ID         string
	CategoryID string
	GroupCode  user.GroupCode
	OccurredOn time.Time
	Offsets    TimeOffsets
}

// NewEvent создаёт новое событие с порогами, выведенными из времени
// проведения.
func NewEvent(params NewEventParams) (*Event, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if params.CategoryID == "" {
		return nil, ErrMissingCategory
	}
	if !params.GroupCode.IsValid() {
		return nil, ErrInvalidGroupCode
	}
	if params.OccurredOn.IsZero() {
		return nil, ErrInvalidOccurredOn
	}

	offsets := params.Offsets
	if offsets.Notification <= 0 || offsets.Formation <= 0 || offsets.Deletion <= 0 {
		offsets = DefaultTimeOffsets()
	}

	now := time.Now().UTC()

	return &Event{
		ID:               params.ID,
		CategoryID:       params.CategoryID,
		GroupCode:        params.GroupCode,
		OccurredOn:       params.OccurredOn,
		NotificationTime: params.OccurredOn.Add(-offsets.Notification),
		FormationTime:    params.OccurredOn.Add(-offsets.Formation),
		DeletionTime:     params.OccurredOn.Add(offsets.Deletion),
		Phase:            PhaseCreated,
		participants:     make([]user.TelegramID, 0),
		preferences:      make(map[user.TelegramID]Preference),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// RestoreParams содержит состояние события из хранилища.
// Participants и Preferences соиндексированы.
type RestoreParams struct {
	ID               string
	CategoryID       string
	GroupCode        user.GroupCode
	OccurredOn       time.Time
	NotificationTime time.Time
	FormationTime    time.Time
	DeletionTime     time.Time
	Phase            Phase
	Participants     []user.TelegramID
	Preferences      []Preference
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Restore восстанавливает событие из хранилища без валидации.
func Restore(params RestoreParams) *Event {
	prefs := make(map[user.TelegramID]Preference, len(params.Participants))
	for i, id := range params.Participants {
		if i < len(params.Preferences) {
			prefs[id] = params.Preferences[i]
		} else {
			prefs[id] = PreferenceNone
		}
	}

	participants := make([]user.TelegramID, len(params.Participants))
	copy(participants, params.Participants)

	phase := params.Phase
	if !phase.IsValid() {
		phase = PhaseCreated
	}

	return &Event{
		ID:               params.ID,
		CategoryID:       params.CategoryID,
		GroupCode:        params.GroupCode,
		OccurredOn:       params.OccurredOn,
		NotificationTime: params.NotificationTime,
		FormationTime:    params.FormationTime,
		DeletionTime:     params.DeletionTime,
		Phase:            phase,
		participants:     participants,
		preferences:      prefs,
		CreatedAt:        params.CreatedAt,
		UpdatedAt:        params.UpdatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enroll записывает участника с пожеланием. Запись возможна только до
// формирования очереди и не более одного раза на участника.
func (e *Event) Enroll(id user.TelegramID, pref Preference) error {
	if e.IsFormed() {
		return ErrAlreadyFormed
	}
	if !pref.IsValid() {
		return ErrInvalidPreference
	}
	if _, ok := e.preferences[id]; ok {
		return ErrAlreadyEnrolled
	}

	e.preferences[id] = pref
	e.participants = append(e.participants, id)
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// Withdraw убирает участника из записи. Легально только до формирования.
func (e *Event) Withdraw(id user.TelegramID) error {
	if e.IsFormed() {
		return ErrAlreadyFormed
	}
	if _, ok := e.preferences[id]; !ok {
		return ErrNotEnrolled
	}

	delete(e.preferences, id)
	for i, p := range e.participants {
		if p == id {
			e.participants = append(e.participants[:i], e.participants[i+1:]...)
			break
		}
	}
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// IsEnrolled возвращает true, если участник записан.
func (e *Event) IsEnrolled(id user.TelegramID) bool {
	_, ok := e.preferences[id]
	return ok
}

// Participants возвращает копию списка участников в текущем порядке
// (порядок записи до формирования, финальный порядок после).
func (e *Event) Participants() []user.TelegramID {
	out := make([]user.TelegramID, len(e.participants))
	copy(out, e.participants)
	return out
}

// PreferenceOf возвращает пожелание участника.
func (e *Event) PreferenceOf(id user.TelegramID) (Preference, bool) {
	p, ok := e.preferences[id]
	return p, ok
}

// Preferences возвращает пожелания в порядке участников (соиндексировано
// с Participants) - формат хранения.
func (e *Event) Preferences() []Preference {
	out := make([]Preference, len(e.participants))
	for i, id := range e.participants {
		out[i] = e.preferences[id]
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// PHASE TRANSITIONS
// Переходы управляются только сравнением времени с "сейчас".
// ══════════════════════════════════════════════════════════════════════════════

// IsNotified возвращает true, если группа уже уведомлена.
func (e *Event) IsNotified() bool {
	return e.Phase == PhaseNotified || e.Phase == PhaseFormed
}

// IsFormed возвращает true, если финальный порядок зафиксирован.
func (e *Event) IsFormed() bool {
	return e.Phase == PhaseFormed
}

// NotificationDue возвращает true, если пора уведомлять.
func (e *Event) NotificationDue(now time.Time) bool {
	return !e.IsNotified() && !now.Before(e.NotificationTime)
}

// FormationDue возвращает true, если пора фиксировать очередь.
func (e *Event) FormationDue(now time.Time) bool {
	return !e.IsFormed() && !now.Before(e.FormationTime)
}

// DeletionDue возвращает true, если событие пора удалять.
func (e *Event) DeletionDue(now time.Time) bool {
	return !now.Before(e.DeletionTime)
}

// MarkNotified переводит событие в фазу Notified. Идемпотентно:
// повторный вызов для уже уведомлённого события - no-op.
func (e *Event) MarkNotified() {
	if e.IsNotified() {
		return
	}
	e.Phase = PhaseNotified
	e.UpdatedAt = time.Now().UTC()
}

// String возвращает строковое представление события для логирования.
func (e *Event) String() string {
	return fmt.Sprintf(
		"Event{ID: %s, Group: %s, Phase: %s, Participants: %d, OccurredOn: %s}",
		e.ID, e.GroupCode, e.Phase, len(e.participants), e.OccurredOn.Format(time.RFC3339),
	)
}

// Clone создаёт глубокую копию события.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	clone := *e
	clone.participants = make([]user.TelegramID, len(e.participants))
	copy(clone.participants, e.participants)
	clone.preferences = make(map[user.TelegramID]Preference, len(e.preferences))
	for k, v := range e.preferences {
		clone.preferences[k] = v
	}
	return &clone
}
