// Package user содержит доменную модель участника очередей.
// Это ядро статистики справедливости - здесь нет внешних зависимостей.
package user

import (
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// TelegramID представляет уникальный идентификатор участника в Telegram.
// Именно им участник идентифицируется в очередях и carry-over списках.
type TelegramID int64

// IsValid проверяет, что TelegramID положительный.
func (t TelegramID) IsValid() bool {
	return t > 0
}

// GroupCode представляет код учебной группы (например, "SE-2301").
type GroupCode string

// IsValid проверяет корректность кода группы.
func (g GroupCode) IsValid() bool {
	s := string(g)
	return len(s) >= 2 && len(s) <= 30 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление кода группы.
func (g GroupCode) String() string {
	return string(g)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User - участник очередей со статистикой справедливости.
//
// AveragePosition - скользящее среднее финальных позиций участника по всем
// прошедшим формированиям. Алгоритм упорядочивания читает и обновляет только
// два поля: AveragePosition и ParticipationCount. Формула инкрементального
// среднего является контрактом:
//
//	newAvg = (oldAvg*count + newPosition) / (count + 1); count += 1
//
// При count порядка десятков тысяч double-precision не теряет точность,
// достаточную для сортировки.
type User struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// TelegramID - идентификатор участника в Telegram.
	TelegramID TelegramID

	// FullName - полное имя участника.
	FullName string

	// Username - username в Telegram (без @).
	Username string

	// GroupCodes - коды групп, к которым принадлежит участник.
	GroupCodes []GroupCode

	// AveragePosition - среднее финальное место в сформированных очередях.
	AveragePosition float64

	// ParticipationCount - сколько формирований участник прошёл.
	ParticipationCount int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewUserParams содержит параметры для создания нового участника.
type NewUserParams struct {
	ID         string
	TelegramID TelegramID
	FullName   string
	Username   string
	GroupCodes []GroupCode
}

// NewUser создаёт нового участника с валидацией всех полей.
func NewUser(params NewUserParams) (*User, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if !params.TelegramID.IsValid() {
		return nil, ErrInvalidTelegramID
	}

	fullName := strings.TrimSpace(params.FullName)
	if len(fullName) == 0 || len(fullName) > 100 {
		return nil, ErrInvalidFullName
	}

	for _, code := range params.GroupCodes {
		if !code.IsValid() {
			return nil, ErrInvalidGroupCode
		}
	}

	now := time.Now().UTC()

	return &User{
		ID:                 params.ID,
		TelegramID:         params.TelegramID,
		FullName:           fullName,
		Username:           strings.TrimSpace(params.Username),
		GroupCodes:         params.GroupCodes,
		AveragePosition:    0.0,
		ParticipationCount: 0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// BelongsTo возвращает true, если участник состоит в указанной группе.
func (u *User) BelongsTo(code GroupCode) bool {
	for _, c := range u.GroupCodes {
		if c == code {
			return true
		}
	}
	return false
}

// RecordPosition обновляет статистику справедливости после формирования
// очереди. position - финальное место участника, начиная с 1.
func (u *User) RecordPosition(position int) error {
	if position < 1 {
		return ErrInvalidPosition
	}

	total := u.AveragePosition * float64(u.ParticipationCount)
	u.ParticipationCount++
	u.AveragePosition = (total + float64(position)) / float64(u.ParticipationCount)
	u.UpdatedAt = time.Now().UTC()

	return nil
}

// UpdateInfo обновляет имя и username участника.
func (u *User) UpdateInfo(fullName, username string) {
	u.FullName = strings.TrimSpace(fullName)
	u.Username = strings.TrimSpace(username)
	u.UpdatedAt = time.Now().UTC()
}

// JoinGroup добавляет участника в группу. Повторное добавление - no-op.
func (u *User) JoinGroup(code GroupCode) {
	if u.BelongsTo(code) {
		return
	}
	u.GroupCodes = append(u.GroupCodes, code)
	u.UpdatedAt = time.Now().UTC()
}

// LeaveGroup убирает участника из группы.
func (u *User) LeaveGroup(code GroupCode) {
	for i, c := range u.GroupCodes {
		if c == code {
			u.GroupCodes = append(u.GroupCodes[:i], u.GroupCodes[i+1:]...)
			u.UpdatedAt = time.Now().UTC()
			return
		}
	}
}

// String возвращает строковое представление участника для логирования.
func (u *User) String() string {
	return fmt.Sprintf(
		"User{ID: %s, TelegramID: %d, AvgPos: %.2f, Count: %d}",
		u.ID, u.TelegramID, u.AveragePosition, u.ParticipationCount,
	)
}

// Clone создаёт глубокую копию участника.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	clone := *u
	clone.GroupCodes = make([]GroupCode, len(u.GroupCodes))
	copy(clone.GroupCodes, u.GroupCodes)
	return &clone
}
