package event

import (
	"sort"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEUE FORMATION ALGORITHM
//
// Чистая функция упорядочивания: записанные участники, их пожелания,
// carry-over список категории и статистика справедливости дают
// детерминированный финальный порядок.
//
// 1. Участники сортируются стабильно: первичный ключ - ранг пожелания
//    (Start < NoPreference < End), вторичный - AveragePosition по
//    возрастанию. Отсутствие записи справедливости читается как 0.0,
//    то есть максимальный приоритет. Равные ключи сохраняют порядок
//    записи на событие.
// 2. Carry-over участники, записанные на событие с пожеланием != End,
//    переносятся в начало очереди в своём carry-over порядке. Не
//    записанные или попросившие "в конец" теряют перенесённый приоритет.
// 3. Остаток отсортированного пула идёт следом.
// 4. Каждому участнику на индексе i записывается позиция i+1 в
//    статистику справедливости (инкрементальное среднее).
// 5. Carry-over список категории потребляется целиком и очищается.
// ══════════════════════════════════════════════════════════════════════════════

// FairnessLookup возвращает текущую среднюю позицию участника.
// Второе значение false означает отсутствие записи справедливости.
type FairnessLookup func(id user.TelegramID) (avgPosition float64, ok bool)

// FormationResult - результат формирования очереди.
type FormationResult struct {
	// FinalOrder - финальный порядок участников.
	FinalOrder []user.TelegramID

	// Positions - позиция каждого участника в финальном порядке,
	// нумерация с 1. Именно эти значения уходят в статистику
	// справедливости.
	Positions map[user.TelegramID]int

	// CarriedOver - участники, получившие место в начале по carry-over.
	CarriedOver []user.TelegramID
}

// FormOrder вычисляет финальный порядок, не трогая ничьё состояние.
// Дубликаты в carryOver игнорируются после первого вхождения: за их
// отсутствие отвечает категория, алгоритм лишь защищается.
func FormOrder(
	participants []user.TelegramID,
	prefs map[user.TelegramID]Preference,
	carryOver []user.TelegramID,
	lookup FairnessLookup,
) FormationResult {
	avgOf := func(id user.TelegramID) float64 {
		if lookup == nil {
			return 0.0
		}
		avg, ok := lookup(id)
		if !ok {
			return 0.0
		}
		return avg
	}

	pool := make([]user.TelegramID, len(participants))
	copy(pool, participants)

	sort.SliceStable(pool, func(i, j int) bool {
		pi, pj := prefs[pool[i]].Rank(), prefs[pool[j]].Rank()
		if pi != pj {
			return pi < pj
		}
		return avgOf(pool[i]) < avgOf(pool[j])
	})

	enrolled := make(map[user.TelegramID]struct{}, len(participants))
	for _, id := range participants {
		enrolled[id] = struct{}{}
	}

	carried := make([]user.TelegramID, 0, len(carryOver))
	inPrefix := make(map[user.TelegramID]struct{}, len(carryOver))
	for _, id := range carryOver {
		if _, dup := inPrefix[id]; dup {
			continue
		}
		if _, ok := enrolled[id]; !ok {
			// Участник не записан (например, покинул группу) - долг сгорает.
			continue
		}
		if prefs[id] == PreferenceEnd {
			// Явная просьба "в конец" отменяет carry-over приоритет.
			continue
		}
		carried = append(carried, id)
		inPrefix[id] = struct{}{}
	}

	finalOrder := make([]user.TelegramID, 0, len(participants))
	finalOrder = append(finalOrder, carried...)
	for _, id := range pool {
		if _, ok := inPrefix[id]; ok {
			continue
		}
		finalOrder = append(finalOrder, id)
	}

	positions := make(map[user.TelegramID]int, len(finalOrder))
	for i, id := range finalOrder {
		positions[id] = i + 1
	}

	return FormationResult{
		FinalOrder:  finalOrder,
		Positions:   positions,
		CarriedOver: carried,
	}
}

// Form фиксирует финальный порядок на событии. Возвращает false, если
// очередь уже сформирована - в этом случае ничего не меняется и
// статистику справедливости обновлять нельзя (идемпотентность
// повторного запуска цикла сканирования).
func (e *Event) Form(carryOver []user.TelegramID, lookup FairnessLookup) (FormationResult, bool) {
	if e.IsFormed() {
		return FormationResult{}, false
	}

	result := FormOrder(e.participants, e.preferences, carryOver, lookup)

	e.participants = result.FinalOrder
	e.Phase = PhaseFormed
	e.UpdatedAt = time.Now().UTC()

	return result, true
}
