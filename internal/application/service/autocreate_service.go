package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTOCREATE SERVICE
// Фидер автосоздания: раз в сутки сопоставляет факты внешнего расписания
// с категориями, у которых включено автосоздание, и заводит по событию
// на каждое совпадение. Совпадение - точное равенство предмета и кода
// группы; занятие подгруппы учитывается, только если такая подгруппа
// есть у группы.
// ══════════════════════════════════════════════════════════════════════════════

// AutoCreateService создаёт события из фактов расписания.
type AutoCreateService struct {
	uowFactory UnitOfWorkFactory
	source     ScheduleSource
	offsets    event.TimeOffsets
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewAutoCreateService создаёт новый AutoCreateService. metrics может
// быть nil.
func NewAutoCreateService(
	uowFactory UnitOfWorkFactory,
	source ScheduleSource,
	offsets event.TimeOffsets,
	logger *slog.Logger,
	m *metrics.Metrics,
) *AutoCreateService {
	if logger == nil {
		logger = slog.Default()
	}
	if offsets.Notification <= 0 || offsets.Formation <= 0 || offsets.Deletion <= 0 {
		offsets = event.DefaultTimeOffsets()
	}

	return &AutoCreateService{
		uowFactory: uowFactory,
		source:     source,
		offsets:    offsets,
		logger:     logger,
		metrics:    m,
	}
}

// RunResult - итог одного прогона фидера.
type RunResult struct {
	// Entries - сколько фактов расписания пришло от источника.
	Entries int

	// Created - сколько событий создано.
	Created int

	// Skipped - сколько фактов отброшено (нет категории, выключено
	// автосоздание, нет подгруппы, дубликат).
	Skipped int
}

// Run выполняет один прогон: запрашивает расписание на date и создаёт
// события для совпавших категорий. Факт без совпадения молча
// пропускается. Прогон идемпотентен в пределах даты: если у категории
// уже есть событие на этот момент, второе не создаётся.
func (s *AutoCreateService) Run(ctx context.Context, date time.Time) (*RunResult, error) {
	entries, err := s.source.Entries(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("autocreate: fetch schedule: %w", err)
	}

	result := &RunResult{Entries: len(entries)}

	for _, entry := range entries {
		created, err := s.processEntry(ctx, entry)
		if err != nil {
			// Ошибка одного факта не прерывает прогон.
			s.logger.Error("schedule entry processing failed",
				"subject", entry.SubjectName,
				"group", entry.GroupCode.String(),
				"error", err,
			)
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAutoCreate(result.Created, result.Skipped)
	}

	s.logger.Info("autocreate run completed",
		"date", date.Format("2006-01-02"),
		"entries", result.Entries,
		"created", result.Created,
		"skipped", result.Skipped,
	)

	return result, nil
}

// processEntry сопоставляет один факт расписания с категорией и при
// совпадении создаёт событие. Возвращает true, если событие создано.
func (s *AutoCreateService) processEntry(ctx context.Context, entry ScheduleEntry) (bool, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	g, err := uow.Groups().GetByCode(ctx, entry.GroupCode)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			return false, nil // группа не обслуживается
		}
		return false, fmt.Errorf("fetch group: %w", err)
	}

	if entry.SubgroupNumber != nil && !g.HasSubgroup(*entry.SubgroupNumber) {
		return false, nil
	}

	cat, err := uow.Categories().GetByGroupAndSubject(ctx, entry.GroupCode, strings.TrimSpace(entry.SubjectName))
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return false, nil // для предмета очередь не заведена
		}
		return false, fmt.Errorf("fetch category: %w", err)
	}

	if !cat.IsAutoCreate {
		return false, nil
	}

	existing, err := uow.Events().GetByCategory(ctx, cat.ID)
	if err != nil {
		return false, fmt.Errorf("fetch category events: %w", err)
	}
	for _, ev := range existing {
		if ev.OccurredOn.Equal(entry.OccurredOn) {
			return false, nil // событие на этот момент уже есть
		}
	}

	ev, err := event.NewEvent(event.NewEventParams{
		ID:         uuid.NewString(),
		CategoryID: cat.ID,
		GroupCode:  cat.GroupCode,
		OccurredOn: entry.OccurredOn,
		Offsets:    s.offsets,
	})
	if err != nil {
		return false, fmt.Errorf("build event: %w", err)
	}

	if err := uow.Events().Create(ctx, ev); err != nil {
		return false, fmt.Errorf("create event: %w", err)
	}

	g.AddEvent(ev.ID)
	if err := uow.Groups().Update(ctx, g); err != nil {
		return false, fmt.Errorf("update group index: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("event auto-created",
		"event_id", ev.ID,
		"category_id", cat.ID,
		"subject", cat.SubjectName,
		"group", cat.GroupCode.String(),
		"occurred_on", entry.OccurredOn.Format(time.RFC3339),
	)

	return true, nil
}
