package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/internal/domain/shared"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEUE SERVICE
// Операции, доступные внешним слоям (бот, API): запись и выход из очереди,
// административная пометка незавершивших, явное создание событий и
// категорий. Все операции проходят через UnitOfWork.
// ══════════════════════════════════════════════════════════════════════════════

// QueueService реализует пользовательские операции над очередями.
type QueueService struct {
	uowFactory UnitOfWorkFactory
	offsets    event.TimeOffsets
	logger     *slog.Logger
}

// NewQueueService создаёт новый QueueService.
func NewQueueService(uowFactory UnitOfWorkFactory, offsets event.TimeOffsets, logger *slog.Logger) *QueueService {
	if logger == nil {
		logger = slog.Default()
	}
	if offsets.Notification <= 0 || offsets.Formation <= 0 || offsets.Deletion <= 0 {
		offsets = event.DefaultTimeOffsets()
	}

	return &QueueService{
		uowFactory: uowFactory,
		offsets:    offsets,
		logger:     logger,
	}
}

// Enroll записывает участника на событие с пожеланием.
// Проверяет членство в группе события и отсутствие повторной записи.
// Легально только до формирования очереди.
func (s *QueueService) Enroll(ctx context.Context, eventID string, participantID user.TelegramID, pref event.Preference) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("enroll: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	ev, err := uow.Events().GetByID(ctx, eventID)
	if err != nil {
		return shared.WrapError("event", "Enroll", shared.ErrNotFound, "event not found", err)
	}

	u, err := uow.Users().GetByTelegramID(ctx, participantID)
	if err != nil {
		return shared.WrapError("event", "Enroll", shared.ErrNotFound, "participant not found", err)
	}

	if !u.BelongsTo(ev.GroupCode) {
		return shared.ErrNotGroupMember
	}

	if err := ev.Enroll(participantID, pref); err != nil {
		switch {
		case errors.Is(err, event.ErrAlreadyFormed):
			return shared.ErrEventAlreadyFormed
		case errors.Is(err, event.ErrAlreadyEnrolled):
			return shared.ErrParticipantEnrolled
		default:
			return shared.WrapError("event", "Enroll", shared.ErrValidation, "enrollment rejected", err)
		}
	}

	if err := uow.Events().Update(ctx, ev); err != nil {
		return fmt.Errorf("enroll: update event: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("enroll: commit: %w", err)
	}

	s.logger.Info("participant enrolled",
		"event_id", eventID,
		"participant_id", int64(participantID),
		"preference", string(pref),
	)

	return nil
}

// Withdraw убирает участника из записи. Легально только до формирования.
func (s *QueueService) Withdraw(ctx context.Context, eventID string, participantID user.TelegramID) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("withdraw: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	ev, err := uow.Events().GetByID(ctx, eventID)
	if err != nil {
		return shared.WrapError("event", "Withdraw", shared.ErrNotFound, "event not found", err)
	}

	if err := ev.Withdraw(participantID); err != nil {
		switch {
		case errors.Is(err, event.ErrAlreadyFormed):
			return shared.ErrEventAlreadyFormed
		case errors.Is(err, event.ErrNotEnrolled):
			return shared.ErrParticipantNotInList
		default:
			return shared.WrapError("event", "Withdraw", shared.ErrValidation, "withdrawal rejected", err)
		}
	}

	if err := uow.Events().Update(ctx, ev); err != nil {
		return fmt.Errorf("withdraw: update event: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("withdraw: commit: %w", err)
	}

	s.logger.Info("participant withdrawn",
		"event_id", eventID,
		"participant_id", int64(participantID),
	)

	return nil
}

// MarkUnfinishedFrom переносит хвост сформированной очереди (позиции
// >= cutoff, нумерация с 1) в carry-over список категории-владельца.
// Административная операция: преподаватель отмечает, до кого очередь
// не дошла.
func (s *QueueService) MarkUnfinishedFrom(ctx context.Context, eventID string, cutoff int) error {
	if cutoff < 1 {
		return shared.ErrInvalidCutoff
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("mark unfinished: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	ev, err := uow.Events().GetByID(ctx, eventID)
	if err != nil {
		return shared.WrapError("category", "MarkUnfinished", shared.ErrNotFound, "event not found", err)
	}

	if !ev.IsFormed() {
		return shared.NewDomainError("category", "MarkUnfinished", shared.ErrInvalidState,
			"queue is not formed yet")
	}

	cat, err := uow.Categories().GetByID(ctx, ev.CategoryID)
	if err != nil {
		return shared.ErrCategoryMissing
	}

	if err := cat.MarkUnfinishedFrom(ev.Participants(), cutoff); err != nil {
		return shared.ErrInvalidCutoff
	}

	if err := uow.Categories().Update(ctx, cat); err != nil {
		return fmt.Errorf("mark unfinished: update category: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("mark unfinished: commit: %w", err)
	}

	s.logger.Info("unfinished participants carried over",
		"event_id", eventID,
		"category_id", cat.ID,
		"cutoff", cutoff,
	)

	return nil
}

// CreateEvent создаёт событие для категории вручную (путь явного запроса,
// минуя автосоздание). Пороги жизненного цикла выводятся из occurredOn.
func (s *QueueService) CreateEvent(ctx context.Context, categoryID string, occurredOn time.Time) (*event.Event, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create event: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	cat, err := uow.Categories().GetByID(ctx, categoryID)
	if err != nil {
		return nil, shared.ErrCategoryNotFound
	}

	g, err := uow.Groups().GetByCode(ctx, cat.GroupCode)
	if err != nil {
		return nil, shared.ErrGroupNotFound
	}

	ev, err := event.NewEvent(event.NewEventParams{
		ID:         uuid.NewString(),
		CategoryID: cat.ID,
		GroupCode:  cat.GroupCode,
		OccurredOn: occurredOn,
		Offsets:    s.offsets,
	})
	if err != nil {
		return nil, shared.WrapError("event", "Create", shared.ErrValidation, "invalid event", err)
	}

	if err := uow.Events().Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	g.AddEvent(ev.ID)
	if err := uow.Groups().Update(ctx, g); err != nil {
		return nil, fmt.Errorf("create event: update group index: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create event: commit: %w", err)
	}

	s.logger.Info("event created",
		"event_id", ev.ID,
		"category_id", cat.ID,
		"group", cat.GroupCode.String(),
		"occurred_on", occurredOn.Format(time.RFC3339),
	)

	return ev, nil
}

// CreateCategory создаёт новую категорию для группы.
func (s *QueueService) CreateCategory(ctx context.Context, subjectName string, code user.GroupCode, autoCreate bool) (*category.Category, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create category: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	if _, err := uow.Groups().GetByCode(ctx, code); err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			return nil, shared.ErrGroupNotFound
		}
		return nil, fmt.Errorf("create category: fetch group: %w", err)
	}

	cat, err := category.NewCategory(uuid.NewString(), subjectName, code, autoCreate)
	if err != nil {
		return nil, shared.WrapError("category", "Create", shared.ErrValidation, "invalid category", err)
	}

	if err := uow.Categories().Create(ctx, cat); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create category: commit: %w", err)
	}

	s.logger.Info("category created",
		"category_id", cat.ID,
		"subject", cat.SubjectName,
		"group", code.String(),
		"auto_create", autoCreate,
	)

	return cat, nil
}

// DeleteCategory удаляет категорию вместе с её несформированными
// событиями. Сформированные, но не удалённые события доживают до своего
// DeletionTime.
func (s *QueueService) DeleteCategory(ctx context.Context, categoryID string) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete category: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	cat, err := uow.Categories().GetByID(ctx, categoryID)
	if err != nil {
		return shared.ErrCategoryNotFound
	}

	events, err := uow.Events().GetByCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("delete category: fetch events: %w", err)
	}

	for _, ev := range events {
		if ev.IsFormed() {
			continue
		}
		if err := uow.Events().Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete category: delete event %s: %w", ev.ID, err)
		}
		if g, err := uow.Groups().GetByCode(ctx, ev.GroupCode); err == nil {
			g.RemoveEvent(ev.ID)
			if err := uow.Groups().Update(ctx, g); err != nil {
				return fmt.Errorf("delete category: update group index: %w", err)
			}
		}
	}

	if err := uow.Categories().Delete(ctx, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("delete category: commit: %w", err)
	}

	s.logger.Info("category deleted", "category_id", categoryID, "subject", cat.SubjectName)

	return nil
}
