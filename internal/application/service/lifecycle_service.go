package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/shared"
	"github.com/queue-hub/queue-manager/internal/domain/user"
	"github.com/queue-hub/queue-manager/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE SERVICE
// Машина фаз событий. Переходы запускаются только сравнением порогов со
// временем "сейчас", которое передаётся снаружи - это делает цикл
// детерминированно тестируемым с ручными часами.
//
//	Created → Notified → Formed, удаление из любой фазы по DeletionTime.
//
// Переходы идемпотентны: фаза защищает от повторного входа, поэтому
// упавший на полпути переход безопасно повторяется на следующем цикле.
// ══════════════════════════════════════════════════════════════════════════════

// TransitionOutcome - результат обработки одного события в цикле.
type TransitionOutcome struct {
	// EventID - обработанное событие.
	EventID string

	// CategoryID - категория события (если известна).
	CategoryID string

	// Transition - фаза, в которую событие перешло.
	Transition event.Phase

	// Err - ошибка обработки. Ошибка одного события не прерывает цикл.
	Err error
}

// TransitionReport - отчёт одного цикла сканирования.
type TransitionReport struct {
	// At - момент "сейчас", с которым сравнивались пороги.
	At time.Time

	// Outcomes - по записи на каждое обработанное событие.
	Outcomes []TransitionOutcome
}

// Count возвращает число успешных переходов в указанную фазу.
func (r *TransitionReport) Count(phase event.Phase) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Transition == phase {
			n++
		}
	}
	return n
}

// Failed возвращает число событий, обработка которых завершилась ошибкой.
func (r *TransitionReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// LifecycleConfig содержит настройки цикла сканирования.
type LifecycleConfig struct {
	// MaxConcurrent - сколько событий обрабатывать параллельно.
	// События одной категории при этом всегда сериализуются.
	MaxConcurrent int
}

// DefaultLifecycleConfig возвращает настройки по умолчанию.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{MaxConcurrent: 4}
}

// LifecycleService управляет переходами фаз событий.
type LifecycleService struct {
	uowFactory UnitOfWorkFactory
	events     event.Repository
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	config     LifecycleConfig

	// fairness - необязательное зеркало статистики справедливости
	// (горячий кеш). Источник истины - репозиторий участников.
	fairness user.FairnessStore

	// catLocks сериализует формирование в рамках одной категории:
	// два события одной категории не должны одновременно потреблять
	// carry-over список.
	catLocks sync.Map // category id -> *sync.Mutex
}

// NewLifecycleService создаёт новый LifecycleService.
// events - читающий репозиторий для выборки должных событий; мутации
// идут через uowFactory. metrics может быть nil.
func NewLifecycleService(
	uowFactory UnitOfWorkFactory,
	events event.Repository,
	notifier Notifier,
	logger *slog.Logger,
	m *metrics.Metrics,
	config LifecycleConfig,
) *LifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultLifecycleConfig().MaxConcurrent
	}

	return &LifecycleService{
		uowFactory: uowFactory,
		events:     events,
		notifier:   notifier,
		logger:     logger,
		metrics:    m,
		config:     config,
	}
}

// WithFairnessMirror включает зеркалирование обновлённой статистики
// справедливости во внешний стор (кеш). Ошибки зеркала не влияют на
// формирование.
func (s *LifecycleService) WithFairnessMirror(store user.FairnessStore) *LifecycleService {
	s.fairness = store
	return s
}

// pendingAction - что цикл собирается сделать с событием.
type pendingAction struct {
	ev     *event.Event
	target event.Phase
}

// Tick выполняет один цикл сканирования: находит события, пересёкшие
// пороги, и применяет переходы. Ошибка одного события записывается в
// отчёт и не прерывает обработку остальных. Ноль должных событий - no-op.
func (s *LifecycleService) Tick(ctx context.Context, now time.Time) (*TransitionReport, error) {
	started := time.Now()
	report := &TransitionReport{At: now}

	work, err := s.collectDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("tick: collect due events: %w", err)
	}
	if len(work) == 0 {
		return report, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.config.MaxConcurrent)
	)

	for _, action := range work {
		wg.Add(1)
		sem <- struct{}{}
		go func(a pendingAction) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := s.apply(ctx, a, now)

			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcome)
			mu.Unlock()
		}(action)
	}

	wg.Wait()

	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(started), report.Failed())
	}

	s.logger.Info("scan cycle completed",
		"due", len(work),
		"notified", report.Count(event.PhaseNotified),
		"formed", report.Count(event.PhaseFormed),
		"deleted", report.Count(event.PhaseDeleted),
		"failed", report.Failed(),
		"duration", time.Since(started).String(),
	)

	return report, nil
}

// collectDue выбирает должные события и назначает каждому одну цель.
// Приоритет: удаление > формирование > уведомление - событие, чей
// DeletionTime прошёл, просто удаляется, а событие с пропущенным окном
// уведомления формируется сразу (Created → Formed).
func (s *LifecycleService) collectDue(ctx context.Context, now time.Time) ([]pendingAction, error) {
	actions := make(map[string]pendingAction)

	due, err := s.events.GetDue(ctx, event.DueNotification, now)
	if err != nil {
		return nil, err
	}
	for _, ev := range due {
		actions[ev.ID] = pendingAction{ev: ev, target: event.PhaseNotified}
	}

	due, err = s.events.GetDue(ctx, event.DueFormation, now)
	if err != nil {
		return nil, err
	}
	for _, ev := range due {
		actions[ev.ID] = pendingAction{ev: ev, target: event.PhaseFormed}
	}

	due, err = s.events.GetDue(ctx, event.DueDeletion, now)
	if err != nil {
		return nil, err
	}
	for _, ev := range due {
		actions[ev.ID] = pendingAction{ev: ev, target: event.PhaseDeleted}
	}

	out := make([]pendingAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, a)
	}
	return out, nil
}

// apply выполняет один переход и строит запись отчёта.
func (s *LifecycleService) apply(ctx context.Context, a pendingAction, now time.Time) TransitionOutcome {
	outcome := TransitionOutcome{
		EventID:    a.ev.ID,
		CategoryID: a.ev.CategoryID,
		Transition: a.target,
	}

	var err error
	switch a.target {
	case event.PhaseNotified:
		err = s.notify(ctx, a.ev.ID)
	case event.PhaseFormed:
		err = s.form(ctx, a.ev.ID, a.ev.CategoryID)
	case event.PhaseDeleted:
		err = s.delete(ctx, a.ev.ID)
	}

	outcome.Err = err

	if s.metrics != nil {
		s.metrics.RecordTransition(string(a.target), err == nil)
	}

	if err != nil {
		s.logger.Error("event transition failed",
			"event_id", a.ev.ID,
			"transition", string(a.target),
			"invariant_violation", shared.IsInvariantViolation(err),
			"error", err,
		)
	}

	return outcome
}

// notify переводит событие в фазу Notified и запускает рассылку.
// Рассылка - внешний побочный эффект: её ошибка логируется, но переход
// фазы уже зафиксирован и не повторяется.
func (s *LifecycleService) notify(ctx context.Context, eventID string) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("notify: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	ev, err := uow.Events().GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return nil // уже удалено параллельным переходом
		}
		return fmt.Errorf("notify: fetch event: %w", err)
	}

	if ev.IsNotified() {
		return nil
	}

	ev.MarkNotified()

	if err := uow.Events().Update(ctx, ev); err != nil {
		return fmt.Errorf("notify: update event: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("notify: commit: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyGroup(ctx, ev.GroupCode, ev); err != nil {
			s.logger.Warn("group notification delivery failed",
				"event_id", ev.ID,
				"group", ev.GroupCode.String(),
				"error", err,
			)
		}
	}

	return nil
}

// form фиксирует финальный порядок очереди. Весь шаг - потребление
// carry-over, вычисление порядка, обновление статистики справедливости
// и фазы - выполняется в одной транзакции и под замком категории.
func (s *LifecycleService) form(ctx context.Context, eventID, categoryID string) error {
	lock := s.lockFor(categoryID)
	lock.Lock()
	defer lock.Unlock()

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("form: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	ev, err := uow.Events().GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return nil
		}
		return fmt.Errorf("form: fetch event: %w", err)
	}

	if ev.IsFormed() {
		return nil
	}

	cat, err := uow.Categories().GetByID(ctx, ev.CategoryID)
	if err != nil {
		// Событие ссылается на несуществующую категорию - данные сломаны,
		// событие пропускается и помечается для оператора.
		return shared.WrapError("category", "FormQueue", shared.ErrInvariantViolation,
			fmt.Sprintf("event %s references missing category %s", ev.ID, ev.CategoryID), err)
	}

	participants := ev.Participants()
	users, err := uow.Users().GetByTelegramIDs(ctx, participants)
	if err != nil {
		return fmt.Errorf("form: fetch participants: %w", err)
	}

	byID := make(map[user.TelegramID]*user.User, len(users))
	for _, u := range users {
		byID[u.TelegramID] = u
	}

	lookup := func(id user.TelegramID) (float64, bool) {
		u, ok := byID[id]
		if !ok {
			return 0.0, false
		}
		return u.AveragePosition, true
	}

	carry := cat.ConsumeCarryOver()

	result, formed := ev.Form(carry, lookup)
	if !formed {
		return nil
	}

	for _, u := range byID {
		pos, ok := result.Positions[u.TelegramID]
		if !ok {
			continue
		}
		if err := u.RecordPosition(pos); err != nil {
			return fmt.Errorf("form: record position for %d: %w", u.TelegramID, err)
		}
		if err := uow.Users().Update(ctx, u); err != nil {
			return fmt.Errorf("form: update fairness record: %w", err)
		}
	}

	if err := uow.Events().Update(ctx, ev); err != nil {
		return fmt.Errorf("form: update event: %w", err)
	}

	if err := uow.Categories().Update(ctx, cat); err != nil {
		return fmt.Errorf("form: update category: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("form: commit: %w", err)
	}

	if s.fairness != nil {
		for _, u := range byID {
			if _, ok := result.Positions[u.TelegramID]; !ok {
				continue
			}
			if err := s.fairness.UpdateFairness(ctx, u.TelegramID, u.AveragePosition, u.ParticipationCount); err != nil {
				s.logger.Warn("fairness mirror update failed",
					"participant_id", int64(u.TelegramID),
					"error", err,
				)
			}
		}
	}

	s.logger.Info("queue formed",
		"event_id", ev.ID,
		"category_id", cat.ID,
		"queue_size", len(result.FinalOrder),
		"carried_over", len(result.CarriedOver),
	)

	return nil
}

// delete удаляет событие и его запись в индексе группы.
func (s *LifecycleService) delete(ctx context.Context, eventID string) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	ev, err := uow.Events().GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return nil // удаление идемпотентно
		}
		return fmt.Errorf("delete: fetch event: %w", err)
	}

	if g, gerr := uow.Groups().GetByCode(ctx, ev.GroupCode); gerr == nil {
		g.RemoveEvent(ev.ID)
		if err := uow.Groups().Update(ctx, g); err != nil {
			return fmt.Errorf("delete: update group index: %w", err)
		}
	} else {
		s.logger.Warn("group not found while deleting event",
			"event_id", ev.ID,
			"group", ev.GroupCode.String(),
		)
	}

	if err := uow.Events().Delete(ctx, ev.ID); err != nil {
		return fmt.Errorf("delete: delete event: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("delete: commit: %w", err)
	}

	s.logger.Info("event deleted", "event_id", ev.ID, "phase", string(ev.Phase))

	return nil
}

// lockFor возвращает замок категории, создавая его при первом обращении.
func (s *LifecycleService) lockFor(categoryID string) *sync.Mutex {
	v, _ := s.catLocks.LoadOrStore(categoryID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
