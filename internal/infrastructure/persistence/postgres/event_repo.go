package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const eventColumns = `id, category_id, group_code, occurred_on,
	   notification_time, formation_time, deletion_time, phase,
	   participants, preferences, created_at, updated_at`

// EventRepository implements event.Repository for PostgreSQL.
//
// Participants and preferences are stored as co-indexed arrays; the
// aligned_preferences constraint keeps them the same length.
type EventRepository struct {
	db Querier
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db Querier) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates a new event.
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (
			id, category_id, group_code, occurred_on,
			notification_time, formation_time, deletion_time, phase,
			participants, preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.CategoryID,
		e.GroupCode.String(),
		e.OccurredOn,
		e.NotificationTime,
		e.FormationTime,
		e.DeletionTime,
		string(e.Phase),
		telegramIDsToInts(e.Participants()),
		preferencesToStrings(e.Preferences()),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return event.ErrEventAlreadyExists
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// GetByID returns an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	return r.scanEvent(r.db.QueryRow(ctx, query, id))
}

// GetDue returns events past the threshold of the given lifecycle phase.
// Each predicate matches a partial index from the migrations.
func (r *EventRepository) GetDue(ctx context.Context, phase event.DuePhase, now time.Time) ([]*event.Event, error) {
	var predicate string
	switch phase {
	case event.DueNotification:
		predicate = `phase = 'created' AND notification_time <= $1`
	case event.DueFormation:
		predicate = `phase IN ('created', 'notified') AND formation_time <= $1`
	case event.DueDeletion:
		predicate = `deletion_time <= $1`
	default:
		return nil, fmt.Errorf("unknown due phase: %q", phase)
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + predicate

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due events: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// GetByGroup returns all events of a group.
func (r *EventRepository) GetByGroup(ctx context.Context, code user.GroupCode) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE group_code = $1 ORDER BY occurred_on`

	rows, err := r.db.Query(ctx, query, code.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query events by group: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// GetByCategory returns all events of a category.
func (r *EventRepository) GetByCategory(ctx context.Context, categoryID string) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE category_id = $1 ORDER BY occurred_on`

	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by category: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// Update updates an event.
func (r *EventRepository) Update(ctx context.Context, e *event.Event) error {
	query := `
		UPDATE events SET
			category_id = $1,
			group_code = $2,
			occurred_on = $3,
			notification_time = $4,
			formation_time = $5,
			deletion_time = $6,
			phase = $7,
			participants = $8,
			preferences = $9,
			updated_at = $10
		WHERE id = $11
	`

	result, err := r.db.Exec(ctx, query,
		e.CategoryID,
		e.GroupCode.String(),
		e.OccurredOn,
		e.NotificationTime,
		e.FormationTime,
		e.DeletionTime,
		string(e.Phase),
		telegramIDsToInts(e.Participants()),
		preferencesToStrings(e.Preferences()),
		time.Now().UTC(),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return event.ErrEventNotFound
	}

	return nil
}

// Delete deletes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return event.ErrEventNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *EventRepository) scanEvent(row pgx.Row) (*event.Event, error) {
	e, err := scanEventFrom(row)
	if IsNoRows(err) {
		return nil, event.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) scanEvents(rows pgx.Rows) ([]*event.Event, error) {
	var events []*event.Event

	for rows.Next() {
		e, err := scanEventFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}

func scanEventFrom(row pgx.Row) (*event.Event, error) {
	var (
		id, categoryID, groupCode string
		occurredOn                time.Time
		notificationTime          time.Time
		formationTime             time.Time
		deletionTime              time.Time
		phase                     string
		participants              []int64
		preferences               []string
		createdAt, updatedAt      time.Time
	)

	err := row.Scan(
		&id, &categoryID, &groupCode, &occurredOn,
		&notificationTime, &formationTime, &deletionTime, &phase,
		&participants, &preferences, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	return event.Restore(event.RestoreParams{
		ID:               id,
		CategoryID:       categoryID,
		GroupCode:        user.GroupCode(groupCode),
		OccurredOn:       occurredOn,
		NotificationTime: notificationTime,
		FormationTime:    formationTime,
		DeletionTime:     deletionTime,
		Phase:            event.Phase(phase),
		Participants:     intsToTelegramIDs(participants),
		Preferences:      stringsToPreferences(preferences),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}), nil
}

func preferencesToStrings(prefs []event.Preference) []string {
	out := make([]string, len(prefs))
	for i, p := range prefs {
		out[i] = string(p)
	}
	return out
}

func stringsToPreferences(raw []string) []event.Preference {
	out := make([]event.Preference, len(raw))
	for i, s := range raw {
		out[i] = event.Preference(s)
	}
	return out
}
