package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const userColumns = `id, telegram_id, full_name, username, group_codes,
	   average_position, participation_count, created_at, updated_at`

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, telegram_id, full_name, username, group_codes,
			average_position, participation_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		u.ID,
		int64(u.TelegramID),
		u.FullName,
		u.Username,
		groupCodesToStrings(u.GroupCodes),
		u.AveragePosition,
		u.ParticipationCount,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByTelegramID returns a user by Telegram ID.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID user.TelegramID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, int64(telegramID)))
}

// GetByTelegramIDs returns users by a list of Telegram IDs.
// Missing users are silently skipped.
func (r *UserRepository) GetByTelegramIDs(ctx context.Context, ids []user.TelegramID) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = ANY($1)`

	rows, err := r.db.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by telegram ids: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// Update updates a user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			telegram_id = $1,
			full_name = $2,
			username = $3,
			group_codes = $4,
			average_position = $5,
			participation_count = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.Exec(ctx, query,
		int64(u.TelegramID),
		u.FullName,
		u.Username,
		groupCodesToStrings(u.GroupCodes),
		u.AveragePosition,
		u.ParticipationCount,
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// Delete deletes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// MembersOf returns Telegram IDs of all members of a group.
// Implements user.GroupMembership for the notifier.
func (r *UserRepository) MembersOf(ctx context.Context, code user.GroupCode) ([]user.TelegramID, error) {
	query := `SELECT telegram_id FROM users WHERE $1 = ANY(group_codes)`

	rows, err := r.db.Query(ctx, query, code.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var members []user.TelegramID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		members = append(members, user.TelegramID(id))
	}

	return members, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var telegramID int64
	var codes []string

	err := row.Scan(
		&u.ID,
		&telegramID,
		&u.FullName,
		&u.Username,
		&codes,
		&u.AveragePosition,
		&u.ParticipationCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.TelegramID = user.TelegramID(telegramID)
	u.GroupCodes = stringsToGroupCodes(codes)

	return &u, nil
}

func (r *UserRepository) scanUsers(rows pgx.Rows) ([]*user.User, error) {
	var users []*user.User

	for rows.Next() {
		var u user.User
		var telegramID int64
		var codes []string

		err := rows.Scan(
			&u.ID,
			&telegramID,
			&u.FullName,
			&u.Username,
			&codes,
			&u.AveragePosition,
			&u.ParticipationCount,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		u.TelegramID = user.TelegramID(telegramID)
		u.GroupCodes = stringsToGroupCodes(codes)

		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

func groupCodesToStrings(codes []user.GroupCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.String()
	}
	return out
}

func stringsToGroupCodes(raw []string) []user.GroupCode {
	out := make([]user.GroupCode, len(raw))
	for i, s := range raw {
		out[i] = user.GroupCode(s)
	}
	return out
}
