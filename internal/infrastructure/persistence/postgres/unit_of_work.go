package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/queue-hub/queue-manager/internal/application/service"
	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// One pgx transaction wrapping all four repositories. The repositories are
// written against Querier, so the same code runs here against pgx.Tx.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork implements service.UnitOfWork over a pgx transaction.
type UnitOfWork struct {
	tx pgx.Tx

	events     *EventRepository
	categories *CategoryRepository
	users      *UserRepository
	groups     *GroupRepository
}

// newUnitOfWork binds tx-scoped repositories to the transaction.
func newUnitOfWork(tx pgx.Tx) *UnitOfWork {
	return &UnitOfWork{
		tx:         tx,
		events:     NewEventRepository(tx),
		categories: NewCategoryRepository(tx),
		users:      NewUserRepository(tx),
		groups:     NewGroupRepository(tx),
	}
}

// Events returns the transaction-scoped event repository.
func (u *UnitOfWork) Events() event.Repository {
	return u.events
}

// Categories returns the transaction-scoped category repository.
func (u *UnitOfWork) Categories() category.Repository {
	return u.categories
}

// Users returns the transaction-scoped user repository.
func (u *UnitOfWork) Users() user.Repository {
	return u.users
}

// Groups returns the transaction-scoped group repository.
func (u *UnitOfWork) Groups() group.Repository {
	return u.groups
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}
	return nil
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("%w: rollback: %w", ErrTransactionFailed, err)
	}
	return nil
}

// UnitOfWorkFactory creates units of work on a connection pool.
type UnitOfWorkFactory struct {
	conn *Connection
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory.
func NewUnitOfWorkFactory(conn *Connection) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{conn: conn}
}

// Begin starts a new transaction.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (service.UnitOfWork, error) {
	tx, err := f.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return newUnitOfWork(tx), nil
}
