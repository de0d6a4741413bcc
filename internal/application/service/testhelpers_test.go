package service

import (
	"context"
	"sync"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// Репозитории поверх общих map-ов с клонированием на чтении и записи:
// мутация видна только после Update, как и с настоящим хранилищем.
// ══════════════════════════════════════════════════════════════════════════════

type memStore struct {
	mu         sync.Mutex
	events     map[string]*event.Event
	categories map[string]*category.Category
	users      map[user.TelegramID]*user.User
	groups     map[user.GroupCode]*group.Group
}

func newMemStore() *memStore {
	return &memStore{
		events:     make(map[string]*event.Event),
		categories: make(map[string]*category.Category),
		users:      make(map[user.TelegramID]*user.User),
		groups:     make(map[user.GroupCode]*group.Group),
	}
}

func (s *memStore) putEvent(ev *event.Event)          { s.events[ev.ID] = ev.Clone() }
func (s *memStore) putCategory(c *category.Category)  { s.categories[c.ID] = c.Clone() }
func (s *memStore) putUser(u *user.User)              { s.users[u.TelegramID] = u.Clone() }
func (s *memStore) putGroup(g *group.Group)           { s.groups[g.Code] = cloneGroup(g) }
func (s *memStore) eventByID(id string) *event.Event  { return s.events[id] }
func (s *memStore) groupByCode(c user.GroupCode) *group.Group { return s.groups[c] }

func cloneGroup(g *group.Group) *group.Group {
	subgroups := make([]int, len(g.Subgroups))
	copy(subgroups, g.Subgroups)
	return group.Restore(g.ID, g.Code, subgroups, g.EventIDs(), g.CreatedAt, g.UpdatedAt)
}

// memUow реализует UnitOfWork напрямую над memStore. Commit - no-op:
// тесты сервисов проверяют семантику операций, а не транзакционность.
type memUow struct {
	store *memStore
}

func (u *memUow) Events() event.Repository         { return &memEventRepo{store: u.store} }
func (u *memUow) Categories() category.Repository  { return &memCategoryRepo{store: u.store} }
func (u *memUow) Users() user.Repository           { return &memUserRepo{store: u.store} }
func (u *memUow) Groups() group.Repository         { return &memGroupRepo{store: u.store} }
func (u *memUow) Commit(ctx context.Context) error { return nil }
func (u *memUow) Rollback(ctx context.Context) error {
	return nil
}

type memUowFactory struct {
	store    *memStore
	beginErr error
}

func (f *memUowFactory) Begin(ctx context.Context) (UnitOfWork, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &memUow{store: f.store}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event repository
// ─────────────────────────────────────────────────────────────────────────────

type memEventRepo struct {
	store *memStore
}

func (r *memEventRepo) Create(ctx context.Context, e *event.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[e.ID]; ok {
		return event.ErrEventAlreadyExists
	}
	r.store.putEvent(e)
	return nil
}

func (r *memEventRepo) GetByID(ctx context.Context, id string) (*event.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ev, ok := r.store.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return ev.Clone(), nil
}

func (r *memEventRepo) GetDue(ctx context.Context, phase event.DuePhase, now time.Time) ([]*event.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var due []*event.Event
	for _, ev := range r.store.events {
		var matches bool
		switch phase {
		case event.DueNotification:
			matches = ev.Phase == event.PhaseCreated && !now.Before(ev.NotificationTime)
		case event.DueFormation:
			matches = !ev.IsFormed() && !now.Before(ev.FormationTime)
		case event.DueDeletion:
			matches = !now.Before(ev.DeletionTime)
		}
		if matches {
			due = append(due, ev.Clone())
		}
	}
	return due, nil
}

func (r *memEventRepo) GetByGroup(ctx context.Context, code user.GroupCode) ([]*event.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*event.Event
	for _, ev := range r.store.events {
		if ev.GroupCode == code {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

func (r *memEventRepo) GetByCategory(ctx context.Context, categoryID string) ([]*event.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*event.Event
	for _, ev := range r.store.events {
		if ev.CategoryID == categoryID {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

func (r *memEventRepo) Update(ctx context.Context, e *event.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[e.ID]; !ok {
		return event.ErrEventNotFound
	}
	r.store.putEvent(e)
	return nil
}

func (r *memEventRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[id]; !ok {
		return event.ErrEventNotFound
	}
	delete(r.store.events, id)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Category repository
// ─────────────────────────────────────────────────────────────────────────────

type memCategoryRepo struct {
	store *memStore
}

func (r *memCategoryRepo) Create(ctx context.Context, c *category.Category) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.categories {
		if existing.GroupCode == c.GroupCode && existing.SubjectName == c.SubjectName {
			return category.ErrCategoryAlreadyExists
		}
	}
	r.store.putCategory(c)
	return nil
}

func (r *memCategoryRepo) GetByID(ctx context.Context, id string) (*category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	return c.Clone(), nil
}

func (r *memCategoryRepo) GetByGroupAndSubject(ctx context.Context, code user.GroupCode, subjectName string) (*category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, c := range r.store.categories {
		if c.GroupCode == code && c.SubjectName == subjectName {
			return c.Clone(), nil
		}
	}
	return nil, category.ErrCategoryNotFound
}

func (r *memCategoryRepo) GetAutoCreate(ctx context.Context) ([]*category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*category.Category
	for _, c := range r.store.categories {
		if c.IsAutoCreate {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *memCategoryRepo) GetByGroup(ctx context.Context, code user.GroupCode) ([]*category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*category.Category
	for _, c := range r.store.categories {
		if c.GroupCode == code {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *memCategoryRepo) Update(ctx context.Context, c *category.Category) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.categories[c.ID]; !ok {
		return category.ErrCategoryNotFound
	}
	r.store.putCategory(c)
	return nil
}

func (r *memCategoryRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.categories[id]; !ok {
		return category.ErrCategoryNotFound
	}
	delete(r.store.categories, id)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// User repository
// ─────────────────────────────────────────────────────────────────────────────

type memUserRepo struct {
	store *memStore
}

func (r *memUserRepo) Create(ctx context.Context, u *user.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[u.TelegramID]; ok {
		return user.ErrUserAlreadyExists
	}
	r.store.putUser(u)
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memUserRepo) GetByTelegramID(ctx context.Context, telegramID user.TelegramID) (*user.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[telegramID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *memUserRepo) GetByTelegramIDs(ctx context.Context, ids []user.TelegramID) ([]*user.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*user.User
	for _, id := range ids {
		if u, ok := r.store.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *memUserRepo) Update(ctx context.Context, u *user.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[u.TelegramID]; !ok {
		return user.ErrUserNotFound
	}
	r.store.putUser(u)
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for tgID, u := range r.store.users {
		if u.ID == id {
			delete(r.store.users, tgID)
			return nil
		}
	}
	return user.ErrUserNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// Group repository
// ─────────────────────────────────────────────────────────────────────────────

type memGroupRepo struct {
	store *memStore
}

func (r *memGroupRepo) Create(ctx context.Context, g *group.Group) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.groups[g.Code]; ok {
		return group.ErrGroupAlreadyExists
	}
	r.store.putGroup(g)
	return nil
}

func (r *memGroupRepo) GetByCode(ctx context.Context, code user.GroupCode) (*group.Group, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	g, ok := r.store.groups[code]
	if !ok {
		return nil, group.ErrGroupNotFound
	}
	return cloneGroup(g), nil
}

func (r *memGroupRepo) List(ctx context.Context) ([]*group.Group, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*group.Group
	for _, g := range r.store.groups {
		out = append(out, cloneGroup(g))
	}
	return out, nil
}

func (r *memGroupRepo) Update(ctx context.Context, g *group.Group) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.groups[g.Code]; !ok {
		return group.ErrGroupNotFound
	}
	r.store.putGroup(g)
	return nil
}

func (r *memGroupRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for code, g := range r.store.groups {
		if g.ID == id {
			delete(r.store.groups, code)
			return nil
		}
	}
	return group.ErrGroupNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

type notifyCall struct {
	code    user.GroupCode
	eventID string
}

type memNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *memNotifier) NotifyGroup(ctx context.Context, code user.GroupCode, e *event.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, notifyCall{code: code, eventID: e.ID})
	return n.err
}

func (n *memNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type memScheduleSource struct {
	entries []ScheduleEntry
	err     error
}

func (s *memScheduleSource) Entries(ctx context.Context, date time.Time) ([]ScheduleEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}
