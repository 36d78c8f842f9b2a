// Package memory is an in-process store used for local runs (STORE_DRIVER=memory)
// and for tests. It honours the same unit-of-work contract as the postgres store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/internal/domain/repository"
)

var errDuplicateID = errors.New("duplicate id")

// Store keeps users and outbox messages in maps guarded by one mutex.
type Store struct {
	mu     sync.RWMutex
	users  map[string]entity.User
	outbox map[string]entity.OutboxMessage

	// FailNextSave makes the next SaveChanges fail with a store error. Tests only.
	FailNextSave bool
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]entity.User),
		outbox: make(map[string]entity.OutboxMessage),
	}
}

func (s *Store) Session() repository.UserRepository {
	return &session{store: s}
}

func (s *Store) Ping(context.Context) error { return nil }

func storeErr(op string, err error) error {
	return fmt.Errorf("memory %s: %w", op, errors.Join(repository.ErrStore, err))
}

type change struct {
	user   *entity.User
	insert bool
	msg    *entity.OutboxMessage
}

type session struct {
	store  *Store
	staged []change
}

// listed returns non-deleted users ordered by creation time, id as tie-break.
func (s *Store) listed() []entity.User {
	out := make([]entity.User, 0, len(s.users))
	for _, u := range s.users {
		if !u.IsDeleted {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out
}

func sortUsers(users []entity.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedDate.Equal(users[j].CreatedDate) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedDate.Before(users[j].CreatedDate)
	})
}

func (r *session) Count(ctx context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var n int64
	for _, u := range r.store.users {
		if !u.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (r *session) GetPaged(ctx context.Context, pageNumber, pageSize int) ([]entity.User, error) {
	skip := (pageNumber - 1) * pageSize
	if skip < 0 || pageSize < 0 {
		return nil, storeErr("get paged", fmt.Errorf("negative offset or limit (offset=%d limit=%d)", skip, pageSize))
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := r.store.listed()
	if skip >= len(all) {
		return []entity.User{}, nil
	}
	end := skip + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (r *session) GetAll(ctx context.Context) ([]entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]entity.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		out = append(out, u)
	}
	sortUsers(out)
	return out, nil
}

func (r *session) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *session) Add(ctx context.Context, u *entity.User) error {
	c := *u
	r.staged = append(r.staged, change{user: &c, insert: true})
	return nil
}

func (r *session) Update(ctx context.Context, u *entity.User) error {
	c := *u
	r.staged = append(r.staged, change{user: &c})
	return nil
}

func (r *session) Enqueue(ctx context.Context, msg entity.OutboxMessage) error {
	m := msg
	r.staged = append(r.staged, change{msg: &m})
	return nil
}

// SaveChanges validates every staged change before applying any of them.
func (r *session) SaveChanges(ctx context.Context) error {
	staged := r.staged
	r.staged = nil
	if len(staged) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return storeErr("save changes", err)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextSave {
		s.FailNextSave = false
		return storeErr("save changes", errors.New("injected failure"))
	}

	seen := make(map[string]bool)
	for _, c := range staged {
		if c.user == nil {
			continue
		}
		_, exists := s.users[c.user.ID]
		exists = exists || seen[c.user.ID]
		if c.insert && exists {
			return storeErr("insert user", errDuplicateID)
		}
		if !c.insert && !exists {
			return storeErr("update user", errors.New("no rows affected"))
		}
		seen[c.user.ID] = true
	}

	for _, c := range staged {
		switch {
		case c.user != nil:
			s.users[c.user.ID] = *c.user
		case c.msg != nil:
			s.outbox[c.msg.ID] = *c.msg
		}
	}
	return nil
}

// Outbox exposes the store's outbox view.
func (s *Store) Outbox() *Outbox { return &Outbox{store: s} }

// Outbox implements repository.OutboxStore over Store.
type Outbox struct {
	store *Store
}

func (o *Outbox) Pending(ctx context.Context, limit, maxAttempts int) ([]entity.OutboxMessage, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	out := make([]entity.OutboxMessage, 0)
	for _, m := range o.store.outbox {
		if m.DispatchedAt == nil && m.Attempts < maxAttempts {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *Outbox) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	return o.update(id, func(m *entity.OutboxMessage) {
		t := at.UTC()
		m.DispatchedAt = &t
		m.Attempts++
		m.LastError = ""
	})
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, cause error) error {
	return o.update(id, func(m *entity.OutboxMessage) {
		m.Attempts++
		if cause != nil {
			m.LastError = cause.Error()
		}
	})
}

func (o *Outbox) CountPending(ctx context.Context) (int64, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	var n int64
	for _, m := range o.store.outbox {
		if m.DispatchedAt == nil {
			n++
		}
	}
	return n, nil
}

func (o *Outbox) Requeue(ctx context.Context) (int64, error) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	var n int64
	for id, m := range o.store.outbox {
		if m.DispatchedAt == nil && m.Attempts > 0 {
			m.Attempts = 0
			o.store.outbox[id] = m
			n++
		}
	}
	return n, nil
}

// Messages returns a snapshot of every outbox message, oldest first.
func (o *Outbox) Messages() []entity.OutboxMessage {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	out := make([]entity.OutboxMessage, 0, len(o.store.outbox))
	for _, m := range o.store.outbox {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (o *Outbox) update(id string, fn func(*entity.OutboxMessage)) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	m, ok := o.store.outbox[id]
	if !ok {
		return storeErr("outbox update", fmt.Errorf("message %s not found", id))
	}
	fn(&m)
	o.store.outbox[id] = m
	return nil
}

var (
	_ repository.UserStore   = (*Store)(nil)
	_ repository.OutboxStore = (*Outbox)(nil)
)
