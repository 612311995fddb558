package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	auditdomain "auth-service/backend/internal/audit/domain"
	"auth-service/backend/internal/session/cache"
	sessiondomain "auth-service/backend/internal/session/domain"
	sessionrepo "auth-service/backend/internal/session/repository"
	userdomain "auth-service/backend/internal/user/domain"
	userrepo "auth-service/backend/internal/user/repository"
)

var errInjected = errors.New("injected store failure")

type memState struct {
	sessions  map[string]*sessiondomain.Session // by id
	audit     []*auditdomain.LoginEvent
	users     map[string]*userdomain.User // by id
	roles     map[string]*userdomain.Role // by id
	userRoles map[string]map[string]bool  // user id -> role ids
}

func newMemState() *memState {
	return &memState{
		sessions:  map[string]*sessiondomain.Session{},
		users:     map[string]*userdomain.User{},
		roles:     map[string]*userdomain.Role{},
		userRoles: map[string]map[string]bool{},
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	for k, v := range st.sessions {
		s := *v
		c.sessions[k] = &s
	}
	c.audit = append(c.audit, st.audit...)
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range st.roles {
		c.roles[k] = v
	}
	for u, rs := range st.userRoles {
		c.userRoles[u] = map[string]bool{}
		for r := range rs {
			c.userRoles[u][r] = true
		}
	}
	return c
}

// memStore serializes every unit of work behind one mutex and restores a snapshot on error,
// standing in for a transactional database.
type memStore struct {
	mu      sync.Mutex
	st      *memState
	fail    map[string]error
	pingErr error
	// afterRevokeAll runs once, inside the transaction, after the first RevokeAllForUser.
	// Tests use it to commit work that a concurrent transaction finished meanwhile.
	afterRevokeAll func(st *memState)
}

func newMemStore() *memStore {
	return &memStore{st: newMemState(), fail: map[string]error{}}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	repos := Repos{
		Sessions: &memSessions{m},
		Audit:    &memAudit{m},
		Users:    &memUsers{m},
		Roles:    &memRoles{m},
	}
	if err := fn(ctx, repos); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }

// failOn makes the named repository method return errInjected.
func (m *memStore) failOn(op string) {
	m.mu.Lock()
	m.fail[op] = errInjected
	m.mu.Unlock()
}

func (m *memStore) injected(op string) error { return m.fail[op] }

// Helpers for assertions; they take the lock themselves.

func (m *memStore) sessionsFor(userID string) []*sessiondomain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range m.st.sessions {
		if s.UserID == userID {
			c := *s
			out = append(out, &c)
		}
	}
	return out
}

func (m *memStore) sessionByHash(hash string) *sessiondomain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.st.sessions {
		if s.TokenHash == hash {
			c := *s
			return &c
		}
	}
	return nil
}

func (m *memStore) auditEvents() []*auditdomain.LoginEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*auditdomain.LoginEvent(nil), m.st.audit...)
}

func (m *memStore) putSession(s *sessiondomain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.st.sessions[s.ID] = &c
}

func (m *memStore) addRole(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.roles[id] = &userdomain.Role{ID: id, Name: name}
}

func (m *memStore) grant(userID, roleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.userRoles[userID] == nil {
		m.st.userRoles[userID] = map[string]bool{}
	}
	m.st.userRoles[userID][roleID] = true
}

type memSessions struct{ m *memStore }

func (r *memSessions) Create(ctx context.Context, s *sessiondomain.Session) error {
	if err := r.m.injected("Sessions.Create"); err != nil {
		return err
	}
	for _, existing := range r.m.st.sessions {
		if existing.TokenHash == s.TokenHash {
			return sessionrepo.ErrDuplicateHash
		}
	}
	s.Revoked, s.Version = false, 1
	c := *s
	r.m.st.sessions[s.ID] = &c
	return nil
}

func (r *memSessions) GetByHash(ctx context.Context, hash string) (*sessiondomain.Session, error) {
	if err := r.m.injected("Sessions.GetByHash"); err != nil {
		return nil, err
	}
	for _, s := range r.m.st.sessions {
		if s.TokenHash == hash {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memSessions) GetByHashForUpdate(ctx context.Context, hash string) (*sessiondomain.Session, error) {
	return r.GetByHash(ctx, hash)
}

func (r *memSessions) revokeWhere(match func(*sessiondomain.Session) bool) int64 {
	var n int64
	for _, s := range r.m.st.sessions {
		if !s.Revoked && match(s) {
			s.Revoked = true
			s.Version++
			n++
		}
	}
	return n
}

func (r *memSessions) RevokeByID(ctx context.Context, id string) (bool, error) {
	return r.revokeWhere(func(s *sessiondomain.Session) bool { return s.ID == id }) == 1, nil
}

func (r *memSessions) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	if err := r.m.injected("Sessions.RevokeByHash"); err != nil {
		return false, err
	}
	return r.revokeWhere(func(s *sessiondomain.Session) bool { return s.TokenHash == hash }) == 1, nil
}

func (r *memSessions) CompareAndRevoke(ctx context.Context, id string, version int64) (bool, error) {
	if err := r.m.injected("Sessions.CompareAndRevoke"); err != nil {
		return false, err
	}
	return r.revokeWhere(func(s *sessiondomain.Session) bool { return s.ID == id && s.Version == version }) == 1, nil
}

func (r *memSessions) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	n := r.revokeWhere(func(s *sessiondomain.Session) bool { return s.UserID == userID })
	if hook := r.m.afterRevokeAll; hook != nil {
		r.m.afterRevokeAll = nil
		hook(r.m.st)
	}
	return n, nil
}

func (r *memSessions) ListHashesForUser(ctx context.Context, userID string) ([]string, error) {
	var out []string
	for _, s := range r.m.st.sessions {
		if s.UserID == userID {
			out = append(out, s.TokenHash)
		}
	}
	return out, nil
}

func (r *memSessions) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	for id, s := range r.m.st.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.m.st.sessions, id)
			n++
		}
	}
	return n, nil
}

type memAudit struct{ m *memStore }

func (r *memAudit) Append(ctx context.Context, e *auditdomain.LoginEvent) error {
	if err := r.m.injected("Audit.Append"); err != nil {
		return err
	}
	c := *e
	r.m.st.audit = append(r.m.st.audit, &c)
	return nil
}

func (r *memAudit) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*auditdomain.LoginEvent, int64, error) {
	var all []*auditdomain.LoginEvent
	for _, e := range r.m.st.audit {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if page-1 >= (len(all)+pageSize-1)/pageSize {
		return nil, int64(len(all)), nil
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

type memUsers struct{ m *memStore }

func (r *memUsers) find(match func(*userdomain.User) bool) (*userdomain.User, error) {
	if err := r.m.injected("Users.Get"); err != nil {
		return nil, err
	}
	for _, u := range r.m.st.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	return r.find(func(u *userdomain.User) bool { return u.ID == id })
}

func (r *memUsers) GetByLogin(ctx context.Context, login string) (*userdomain.User, error) {
	return r.find(func(u *userdomain.User) bool { return u.Login == login })
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return r.find(func(u *userdomain.User) bool { return u.Email == email })
}

func (r *memUsers) Create(ctx context.Context, u *userdomain.User) error {
	for _, existing := range r.m.st.users {
		if existing.Login == u.Login {
			return userrepo.ErrLoginTaken
		}
		if existing.Email == u.Email {
			return userrepo.ErrEmailTaken
		}
	}
	c := *u
	r.m.st.users[u.ID] = &c
	return nil
}

func (r *memUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if u, ok := r.m.st.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *memUsers) UpdateLogin(ctx context.Context, id, login string) error {
	if u, ok := r.m.st.users[id]; ok {
		u.Login = login
	}
	return nil
}

type memRoles struct{ m *memStore }

func (r *memRoles) GetByName(ctx context.Context, name string) (*userdomain.Role, error) {
	for _, role := range r.m.st.roles {
		if role.Name == name {
			c := *role
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRoles) Create(ctx context.Context, role *userdomain.Role) error {
	c := *role
	r.m.st.roles[role.ID] = &c
	return nil
}

func (r *memRoles) Assign(ctx context.Context, userID, roleID string) error {
	if r.m.st.userRoles[userID] == nil {
		r.m.st.userRoles[userID] = map[string]bool{}
	}
	r.m.st.userRoles[userID][roleID] = true
	return nil
}

func (r *memRoles) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	if err := r.m.injected("Roles.NamesForUser"); err != nil {
		return nil, err
	}
	names := []string{}
	for roleID := range r.m.st.userRoles[userID] {
		if role, ok := r.m.st.roles[roleID]; ok {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// failingCache simulates an unreachable cache.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Get(context.Context, string) (*cache.Entry, error) { return nil, errCacheDown }
func (failingCache) Put(context.Context, string, string, time.Time, bool) error {
	return errCacheDown
}
func (failingCache) Delete(context.Context, ...string) error { return errCacheDown }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*auditdomain.LoginEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, e *auditdomain.LoginEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
