package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/password"
	"github.com/MrEthical07/aegis/session"
	"github.com/MrEthical07/aegis/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory credential store that records the order of
// session writes and deletes into a shared journal.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*store.User
	accounts map[string]*store.Account
	sessions map[string]*store.Session
	journal  *[]string

	failSave   bool
	failDelete bool
	failLookup bool
	dupOnWrite bool
}

func newMemStore(journal *[]string) *memStore {
	return &memStore{
		users:    map[string]*store.User{},
		accounts: map[string]*store.Account{},
		sessions: map[string]*store.Session{},
		journal:  journal,
	}
}

func (m *memStore) note(entry string) {
	if m.journal != nil {
		*m.journal = append(*m.journal, entry)
	}
}

func (m *memStore) addUser(email, hash string) *store.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &store.User{ID: "u-" + email, Email: email}
	m.users[u.ID] = u
	if hash != "-" {
		m.accounts[u.ID] = &store.Account{ID: "a-" + u.ID, UserID: u.ID, ProviderID: store.CredentialProviderID, PasswordHash: hash}
	}
	return u
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup {
		return nil, errStoreDown
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FindAccount(_ context.Context, userID, providerID string) (*store.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[userID]; ok && a.ProviderID == providerID {
		cp := *a
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateUserWithAccount(_ context.Context, u *store.User, a *store.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dupOnWrite {
		return fmt.Errorf("%w: unique email", store.ErrDuplicate)
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: unique email", store.ErrDuplicate)
		}
	}
	m.users[u.ID] = u
	m.accounts[u.ID] = a
	return nil
}

func (m *memStore) SaveSession(_ context.Context, s *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStoreDown
	}
	m.note("store:save:" + s.Token)
	cp := *s
	m.sessions[s.Token] = &cp
	return nil
}

func (m *memStore) FindSessionByToken(_ context.Context, token string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) DeleteSession(_ context.Context, token, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errStoreDown
	}
	m.note("store:delete:" + token)
	if s, ok := m.sessions[token]; ok && s.UserID == userID {
		delete(m.sessions, token)
	}
	return nil
}

func (m *memStore) DeleteUserSessions(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return 0, errStoreDown
	}
	var n int64
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *memStore) countSessions(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// journalCache wraps a Cache and records writes and deletes of non-registry keys.
type journalCache struct {
	session.Cache
	journal    *[]string
	failSet    bool
	failRemove bool
}

func (j *journalCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if j.failSet {
		return session.ErrCacheUnavailable
	}
	if !strings.HasPrefix(key, session.RegistryKeyPrefix) {
		*j.journal = append(*j.journal, "cache:set:"+key)
	}
	return j.Cache.SetString(ctx, key, value, ttl)
}

func (j *journalCache) Remove(ctx context.Context, keys ...string) error {
	if j.failRemove {
		return session.ErrCacheUnavailable
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, session.RegistryKeyPrefix) {
			*j.journal = append(*j.journal, "cache:remove:"+k)
		}
	}
	return j.Cache.Remove(ctx, keys...)
}

func newTestRedis(t *testing.T) (*session.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return session.NewRedisCache(rdb, ""), mr
}

// countingHasher is a cheap reversible hasher that counts Hash calls.
type countingHasher struct {
	mu     sync.Mutex
	hashes int
}

func (c *countingHasher) Hash(pw string) (string, error) {
	c.mu.Lock()
	c.hashes++
	c.mu.Unlock()
	return "hashed:" + pw, nil
}

func (c *countingHasher) Verify(pw, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "hashed:") {
		return false, password.ErrMalformedHash
	}
	return hash == "hashed:"+pw, nil
}

func (c *countingHasher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashes
}

type sequence struct {
	mu sync.Mutex
	n  int
}

func (s *sequence) next(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%04d", prefix, s.n)
}

// harness wires every flow against memStore and an optional cache.
type harness struct {
	store  *memStore
	cache  session.Cache
	hasher *countingHasher
	now    time.Time
	seq    *sequence
	deps   Deps
}

func newHarness(t *testing.T, cache session.Cache, persist bool, journal *[]string) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(journal),
		cache:  cache,
		hasher: &countingHasher{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		seq:    &sequence{},
	}
	rt := Runtime{Now: func() time.Time { return h.now }}

	h.deps.Session = SessionDeps{
		Runtime:            rt,
		PersistSessions:    persist,
		Cache:              cache,
		NewToken:           func() string { return h.seq.next("tok") + strings.Repeat("x", 25) },
		NewID:              func() (string, error) { return h.seq.next("id-"), nil },
		SaveSession:        h.store.SaveSession,
		DeleteSession:      h.store.DeleteSession,
		DeleteUserSessions: h.store.DeleteUserSessions,
	}
	h.deps.Resolve = ResolveDeps{
		Runtime:            rt,
		PersistSessions:    persist,
		Cache:              cache,
		FindSessionByToken: h.store.FindSessionByToken,
		FindUserByID:       h.store.FindUserByID,
	}
	createSession := func(ctx context.Context, u *store.User, in CreateSessionInput) autherr.Result[*store.Session] {
		return RunCreateSession(ctx, u, in, h.deps.Session)
	}
	h.deps.SignUp = SignUpDeps{
		Runtime:               rt,
		Enabled:               true,
		MinPasswordLength:     8,
		MaxPasswordLength:     128,
		AutoSignIn:            true,
		Password:              password.WithPolicy(h.hasher),
		NewID:                 func() (string, error) { return h.seq.next("id-"), nil },
		FindUserByEmail:       h.store.FindUserByEmail,
		CreateUserWithAccount: h.store.CreateUserWithAccount,
		CreateSession:         createSession,
	}
	h.deps.SignIn = SignInDeps{
		Runtime:         rt,
		Enabled:         true,
		Password:        h.hasher,
		FindUserByEmail: h.store.FindUserByEmail,
		FindAccount:     h.store.FindAccount,
		CreateSession:   createSession,
	}
	h.deps.SignOut = SignOutDeps{
		Runtime: rt,
		Lookup:  h.deps.Resolve,
		RevokeSession: func(ctx context.Context, userID, token string) autherr.Result[struct{}] {
			return RunRevokeSession(ctx, userID, token, h.deps.Session)
		},
	}
	return h
}
