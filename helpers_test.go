package aegis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/aegis/password"
	"github.com/MrEthical07/aegis/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestStore(t testing.TB) *store.BunStore {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:aegis_%s?mode=memory&cache=shared", name)

	ctx := context.Background()
	db, err := store.Open(ctx, store.DriverSQLite, dsn, store.PoolConfig{})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := store.Migrate(ctx, db); err != nil {
		t.Fatalf("store.Migrate failed: %v", err)
	}
	return store.NewBunStore(db)
}

// testClock is a settable clock shared by the engine under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
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

func (c *countingHasher) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashes
}

type testEnv struct {
	engine *Engine
	store  *store.BunStore
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
	hasher *countingHasher
}

type envOption func(*envSettings)

type envSettings struct {
	noCache bool
	sink    AuditSink
}

func withoutCache() envOption {
	return func(s *envSettings) { s.noCache = true }
}

func withAuditSink(sink AuditSink) envOption {
	return func(s *envSettings) { s.sink = sink }
}

func newTestEnv(t testing.TB, mutate func(*Config), opts ...envOption) *testEnv {
	t.Helper()

	var settings envSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := DefaultConfig()
	cfg.Secret = testSecret
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		store:  newTestStore(t),
		clock:  newTestClock(),
		hasher: &countingHasher{},
	}

	b := New().
		WithConfig(cfg).
		WithStore(env.store).
		WithPasswordHasher(env.hasher).
		WithClock(env.clock.Now)
	if !settings.noCache {
		env.mr, env.rdb = newTestRedis(t)
		b = b.WithRedis(env.rdb)
	}
	if settings.sink != nil {
		b = b.WithAuditSink(settings.sink)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) signUp(t testing.TB, email, pw string) *SignUpResult {
	t.Helper()

	res := env.engine.SignUpEmail(context.Background(), SignUpRequest{
		Name:     "Test User",
		Email:    email,
		Password: pw,
	})
	if !res.OK() {
		t.Fatalf("SignUpEmail failed: %v", res.Err())
	}
	return res.Value()
}
