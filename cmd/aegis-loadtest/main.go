// Command aegis-loadtest measures session resolution and sign-in throughput
// of an engine backed by an in-memory SQLite store and a Redis cache.
//
// Without -redis-addr (or REDIS_ADDR) an embedded miniredis is used.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/aegis"
	"github.com/MrEthical07/aegis/password"
	"github.com/MrEthical07/aegis/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const loadPassword = "load-test-password"

func main() {
	var (
		users       = flag.Int("users", 200, "number of users to sign up")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		noCache     = flag.Bool("no-cache", false, "resolve sessions from the store only")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	engine, cleanup, err := buildEngine(ctx, *redisAddr, *noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine setup failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	fmt.Printf("signing up %d users...\n", *users)
	startSeed := time.Now()
	emails, tokens, err := seed(ctx, engine, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runPhase(*ops, *concurrency, func(r *rand.Rand) bool {
		return engine.GetSession(ctx, tokens[r.Intn(len(tokens))]).OK()
	})
	signInStats := runPhase(*ops/10+1, *concurrency, func(r *rand.Rand) bool {
		return engine.SignInEmail(ctx, aegis.SignInRequest{
			Email:    emails[r.Intn(len(emails))],
			Password: loadPassword,
		}).OK()
	})

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("sign-in", signInStats)
}

func buildEngine(ctx context.Context, addr string, noCache bool) (*aegis.Engine, func(), error) {
	db, err := store.Open(ctx, store.DriverSQLite, "file:aegis_loadtest?mode=memory&cache=shared", store.PoolConfig{})
	if err != nil {
		return nil, nil, err
	}
	if _, err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cfg := aegis.DefaultConfig()
	cfg.Secret = "aegis-loadtest-secret-aegis-loadtest-secret"
	cfg.Password.Algorithm = password.AlgorithmBcrypt
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.EmailPassword.MaxPasswordLength = 72
	cfg.Metrics.Enabled = true

	builder := aegis.New().WithConfig(cfg).WithStore(store.NewBunStore(db))
	closers := []func(){func() { _ = db.Close() }}

	if !noCache {
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			addr = mr.Addr()
			closers = append(closers, mr.Close)
			fmt.Printf("using miniredis at %s\n", addr)
		} else {
			fmt.Printf("using redis at %s\n", addr)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		closers = append(closers, func() { _ = client.Close() })
		builder = builder.WithRedis(client)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	engine, err := builder.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, func() { engine.Close(); cleanup() }, nil
}

func seed(ctx context.Context, engine *aegis.Engine, users int) ([]string, []string, error) {
	emails := make([]string, 0, users)
	tokens := make([]string, 0, users)
	for i := 0; i < users; i++ {
		email := fmt.Sprintf("load-%d@example.com", i)
		res := engine.SignUpEmail(ctx, aegis.SignUpRequest{Email: email, Password: loadPassword})
		if !res.OK() {
			return nil, nil, res.Err()
		}
		emails = append(emails, email)
		tokens = append(tokens, res.Value().Session.Token)
	}
	return emails, tokens, nil
}

// runPhase runs op ops times across concurrency workers.
func runPhase(ops, concurrency int, op func(*rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for atomic.AddInt64(&cursor, 1) <= int64(ops) {
				t0 := time.Now()
				ok := op(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
