// Command passgate-loadtest measures engine throughput against an
// in-memory account store: an argon2-bound login phase followed by a
// parse-bound token validation phase. Redis backs the login limiter; with
// no address configured a throwaway miniredis runs in-process.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/password"
	"github.com/agit8or1/passgate/store/memory"
)

const seedPassword = "loadtest-password"

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		loginOps    = flag.Int("login-ops", 2000, "login operations (argon2-bound)")
		validateOps = flag.Int("validate-ops", 100000, "token validations (parse-bound)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *loginOps <= 0 || *validateOps <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, login-ops, and validate-ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	// Cost floor keeps a login in the low milliseconds so the harness
	// measures engine overhead, not a production argon2 budget.
	cfg := passgate.DefaultConfig()
	cfg.JWT.SigningKey = []byte(strings.Repeat("loadtest-signing-key", 2))
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	store := memory.New()

	engine, err := passgate.New().
		WithConfig(cfg).
		WithStore(store).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}

	usernames := seedAccounts(store, cfg, *accounts)

	loginStats, tokens := runLoginPhase(ctx, engine, usernames, *loginOps, *concurrency)
	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "login phase produced no tokens; aborting validate phase")
		os.Exit(1)
	}
	validateStats := runValidatePhase(engine, tokens, *validateOps, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("validate", validateStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d login_failure=%d validate_success=%d validate_failure=%d\n",
		snap.Counters[passgate.MetricLoginSuccess],
		snap.Counters[passgate.MetricLoginFailure],
		snap.Counters[passgate.MetricValidateSuccess],
		snap.Counters[passgate.MetricValidateFailure],
	)
}

// seedAccounts hashes the shared password once and registers every
// account with that hash; each login still pays full verification.
func seedAccounts(store *memory.Store, cfg passgate.Config, n int) []string {
	hasher, err := password.New(password.Config{
		MemoryKB:    cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build hasher: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash seed password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d accounts...\n", n)
	start := time.Now()
	usernames := make([]string, n)
	for i := 0; i < n; i++ {
		usernames[i] = fmt.Sprintf("user-%d", i)
		store.Put(passgate.Account{
			ID:           fmt.Sprintf("acct-%d", i),
			Username:     usernames[i],
			Role:         passgate.RoleStandard,
			PasswordHash: hash,
			Active:       true,
		})
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return usernames
}

func runLoginPhase(ctx context.Context, engine *passgate.Engine, usernames []string, ops, concurrency int) (phaseStats, []string) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		tokens    = make([]string, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			workerCtx := passgate.WithClientIP(ctx, fmt.Sprintf("10.0.%d.%d", worker/250, worker%250))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				username := usernames[r.Intn(len(usernames))]
				t0 := time.Now()
				res, err := engine.Login(workerCtx, username, seedPassword)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				if err == nil && res.Token != "" {
					tokens = append(tokens, res.Token)
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), tokens
}

func runValidatePhase(engine *passgate.Engine, tokens []string, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				token := tokens[r.Intn(len(tokens))]
				t0 := time.Now()
				_, err := engine.ValidateToken(token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
		return phaseStats{total: total}
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

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
