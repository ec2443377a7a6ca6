// Command adminauth-loadtest drives many concurrent administrator clients
// against an in-process development backend and reports latency percentiles
// for sign-in, resource calls and server-side revocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/admin"
	"github.com/MrEthical07/adminauth/internal/devserver"
	"github.com/MrEthical07/adminauth/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password"

type loadAdmin struct {
	email  string
	client *adminauth.Client
}

func main() {
	var (
		clients     = flag.Int("clients", 50, "number of administrator clients")
		concurrency = flag.Int("concurrency", 16, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "resource calls to issue")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "aat-load", "token key prefix")
		showMetrics = flag.Bool("metrics", false, "print the first client's metrics in Prometheus text format")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	quiet := log.New(io.Discard, "", 0)
	backend, err := devserver.New(devserver.Config{
		Secret: []byte("adminauth-loadtest-secret-0123456789"),
		Logger: quiet,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "devserver: %v\n", err)
		os.Exit(1)
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	admins := make([]loadAdmin, *clients)
	fmt.Printf("building %d clients...\n", *clients)
	for i := range admins {
		email := fmt.Sprintf("admin-%d@load.test", i)
		if _, err := backend.AddUser(fmt.Sprintf("Admin %d", i), email, loadPassword, devserver.RoleAdmin); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}

		cfg := adminauth.DefaultConfig()
		cfg.Transport.BaseURL = srv.URL
		cfg.Storage.Backend = adminauth.StorageRedis
		cfg.Storage.RedisPrefix = fmt.Sprintf("%s:%d", *prefix, i)
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
		c, err := adminauth.New().WithConfig(cfg).WithRedis(rdb).WithLogger(quiet).Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build client: %v\n", err)
			os.Exit(1)
		}
		defer c.Close()
		admins[i] = loadAdmin{email: email, client: c}
	}

	loginStats := runPhase(*clients, *concurrency, func(i, _ int) error {
		res := admins[i].client.Login(ctx, admins[i].email, loadPassword)
		if !res.Success {
			return res.Err
		}
		return nil
	})
	resourceStats := runPhase(*ops, *concurrency, func(_ int, worker int) error {
		r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
		a := admins[r.Intn(len(admins))]
		_, err := admin.New(a.client.Gateway()).Users(ctx, admin.Page{Page: 1, Limit: 10})
		return err
	})

	for _, a := range admins {
		backend.RevokeSessions(a.email)
	}
	revokeStats := runPhase(*clients, *concurrency, func(i, _ int) error {
		_, err := admin.New(admins[i].client.Gateway()).Dashboard(ctx)
		if err == nil {
			return fmt.Errorf("request succeeded after revocation")
		}
		return nil
	})

	var teardowns uint64
	for _, a := range admins {
		teardowns += a.client.Gateway().Teardowns()
	}

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("resource", resourceStats)
	printStats("revoked", revokeStats)
	fmt.Printf("teardowns=%d (want %d)\n", teardowns, *clients)

	if *showMetrics {
		fmt.Println("---- metrics (client 0) ----")
		fmt.Print(prometheus.NewExporter(admins[0].client).Render())
	}
}

// runPhase calls fn for indices [0, n) across concurrency workers.
func runPhase(n, concurrency int, fn func(i, worker int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, n)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					return
				}
				t0 := time.Now()
				err := fn(i, worker)
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
