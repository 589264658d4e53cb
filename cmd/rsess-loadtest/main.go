// Command rsess-loadtest seeds a batch of sessions and drives concurrent
// get/set/kill traffic against them, reporting throughput per phase.
//
// With no -redis-addr flag and no RSESS_REDIS_URL it runs against an
// embedded miniredis, so it works without external infrastructure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions"
	"github.com/rsessions/rsessions/session"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "get/set operations to run")
		app         = flag.String("app", "loadtest", "app namespace")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, RSESS_REDIS_URL or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := rsessions.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.WipeInterval = 0 // no background sweep during measurement
	cfg.CacheTime = 30 * time.Second

	var engineOpts []rsessions.Option
	switch {
	case *redisAddr != "":
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{*redisAddr}})
		defer client.Close()
		engineOpts = append(engineOpts, rsessions.WithClient(client))
		fmt.Printf("using redis at %s\n", *redisAddr)
	case os.Getenv("RSESS_REDIS_URL") != "":
		fmt.Printf("using redis at %s\n", cfg.RedisURL)
	default:
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		engineOpts = append(engineOpts, rsessions.WithClient(client))
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	}

	engine := rsessions.New(cfg, engineOpts...)
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ping: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d sessions...\n", *sessions)
	tokens := make([]string, *sessions)
	start := time.Now()
	var seedIdx atomic.Int64
	runWorkers(*concurrency, func() {
		for {
			i := seedIdx.Add(1) - 1
			if i >= int64(*sessions) {
				return
			}
			token, err := engine.Create(ctx, rsessions.CreateRequest{
				App: *app,
				ID:  uuid.NewString(),
				IP:  "127.0.0.1",
				TTL: 3600,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "create: %v\n", err)
				os.Exit(1)
			}
			tokens[i] = token
		}
	})
	report("seed", *sessions, time.Since(start))

	fmt.Printf("running %d mixed get/set ops...\n", *ops)
	var opIdx, failures atomic.Int64
	start = time.Now()
	runWorkers(*concurrency, func() {
		for {
			i := opIdx.Add(1) - 1
			if i >= int64(*ops) {
				return
			}
			token := tokens[i%int64(*sessions)]
			if i%10 == 0 {
				_, err := engine.Set(ctx, *app, token, session.Payload{
					"hits": session.Number(float64(i)),
				})
				if err != nil {
					failures.Add(1)
				}
				continue
			}
			if _, err := engine.Get(ctx, *app, token); err != nil {
				failures.Add(1)
			}
		}
	})
	report("get/set", *ops, time.Since(start))
	if n := failures.Load(); n > 0 {
		fmt.Printf("  %d operations failed\n", n)
	}

	active, err := engine.Activity(ctx, *app, 600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "activity: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("distinct active users: %d\n", active)

	start = time.Now()
	killed, err := engine.KillAll(ctx, *app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "killall: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("killall removed %d sessions in %s\n", killed, time.Since(start))
}

func runWorkers(n int, fn func()) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

func report(phase string, n int, elapsed time.Duration) {
	fmt.Printf("  %s: %d ops in %s (%.0f ops/s)\n",
		phase, n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())
}
