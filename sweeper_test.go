package rsessions

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions/internal"
)

// expireNow rewrites a session's global expiry score into the past so the
// next sweep picks it up.
func expireNow(t *testing.T, rdb *redis.Client, app, token, id string) {
	t.Helper()
	err := rdb.ZAdd(context.Background(), internal.GlobalExpiryKey("rs:"),
		redis.Z{Score: float64(nowUnix() - 1), Member: app + ":" + token + ":" + id}).Err()
	if err != nil {
		t.Fatalf("expire entry: %v", err)
	}
}

func TestSweepWipesOverdueSessions(t *testing.T) {
	e, rdb, _, done := newEngineTest(t, nil)
	defer done()
	ctx := context.Background()

	overdue := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		token := mustCreate(t, e, CreateRequest{App: "demo123", ID: "user1", IP: "127.0.0.1"})
		overdue = append(overdue, token)
		expireNow(t, rdb, "demo123", token, "user1")
	}
	alive := mustCreate(t, e, CreateRequest{App: "demo123", ID: "user2", IP: "127.0.0.1"})

	e.sweep(ctx)

	for _, token := range overdue {
		if _, err := e.Get(ctx, "demo123", token); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("overdue session %s survived sweep: %v", token, err)
		}
	}
	if s, err := e.Get(ctx, "demo123", alive); err != nil || s.ID != "user2" {
		t.Fatalf("live session damaged by sweep: %+v err=%v", s, err)
	}

	// Only the live session's deadline entry remains.
	n, err := rdb.ZCard(ctx, internal.GlobalExpiryKey("rs:")).Result()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 remaining expiry entry, got %d err=%v", n, err)
	}
	if n, _ := rdb.ZCard(ctx, internal.SessionsKey("rs:", "demo123")).Result(); n != 1 {
		t.Fatalf("expected 1 remaining sessions index entry, got %d", n)
	}
}

func TestSweepSpansApps(t *testing.T) {
	e, rdb, _, done := newEngineTest(t, nil)
	defer done()
	ctx := context.Background()

	t1 := mustCreate(t, e, CreateRequest{App: "appone", ID: "u", IP: "127.0.0.1"})
	t2 := mustCreate(t, e, CreateRequest{App: "apptwo", ID: "u", IP: "127.0.0.1"})
	expireNow(t, rdb, "appone", t1, "u")
	expireNow(t, rdb, "apptwo", t2, "u")

	e.sweep(ctx)

	for _, c := range []struct{ app, token string }{{"appone", t1}, {"apptwo", t2}} {
		if _, err := e.Get(ctx, c.app, c.token); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("session %s/%s survived sweep: %v", c.app, c.token, err)
		}
	}
}

func TestSweepRemovesMalformedEntries(t *testing.T) {
	e, rdb, _, done := newEngineTest(t, nil)
	defer done()
	ctx := context.Background()

	expiryKey := internal.GlobalExpiryKey("rs:")
	err := rdb.ZAdd(ctx, expiryKey, redis.Z{Score: 1, Member: "garbage"}).Err()
	if err != nil {
		t.Fatalf("seed malformed entry: %v", err)
	}

	e.sweep(ctx)

	if n, _ := rdb.ZCard(ctx, expiryKey).Result(); n != 0 {
		t.Fatalf("malformed entry survived sweep, %d left", n)
	}
}

func TestSweepPaginates(t *testing.T) {
	e, rdb, _, done := newEngineTest(t, func(cfg *Config) {
		cfg.WipeBatch = 2
	})
	defer done()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		token := mustCreate(t, e, CreateRequest{App: "demo123", ID: "user1", IP: "127.0.0.1"})
		expireNow(t, rdb, "demo123", token, "user1")
	}

	e.sweep(ctx)

	if n, _ := rdb.ZCard(ctx, internal.GlobalExpiryKey("rs:")).Result(); n != 0 {
		t.Fatalf("expected all pages drained, %d entries left", n)
	}
	if n, _ := rdb.ZCard(ctx, internal.SessionsKey("rs:", "demo123")).Result(); n != 0 {
		t.Fatalf("sessions index not drained, %d left", n)
	}
}

func TestSweepHonorsIDsWithColons(t *testing.T) {
	e, rdb, _, done := newEngineTest(t, nil)
	defer done()
	ctx := context.Background()

	token := mustCreate(t, e, CreateRequest{App: "demo123", ID: "org:9:member:3", IP: "127.0.0.1"})
	expireNow(t, rdb, "demo123", token, "org:9:member:3")

	e.sweep(ctx)

	if _, err := e.Get(ctx, "demo123", token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session with colon id survived sweep: %v", err)
	}
	if n, _ := rdb.Exists(ctx, internal.TokensKey("rs:", "demo123", "org:9:member:3")).Result(); n != 0 {
		t.Fatal("token set for colon id survived sweep")
	}
}
