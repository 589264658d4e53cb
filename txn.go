package rsessions

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions/internal"
)

// appendIndexRefresh queues the index mutations every session write must
// carry: membership in the app sessions index and users index scored now,
// and the global expiry entry scored at the absolute deadline. For
// no-resave sessions the stored ttl is rewritten to the remaining value so
// later reads recompute the fixed deadline deterministically.
//
// The three indices and the hash must always move together inside one
// transaction; callers never issue these writes separately.
func (e *Engine) appendIndexRefresh(ctx context.Context, pipe redis.Pipeliner, app, token, id string, ttl int64, noResave bool, now int64) {
	pipe.ZAdd(ctx, internal.SessionsKey(e.ns, app), redis.Z{Score: float64(now), Member: token + ":" + id})
	pipe.ZAdd(ctx, internal.UsersKey(e.ns, app), redis.Z{Score: float64(now), Member: id})
	pipe.ZAdd(ctx, internal.GlobalExpiryKey(e.ns), redis.Z{Score: float64(now + ttl), Member: app + ":" + token + ":" + id})
	if noResave {
		pipe.HSet(ctx, internal.SessionKey(e.ns, app, token), "ttl", ttl)
	}
}

// appendInvalidation queues a cache invalidation broadcast for app:token in
// the same transaction as the mutation it belongs to. No-op when caching is
// disabled for this process.
func (e *Engine) appendInvalidation(ctx context.Context, pipe redis.Pipeliner, app, token string) {
	if e.cache == nil {
		return
	}
	pipe.Publish(ctx, internal.CacheChannel(e.ns), internal.CacheKey(app, token))
}
