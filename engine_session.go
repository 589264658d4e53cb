package rsessions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions/internal"
	"github.com/rsessions/rsessions/session"
)

// CreateRequest carries the fields for Create. TTL 0 selects the default
// (7200 seconds). Data is optional; null values are stripped, never stored.
type CreateRequest struct {
	App string
	ID  string
	IP  string
	TTL int64
	// Data is the initial custom payload.
	Data session.Payload
	// NoResave fixes the expiry deadline at creation instead of refreshing
	// it on every access.
	NoResave bool
}

// Create issues a new session and returns its token.
//
//	Performance: 1 Redis transaction (3 ZADD + SADD + HSET).
func (e *Engine) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := validateApp(req.App); err != nil {
		return "", err
	}
	if err := validateID(req.ID); err != nil {
		return "", err
	}
	if err := validateIP(req.IP); err != nil {
		return "", err
	}
	ttl, err := validateTTL(req.TTL)
	if err != nil {
		return "", err
	}
	if err := validatePayload(req.Data, false); err != nil {
		return "", err
	}
	if err := e.awaitReady(ctx); err != nil {
		return "", err
	}

	token, err := internal.NewToken()
	if err != nil {
		return "", err
	}

	now := nowUnix()
	fields, err := session.EncodeNew(req.ID, req.IP, ttl, now, req.Data.WithoutNulls(), req.NoResave)
	if err != nil {
		return "", err
	}

	var hashWrite *redis.IntCmd
	_, err = e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		e.appendIndexRefresh(ctx, pipe, req.App, token, req.ID, ttl, false, now)
		pipe.SAdd(ctx, internal.TokensKey(e.ns, req.App, req.ID), token)
		hashWrite = pipe.HSet(ctx, internal.SessionKey(e.ns, req.App, token), fields...)
		return nil
	})
	if err != nil {
		return "", wrapRedis(err)
	}

	// A fresh token means a fresh hash: every submitted field must report as
	// newly written. Anything less indicates a collision or partial write.
	if hashWrite.Val() != int64(len(fields)/2) {
		return "", fmt.Errorf("%w: session hash reported %d new fields, want %d",
			ErrUnknown, hashWrite.Val(), len(fields)/2)
	}

	return token, nil
}

// Get returns the session for app and token, or [ErrSessionNotFound] when it
// is absent or logically expired. A successful read increments the read
// counter, refreshes the last-access time once idle exceeds one second, and
// re-asserts the session's index membership as a keep-alive.
//
//	Performance: 1 HMGET + 1 transaction; cache hits cost no round trip.
func (e *Engine) Get(ctx context.Context, app, token string) (*session.Session, error) {
	return e.get(ctx, app, token, false, false)
}

// get implements Get. noUpdate suppresses the counter/index writes (used by
// the kill and set paths to avoid recursive side effects); noCache bypasses
// the read-through cache in both directions.
func (e *Engine) get(ctx context.Context, app, token string, noUpdate, noCache bool) (*session.Session, error) {
	if err := validateApp(app); err != nil {
		return nil, err
	}
	if err := validateToken(token); err != nil {
		return nil, err
	}
	if err := e.awaitReady(ctx); err != nil {
		return nil, err
	}

	cacheKey := internal.CacheKey(app, token)
	if e.cache != nil && !noCache {
		if s, ok := e.cache.get(cacheKey); ok {
			// Cache entries are snapshots; no counter increment on hits.
			return s, nil
		}
	}

	hashKey := internal.SessionKey(e.ns, app, token)
	vals, err := e.rdb.HMGet(ctx, hashKey, session.Fields...).Result()
	if err != nil {
		return nil, wrapRedis(err)
	}

	now := nowUnix()
	s, err := session.Decode(vals, now)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	s.Token = token

	if noUpdate {
		return s, nil
	}

	if e.cache != nil && !noCache {
		e.cache.put(cacheKey, s)
	}

	_, err = e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		e.appendIndexRefresh(ctx, pipe, app, token, s.ID, s.TTL, s.NoResave, now)
		pipe.HIncrBy(ctx, hashKey, "r", 1)
		if s.Idle > 1 {
			pipe.HSet(ctx, hashKey, "la", now)
		}
		return nil
	})
	if err != nil {
		return nil, wrapRedis(err)
	}

	return s, nil
}

// Set merges d into the session's custom payload: null values delete keys,
// everything else overwrites or inserts. When no keys remain the d field is
// removed from the hash entirely. Returns the updated session with the
// authoritative post-increment write counter, or [ErrSessionNotFound].
//
//	Performance: 1 HMGET + 1 transaction (invalidation rides the same batch).
func (e *Engine) Set(ctx context.Context, app, token string, d session.Payload) (*session.Session, error) {
	if err := validatePayload(d, true); err != nil {
		return nil, err
	}

	s, err := e.get(ctx, app, token, true, true)
	if err != nil {
		return nil, err
	}

	merged := session.Merge(s.Data, d)
	hashKey := internal.SessionKey(e.ns, app, token)
	now := nowUnix()

	var writeCount *redis.IntCmd
	_, err = e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		e.appendIndexRefresh(ctx, pipe, app, token, s.ID, s.TTL, s.NoResave, now)
		writeCount = pipe.HIncrBy(ctx, hashKey, "w", 1)
		if s.Idle > 1 {
			pipe.HSet(ctx, hashKey, "la", now)
		}
		if len(merged) > 0 {
			raw, err := json.Marshal(merged)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, hashKey, "d", string(raw))
		} else {
			pipe.HDel(ctx, hashKey, "d")
		}
		e.appendInvalidation(ctx, pipe, app, token)
		return nil
	})
	if err != nil {
		return nil, wrapRedis(err)
	}

	// Evict locally as well: the broadcast loops back through the
	// subscriber, but a Get racing that delivery must not see stale data.
	e.cacheEvict(internal.CacheKey(app, token))

	s.Writes = writeCount.Val()
	s.Data = merged
	return s, nil
}
