package rsessions

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions/internal"
)

// Kill terminates a single session. It returns the number of sessions
// removed: 1, or 0 when the token was absent or already expired.
func (e *Engine) Kill(ctx context.Context, app, token string) (int64, error) {
	if err := validateApp(app); err != nil {
		return 0, err
	}
	if err := validateToken(token); err != nil {
		return 0, err
	}

	s, err := e.get(ctx, app, token, true, true)
	if errors.Is(err, ErrSessionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return e.killSingle(ctx, app, token, s.ID)
}

// killSingle removes one session from all indices and deletes its hash in a
// single transaction. The per-id token set existence check rides the same
// batch so its result costs no extra round trip.
//
// ATOMICITY NOTE: when the token set turns out empty, the id is removed
// from the users index in a second, separate operation. That step is
// deliberately not atomic with the first and may be lost under concurrent
// kills of the same id's last tokens; readers tolerate stale users-index
// membership because every read path re-applies the liveness check.
func (e *Engine) killSingle(ctx context.Context, app, token, id string) (int64, error) {
	tokensKey := internal.TokensKey(e.ns, app, id)

	var (
		deleted   *redis.IntCmd
		setExists *redis.IntCmd
	)
	_, err := e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, internal.SessionsKey(e.ns, app), token+":"+id)
		pipe.SRem(ctx, tokensKey, token)
		pipe.ZRem(ctx, internal.GlobalExpiryKey(e.ns), app+":"+token+":"+id)
		deleted = pipe.Del(ctx, internal.SessionKey(e.ns, app, token))
		setExists = pipe.Exists(ctx, tokensKey)
		e.appendInvalidation(ctx, pipe, app, token)
		return nil
	})
	if err != nil {
		return 0, wrapRedis(err)
	}

	e.cacheEvict(internal.CacheKey(app, token))

	if setExists.Val() == 0 {
		if err := e.rdb.ZRem(ctx, internal.UsersKey(e.ns, app), id).Err(); err != nil {
			// Tolerated: activity/soapp consumers treat the users index as
			// potentially-active only, and kill paths recompute membership
			// from the live token set.
			e.log.Warn("users index cleanup failed", "app", app, "id", id, "err", err)
		}
	}

	return deleted.Val(), nil
}

// KillAll terminates every session of an app and returns how many sessions
// index entries were removed.
func (e *Engine) KillAll(ctx context.Context, app string) (int64, error) {
	if err := validateApp(app); err != nil {
		return 0, err
	}
	if err := e.awaitReady(ctx); err != nil {
		return 0, err
	}

	sessionsKey := internal.SessionsKey(e.ns, app)
	members, err := e.rdb.ZRange(ctx, sessionsKey, 0, -1).Result()
	if err != nil {
		return 0, wrapRedis(err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	var (
		memberArgs = make([]any, 0, len(members))
		globalArgs = make([]any, 0, len(members))
		hashKeys   = make([]string, 0, len(members))
		tokens     = make([]string, 0, len(members))
		idArgs     = make([]any, 0, len(members))
		tokenSets  = make([]string, 0, len(members))
		seenIDs    = make(map[string]struct{}, len(members))
	)
	for _, member := range members {
		// Members are token:id; tokens are alphanumeric, ids may contain ":".
		token, id, ok := splitTokenID(member)
		if !ok {
			continue
		}
		memberArgs = append(memberArgs, member)
		globalArgs = append(globalArgs, app+":"+member)
		hashKeys = append(hashKeys, internal.SessionKey(e.ns, app, token))
		tokens = append(tokens, token)
		if _, seen := seenIDs[id]; !seen {
			seenIDs[id] = struct{}{}
			idArgs = append(idArgs, id)
			tokenSets = append(tokenSets, internal.TokensKey(e.ns, app, id))
		}
	}

	var removed *redis.IntCmd
	_, err = e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, sessionsKey, memberArgs...)
		pipe.ZRem(ctx, internal.UsersKey(e.ns, app), idArgs...)
		pipe.ZRem(ctx, internal.GlobalExpiryKey(e.ns), globalArgs...)
		pipe.Del(ctx, tokenSets...)
		pipe.Del(ctx, hashKeys...)
		for _, token := range tokens {
			e.appendInvalidation(ctx, pipe, app, token)
		}
		return nil
	})
	if err != nil {
		return 0, wrapRedis(err)
	}

	for _, token := range tokens {
		e.cacheEvict(internal.CacheKey(app, token))
	}

	return removed.Val(), nil
}

// KillSessionsOfID terminates every session owned by id within an app and
// returns the number of session hashes deleted.
func (e *Engine) KillSessionsOfID(ctx context.Context, app, id string) (int64, error) {
	if err := validateApp(app); err != nil {
		return 0, err
	}
	if err := validateID(id); err != nil {
		return 0, err
	}
	if err := e.awaitReady(ctx); err != nil {
		return 0, err
	}

	tokensKey := internal.TokensKey(e.ns, app, id)
	tokens, err := e.rdb.SMembers(ctx, tokensKey).Result()
	if err != nil {
		return 0, wrapRedis(err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	deletes := make([]*redis.IntCmd, 0, len(tokens))
	var setExists *redis.IntCmd
	_, err = e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			pipe.ZRem(ctx, internal.SessionsKey(e.ns, app), token+":"+id)
			pipe.SRem(ctx, tokensKey, token)
			pipe.ZRem(ctx, internal.GlobalExpiryKey(e.ns), app+":"+token+":"+id)
			deletes = append(deletes, pipe.Del(ctx, internal.SessionKey(e.ns, app, token)))
			e.appendInvalidation(ctx, pipe, app, token)
		}
		setExists = pipe.Exists(ctx, tokensKey)
		return nil
	})
	if err != nil {
		return 0, wrapRedis(err)
	}

	var total int64
	for _, del := range deletes {
		total += del.Val()
	}
	for _, token := range tokens {
		e.cacheEvict(internal.CacheKey(app, token))
	}

	if setExists.Val() == 0 {
		if err := e.rdb.ZRem(ctx, internal.UsersKey(e.ns, app), id).Err(); err != nil {
			e.log.Warn("users index cleanup failed", "app", app, "id", id, "err", err)
		}
	}

	return total, nil
}

func (e *Engine) cacheEvict(key string) {
	if e.cache != nil {
		e.cache.evict(key)
	}
}

// splitTokenID splits a sessions index member into token and id.
func splitTokenID(member string) (token, id string, ok bool) {
	for i := 0; i < len(member); i++ {
		if member[i] == ':' {
			return member[:i], member[i+1:], true
		}
	}
	return "", "", false
}
