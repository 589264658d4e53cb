package rsessions

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions/internal"
	"github.com/rsessions/rsessions/session"
)

// Activity counts the distinct users (not sessions) active within the last
// dt seconds.
//
//	Performance: 1 ZCOUNT.
func (e *Engine) Activity(ctx context.Context, app string, dt int64) (int64, error) {
	if err := validateApp(app); err != nil {
		return 0, err
	}
	if err := validateDT(dt); err != nil {
		return 0, err
	}
	if err := e.awaitReady(ctx); err != nil {
		return 0, err
	}

	count, err := e.rdb.ZCount(ctx, internal.UsersKey(e.ns, app),
		strconv.FormatInt(nowUnix()-dt, 10), "+inf").Result()
	if err != nil {
		return 0, wrapRedis(err)
	}
	return count, nil
}

// SessionsOfApp returns all live sessions of an app that were active within
// the last dt seconds, most recent first. Logically dead sessions are
// dropped. The result may be large for big dt values.
func (e *Engine) SessionsOfApp(ctx context.Context, app string, dt int64) ([]*session.Session, error) {
	if err := validateApp(app); err != nil {
		return nil, err
	}
	if err := validateDT(dt); err != nil {
		return nil, err
	}
	if err := e.awaitReady(ctx); err != nil {
		return nil, err
	}

	members, err := e.rdb.ZRevRangeByScore(ctx, internal.SessionsKey(e.ns, app), &redis.ZRangeBy{
		Min: strconv.FormatInt(nowUnix()-dt, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, wrapRedis(err)
	}

	tokens := make([]string, 0, len(members))
	for _, member := range members {
		if token, _, ok := splitTokenID(member); ok {
			tokens = append(tokens, token)
		}
	}
	return e.resolveSessions(ctx, app, tokens)
}

// SessionsOfID returns all live sessions owned by id within an app.
func (e *Engine) SessionsOfID(ctx context.Context, app, id string) ([]*session.Session, error) {
	if err := validateApp(app); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := e.awaitReady(ctx); err != nil {
		return nil, err
	}

	tokens, err := e.rdb.SMembers(ctx, internal.TokensKey(e.ns, app, id)).Result()
	if err != nil {
		return nil, wrapRedis(err)
	}
	return e.resolveSessions(ctx, app, tokens)
}

// resolveSessions fans out one HMGET per token in a single pipeline and
// decodes the survivors, dropping absent and logically dead entries.
func (e *Engine) resolveSessions(ctx context.Context, app string, tokens []string) ([]*session.Session, error) {
	if len(tokens) == 0 {
		return []*session.Session{}, nil
	}

	pipe := e.rdb.Pipeline()
	reads := make([]*redis.SliceCmd, len(tokens))
	for i, token := range tokens {
		reads[i] = pipe.HMGet(ctx, internal.SessionKey(e.ns, app, token), session.Fields...)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapRedis(err)
	}

	now := nowUnix()
	out := make([]*session.Session, 0, len(tokens))
	for i, read := range reads {
		vals, err := read.Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, wrapRedis(err)
		}
		s, err := session.Decode(vals, now)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		s.Token = tokens[i]
		out = append(out, s)
	}
	return out, nil
}
