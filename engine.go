package rsessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnState describes the engine's view of its store connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Engine is the session store facade. It issues, reads, mutates and revokes
// session records for independent apps, keeping the derived indices
// consistent through atomic Redis transactions.
//
// New returns immediately; the connection is established in the background
// and every operation awaits readiness exactly once. Engine methods are safe
// for concurrent use.
type Engine struct {
	cfg Config
	ns  string
	log *slog.Logger

	rdb        redis.UniversalClient
	ownsClient bool

	readyCh  chan struct{}
	readyErr error

	stateMu  sync.Mutex
	state    ConnState
	stateFns []func(ConnState)

	cache *sessionCache
	sub   *redis.PubSub

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClient injects an externally managed Redis client. The engine will
// not close it; RedisURL and the retry settings are ignored.
func WithClient(client redis.UniversalClient) Option {
	return func(e *Engine) {
		e.rdb = client
	}
}

// WithLogger sets the logger used by the sweeper and the cache subscriber.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine and starts its background tasks: connection
// establishment, the expiry sweeper (unless disabled) and, when caching is
// enabled, the invalidation subscriber.
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalize()
	e := &Engine{
		cfg:     cfg,
		ns:      cfg.Namespace,
		log:     slog.Default(),
		state:   StateDisconnected,
		readyCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.run()
	return e
}

// run establishes the connection and, on success, starts the housekeeping
// tasks. It closes readyCh exactly once; all operations gate on it.
func (e *Engine) run() {
	e.setState(StateConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ConnectTimeout)
	defer cancel()

	if e.rdb == nil {
		client, err := e.dial(ctx)
		if err != nil {
			e.readyErr = err
			e.setState(StateDisconnected)
			close(e.readyCh)
			return
		}
		e.rdb = client
		e.ownsClient = true
	} else if err := e.rdb.Ping(ctx).Err(); err != nil {
		e.readyErr = wrapRedis(err)
		e.setState(StateDisconnected)
		close(e.readyCh)
		return
	}

	e.setState(StateConnected)

	if e.cfg.CacheTime > 0 {
		e.cache = newSessionCache(e.cfg.CacheSize, e.cfg.CacheTime)
		e.startSubscriber()
	}
	if e.cfg.WipeInterval > 0 {
		e.wg.Add(1)
		go e.sweeper(e.cfg.WipeInterval)
	}

	close(e.readyCh)
}

// dial connects with retries, mirroring the store client's bring-up used
// elsewhere in the stack: parse URL once, ping until it answers or the
// attempts run out.
func (e *Engine) dial(ctx context.Context) (redis.UniversalClient, error) {
	opt, err := redis.ParseURL(e.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRedisURL, err)
	}

	var lastErr error
	for i := 0; i < e.cfg.RetryAttempts; i++ {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		} else {
			lastErr = err
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, wrapRedis(ctx.Err())
		case <-e.done:
			return nil, ErrEngineClosed
		case <-time.After(e.cfg.RetryInterval):
		}
	}
	return nil, wrapRedis(lastErr)
}

// awaitReady blocks until the background connect finished, then reports its
// outcome. Subsequent calls return immediately.
func (e *Engine) awaitReady(ctx context.Context) error {
	select {
	case <-e.done:
		return ErrEngineClosed
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineClosed
	case <-e.readyCh:
		return e.readyErr
	}
}

// ConnState returns the current connection state.
func (e *Engine) ConnState() ConnState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// OnConnChange registers a listener for connection state transitions.
// Listeners are invoked synchronously and must not block.
func (e *Engine) OnConnChange(fn func(ConnState)) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.stateFns = append(e.stateFns, fn)
}

func (e *Engine) setState(s ConnState) {
	e.stateMu.Lock()
	if e.state == s {
		e.stateMu.Unlock()
		return
	}
	e.state = s
	fns := make([]func(ConnState), len(e.stateFns))
	copy(fns, e.stateFns)
	e.stateMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Ping checks store availability and returns the round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if err := e.awaitReady(ctx); err != nil {
		return 0, err
	}
	start := time.Now()
	if err := e.rdb.Ping(ctx).Err(); err != nil {
		return time.Since(start), wrapRedis(err)
	}
	return time.Since(start), nil
}

// Close stops the sweeper and the invalidation subscriber, waits for them,
// and closes the Redis client when the engine created it. Injected clients
// stay open. Close is idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		// run() owns sub, rdb and ownsClient until it closes readyCh;
		// touching them earlier races the background connect.
		<-e.readyCh
		if e.sub != nil {
			_ = e.sub.Close()
		}
		e.wg.Wait()
		if e.ownsClient && e.rdb != nil {
			e.closeErr = e.rdb.Close()
		}
		e.setState(StateDisconnected)
	})
	return e.closeErr
}

func wrapRedis(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

func nowUnix() int64 {
	return time.Now().Unix()
}
