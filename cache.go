package rsessions

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rsessions/rsessions/internal"
	"github.com/rsessions/rsessions/session"
)

type cacheEntry struct {
	key      string
	sess     *session.Session
	deadline time.Time
}

// sessionCache is a bounded, time-limited LRU over decoded sessions, keyed
// app:token. Entries are snapshots; coherence across processes comes from
// the invalidation broadcast, bounded by the entry lifetime when a message
// is missed.
type sessionCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	eviction *list.List
}

func newSessionCache(capacity int, ttl time.Duration) *sessionCache {
	return &sessionCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

func (c *sessionCache) get(key string) (*session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.deadline) {
		c.removeElement(elem)
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	return entry.sess, true
}

func (c *sessionCache) put(key string, s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.sess = s
		entry.deadline = deadline
		return
	}

	elem := c.eviction.PushFront(&cacheEntry{key: key, sess: s, deadline: deadline})
	c.items[key] = elem

	if c.eviction.Len() > c.capacity {
		if oldest := c.eviction.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// evict is idempotent; evicting an absent key is a no-op.
func (c *sessionCache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

func (c *sessionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Must be called with lock held.
func (c *sessionCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}

// startSubscriber wires the invalidation channel: every process with
// caching enabled evicts entries named by incoming messages, including its
// own publications.
func (e *Engine) startSubscriber() {
	e.sub = e.rdb.Subscribe(context.Background(), internal.CacheChannel(e.ns))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ch := e.sub.Channel()
		for {
			select {
			case <-e.done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				e.cache.evict(msg.Payload)
			}
		}
	}()
}
