package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"
)

const l1ShardCount = 16

// L1 is the fast in-process tier: a sharded LRU bounded by entry count
// and total payload bytes, with a per-entry TTL. Sharding keeps lock
// contention local to a fraction of the keyspace instead of serializing
// all cache traffic behind one lock.
type L1 struct {
	shards [l1ShardCount]*l1Shard
}

type l1Shard struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	maxCount int
	maxBytes int64
	bytes    int64
}

type l1Entry struct {
	key       string
	payload   []byte
	category  Category
	createdAt time.Time
	expiresAt time.Time // zero = no expiry
}

// NewL1 creates an L1 cache bounded by maxEntries and maxBytes across
// all shards.
func NewL1(maxEntries int, maxBytes int64) *L1 {
	if maxEntries < l1ShardCount {
		maxEntries = l1ShardCount
	}
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	c := &L1{}
	for i := range c.shards {
		c.shards[i] = &l1Shard{
			entries:  make(map[string]*list.Element),
			order:    list.New(),
			maxCount: maxEntries / l1ShardCount,
			maxBytes: maxBytes / l1ShardCount,
		}
	}
	return c
}

func (c *L1) shard(key string) *l1Shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%l1ShardCount]
}

// Get returns the payload for key. An expired entry is removed and
// reported as a miss.
func (c *L1) Get(key string) ([]byte, bool) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*l1Entry)
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.remove(el)
		return nil, false
	}
	s.order.MoveToFront(el)
	return e.payload, true
}

// Set stores payload under key with the given TTL. A zero TTL means the
// entry expires only by eviction.
func (c *L1) Set(key string, payload []byte, category Category, ttl time.Duration) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.remove(el)
	}

	e := &l1Entry{
		key:       key,
		payload:   payload,
		category:  category,
		createdAt: time.Now(),
	}
	if ttl > 0 {
		e.expiresAt = e.createdAt.Add(ttl)
	}

	s.entries[key] = s.order.PushFront(e)
	s.bytes += int64(len(payload))

	for (s.order.Len() > s.maxCount || s.bytes > s.maxBytes) && s.order.Len() > 1 {
		s.remove(s.order.Back())
	}
}

// Delete removes key if present.
func (c *L1) Delete(key string) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		s.remove(el)
	}
}

// Len returns the total entry count across shards.
func (c *L1) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.order.Len()
		s.mu.Unlock()
	}
	return n
}

// remove must be called with the shard lock held.
func (s *l1Shard) remove(el *list.Element) {
	e := el.Value.(*l1Entry)
	s.order.Remove(el)
	delete(s.entries, e.key)
	s.bytes -= int64(len(e.payload))
}
