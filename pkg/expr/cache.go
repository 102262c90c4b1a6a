package expr

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the number of compiled programs kept by NewCache(0)
const DefaultCacheSize = 512

// Cache keeps compiled programs keyed by source, evicting the least recently
// used entry when full. Parse failures are cached too so a broken directive
// is not re-parsed on every update.
type Cache struct {
	mu      sync.Mutex
	max     int
	order   *list.List // front is most recently used
	entries map[cacheKey]*list.Element
	stats   Stats
}

// cacheKey separates expressions from statement lists with the same source
type cacheKey struct {
	src        string
	statements bool
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

type cacheEntry struct {
	key  cacheKey
	prog *Program
	err  error
}

// NewCache creates a cache holding at most max programs
func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		max:     max,
		order:   list.New(),
		entries: make(map[cacheKey]*list.Element),
	}
}

// Get returns the cached compilation result for the expression src. ok
// reports a hit; err is the cached compile error, if any.
func (c *Cache) Get(src string) (prog *Program, ok bool, err error) {
	return c.get(cacheKey{src: src})
}

func (c *Cache) get(key cacheKey) (prog *Program, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	e := el.Value.(*cacheEntry)
	return e.prog, true, e.err
}

// Put stores the compilation result of the expression src, evicting if the
// cache is full
func (c *Cache) Put(src string, prog *Program, err error) {
	c.put(cacheKey{src: src}, prog, err)
}

func (c *Cache) put(key cacheKey, prog *Program, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &cacheEntry{key: key, prog: prog, err: err}
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, prog: prog, err: err})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.stats.Evictions++
	}
}

// compile returns the cached program for src, compiling it on a miss. When
// statements is set src is compiled as a statement list.
func (c *Cache) compile(src string, statements bool) (*Program, error) {
	key := cacheKey{src: src, statements: statements}
	if prog, ok, err := c.get(key); ok {
		return prog, err
	}
	var prog *Program
	var err error
	if statements {
		prog, err = CompileStatements(src)
	} else {
		prog, err = Compile(src)
	}
	c.put(key, prog, err)
	return prog, err
}

// Clear removes all entries. Stats are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[cacheKey]*list.Element)
}

// GetStats returns a snapshot of the cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.order.Len()
	return s
}
