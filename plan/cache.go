package plan

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/wbrown/sparqlite/algebra"
)

// CacheKey is the normalized, hashed identity of an algebra tree:
// every variable replaced by its first-occurrence index, then
// SHA-256 of a canonical binary encoding.
type CacheKey [32]byte

// NormalizeKey computes n's CacheKey.
func NormalizeKey(n algebra.Node) CacheKey {
	enc := newCanonicalEncoder()
	enc.encodeNode(n)
	return sha256.Sum256(enc.buf)
}

// CacheStats accumulates hit/miss/eviction counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a fixed-capacity, strictly least-recently-used plan cache.
// dgraph-io/ristretto's TinyLFU admission policy was considered and
// rejected here (see DESIGN.md): it does not guarantee the
// deterministic strict-LRU eviction this cache's contract requires.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	entries map[CacheKey]*list.Element
	order   *list.List // front = most recently used
	stats   CacheStats
}

type cacheEntry struct {
	key   CacheKey
	value *JoinPlan
}

// DefaultMaxSize is the cache's default capacity.
const DefaultMaxSize = 1000

// NewCache builds a plan cache with the given capacity (<=0 uses DefaultMaxSize).
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[CacheKey]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached plan for key, bumping its recency.
func (c *Cache) Get(key CacheKey) (*JoinPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

// Put inserts or updates key's plan, evicting the least-recently-used
// entry if the cache is over capacity.
func (c *Cache) Put(key CacheKey, value *JoinPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, value: value})
	c.entries[key] = el
	if c.order.Len() > c.maxSize {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*cacheEntry).key)
	c.stats.Evictions++
}

// GetOrCompute returns the cached plan for key, computing and storing
// it via f on a miss.
func (c *Cache) GetOrCompute(key CacheKey, f func() *JoinPlan) *JoinPlan {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := f()
	c.Put(key, v)
	return v
}

// Invalidate clears the entire cache (bulk load / schema change), or,
// when key is non-nil, evicts just that one entry.
func (c *Cache) Invalidate(key *CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == nil {
		c.entries = make(map[CacheKey]*list.Element)
		c.order = list.New()
		return
	}
	if el, ok := c.entries[*key]; ok {
		c.order.Remove(el)
		delete(c.entries, *key)
	}
}

// Stats returns a snapshot of the cache's hit/miss/eviction counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// canonicalEncoder serializes an algebra tree into a deterministic
// byte stream for hashing: variable names are replaced by their
// first-occurrence index so alpha-equivalent queries share a cache key.
type canonicalEncoder struct {
	buf    []byte
	varIdx map[algebra.Symbol]int
}

func newCanonicalEncoder() *canonicalEncoder {
	return &canonicalEncoder{varIdx: make(map[algebra.Symbol]int)}
}

func (e *canonicalEncoder) varID(s algebra.Symbol) int {
	if id, ok := e.varIdx[s]; ok {
		return id
	}
	id := len(e.varIdx)
	e.varIdx[s] = id
	return id
}

func (e *canonicalEncoder) byte(b byte) { e.buf = append(e.buf, b) }

func (e *canonicalEncoder) int(n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	e.buf = append(e.buf, b[:]...)
}

func (e *canonicalEncoder) str(s string) {
	e.int(len(s))
	e.buf = append(e.buf, s...)
}

func (e *canonicalEncoder) patternTerm(p algebra.PatternTerm) {
	if p.IsVariable() {
		e.byte(0)
		e.int(e.varID(p.Variable()))
		return
	}
	e.byte(1)
	e.str(p.Term().String())
}

func (e *canonicalEncoder) encodeNode(n algebra.Node) {
	switch v := n.(type) {
	case algebra.BGP:
		e.byte(10)
		e.int(len(v.Patterns))
		for _, p := range v.Patterns {
			e.patternTerm(p.Subject)
			e.patternTerm(p.Predicate)
			e.patternTerm(p.Object)
		}
	case algebra.Join:
		e.byte(11)
		e.encodeNode(v.L)
		e.encodeNode(v.R)
	case algebra.LeftJoin:
		e.byte(12)
		e.encodeNode(v.L)
		e.encodeNode(v.R)
		if v.Filter != nil {
			e.encodeExpr(v.Filter)
		}
	case algebra.Minus:
		e.byte(13)
		e.encodeNode(v.L)
		e.encodeNode(v.R)
	case algebra.Union:
		e.byte(14)
		e.encodeNode(v.L)
		e.encodeNode(v.R)
	case algebra.Filter:
		e.byte(15)
		e.encodeExpr(v.Expr)
		e.encodeNode(v.P)
	case algebra.Extend:
		e.byte(16)
		e.int(e.varID(v.Var))
		e.encodeExpr(v.Expr)
		e.encodeNode(v.P)
	case algebra.Group:
		e.byte(17)
		e.int(len(v.By))
		for _, s := range v.By {
			e.int(e.varID(s))
		}
		e.int(len(v.Aggs))
		for _, ab := range v.Aggs {
			e.int(e.varID(ab.Var))
			e.str(ab.Agg.Func)
			if ab.Agg.Arg != nil {
				e.encodeExpr(ab.Agg.Arg)
			}
		}
		e.encodeNode(v.P)
	case algebra.Project:
		e.byte(18)
		e.int(len(v.Vars))
		for _, s := range v.Vars {
			e.int(e.varID(s))
		}
		e.encodeNode(v.P)
	case algebra.Distinct:
		e.byte(19)
		e.encodeNode(v.P)
	case algebra.Reduced:
		e.byte(20)
		e.encodeNode(v.P)
	case algebra.OrderBy:
		e.byte(21)
		e.int(len(v.Keys))
		for _, k := range v.Keys {
			e.encodeExpr(k.Expr)
			if k.Desc {
				e.byte(1)
			} else {
				e.byte(0)
			}
		}
		e.encodeNode(v.P)
	case algebra.Slice:
		e.byte(22)
		e.int(v.Offset)
		e.int(v.Limit)
		e.encodeNode(v.P)
	case algebra.Values:
		e.byte(23)
		e.int(len(v.Vars))
		for _, s := range v.Vars {
			e.int(e.varID(s))
		}
		e.int(len(v.Rows))
	case algebra.Service:
		e.byte(24)
		e.str(v.Endpoint.String())
		e.encodeNode(v.P)
	case algebra.Graph:
		e.byte(25)
		e.patternTerm(v.Term)
		e.encodeNode(v.P)
	case algebra.Path:
		e.byte(26)
		e.patternTerm(v.Subject)
		e.str(v.Path.Raw)
		e.patternTerm(v.Object)
	default:
		e.byte(255)
	}
}

func (e *canonicalEncoder) encodeExpr(x algebra.Expr) {
	switch v := x.(type) {
	case algebra.VarRef:
		e.byte(1)
		e.int(e.varID(v.Name))
	case algebra.Lit:
		e.byte(2)
		e.str(v.Value.String())
	case algebra.Call:
		e.byte(3)
		e.str(v.Func)
		e.int(len(v.Args))
		for _, a := range v.Args {
			e.encodeExpr(a)
		}
	default:
		e.byte(0)
	}
}
