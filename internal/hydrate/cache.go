package hydrate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cache maps identity keys to the single record built for that row during
// one materialization pass. It is not safe for concurrent use.
type Cache struct {
	entries map[string]*Record
	hits    int
	misses  int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Record)}
}

// Get returns the record cached under key.
func (c *Cache) Get(key string) (*Record, bool) {
	r, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return r, ok
}

// Put caches a record under key.
func (c *Cache) Put(key string, r *Record) {
	c.entries[key] = r
}

// Len returns the number of cached records.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns lookup hits and misses.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

// IdentityKey encodes an entity name and its ordered key values. Each value
// is quoted so that no two distinct tuples share a key.
func IdentityKey(entity string, values []any) string {
	var b strings.Builder
	b.WriteString(entity)
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(keyString(v)))
	}
	b.WriteByte(']')
	return b.String()
}

func keyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
