package noise

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KeyStride is the multiplier of the quantized x coordinate in Key. Keys of
// coordinates whose magnitude reaches KeyStride alias other coordinates, so
// callers must keep samples inside that range.
const KeyStride = 10_000_000

// Key quantizes a planar coordinate into a memo key: floor(x)*KeyStride + floor(z).
func Key(x, z float64) int64 {
	return int64(math.Floor(x))*KeyStride + int64(math.Floor(z))
}

// Cache memoizes scalar samples by quantized coordinate. It is bounded and
// safe for concurrent use.
type Cache struct {
	entries *lru.Cache[int64, float64]
}

// NewCache returns a cache that holds at most size samples.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 1
	}
	entries, err := lru.New[int64, float64](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{entries: entries}
}

func (c *Cache) Get(key int64) (float64, bool) {
	return c.entries.Get(key)
}

func (c *Cache) Add(key int64, v float64) {
	c.entries.Add(key, v)
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// Memo returns fn(x, z) through the cache.
func (c *Cache) Memo(x, z int, fn func(x, z int) float64) float64 {
	key := Key(float64(x), float64(z))
	if v, ok := c.entries.Get(key); ok {
		return v
	}
	v := fn(x, z)
	c.entries.Add(key, v)
	return v
}
