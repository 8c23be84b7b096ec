package embedding

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// Cache is a fixed-capacity LRU of embeddings keyed by text. Callers get
// their own copy of a cached vector.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	hits     int
	misses   int
}

type cacheItem struct {
	text string
	vec  []float32
}

// NewCache returns a cache holding up to capacity embeddings. A capacity of
// zero or less stores nothing.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the embedding for text and marks it recently used.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return append([]float32(nil), elem.Value.(*cacheItem).vec...), true
}

// Put stores vec for text, evicting the least recently used entry when full.
func (c *Cache) Put(text string, vec []float32) {
	if c.capacity <= 0 {
		return
	}
	stored := append([]float32(nil), vec...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[text]; ok {
		elem.Value.(*cacheItem).vec = stored
		c.order.MoveToFront(elem)
		return
	}
	c.items[text] = c.order.PushFront(&cacheItem{text: text, vec: stored})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem).text)
	}
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns lookup hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// cachedEmbedder memoizes another embedder.
type cachedEmbedder struct {
	Embedder
	cache *Cache
}

// WithCache wraps e so repeated texts are embedded once. capacity <= 0
// returns e unchanged.
func WithCache(e Embedder, capacity int) Embedder {
	if capacity <= 0 {
		return e
	}
	return &cachedEmbedder{Embedder: e, cache: NewCache(capacity)}
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return vec, nil
	}
	vec, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Put(text, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache, in one batch.
func (c *cachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var at []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		at = append(at, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.Embedder.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[at[j]] = vec
		c.cache.Put(missing[j], vec)
	}
	return out, nil
}
