package embed

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// CachedEmbedder wraps an Embedder with a fixed-capacity LRU cache keyed on
// exact text match, and an optional token-bucket limiter bounding outbound
// calls to the wrapped provider. No embedding library in this codebase's
// dependency surface ships an LRU cache, so it is built directly on
// container/list + a map rather than pulling in an unrelated dependency.
type CachedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter

	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key string
	vec []float32
}

// NewCachedEmbedder wraps inner with an LRU of the given capacity. ratePerSec
// <= 0 disables rate limiting.
func NewCachedEmbedder(inner Embedder, capacity int, ratePerSec float64, burst int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 1024
	}
	c := &CachedEmbedder{
		inner:    inner,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
	if ratePerSec > 0 {
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return c
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.get(text); ok {
		return vec, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(text, vec)
	return vec, nil
}

// EmbedBatch serves whatever it can from cache and sends only the misses to
// inner.EmbedBatch, splicing the results back into their original positions.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := c.get(text); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = vecs[j]
		c.put(missTexts[j], vecs[j])
	}
	return out, nil
}

func (c *CachedEmbedder) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[text]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).vec, true
}

func (c *CachedEmbedder) put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		el.Value.(*cacheEntry).vec = vec
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: text, vec: vec})
	c.items[text] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len reports the number of cached entries, for tests and diagnostics.
func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
