package viewcache

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sushihentaime/blogdesk/internal/common"
)

// Cache stores rendered pages by route path. Each path carries a generation
// that Drop bumps, so a render that began before an invalidation is never
// kept after it.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

// Ticket records the generation of a path when a render began.
type Ticket struct {
	path string
	gen  uint64
}

func NewCache(store Store, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
		gens:   make(map[string]uint64),
	}
}

func (c *Cache) generation(path string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[path]
}

// Lookup returns the cached body of path. Store errors count as a miss.
func (c *Cache) Lookup(ctx context.Context, path string) ([]byte, bool) {
	body, ok, err := c.store.Get(ctx, common.CacheKeyView(path))
	if err != nil {
		c.logger.Error("view cache lookup failed", slog.String("path", path), slog.Any("error", err))
		return nil, false
	}

	return body, ok
}

func (c *Cache) Begin(path string) Ticket {
	return Ticket{path: path, gen: c.generation(path)}
}

// Commit stores body unless path was dropped since t was issued.
func (c *Cache) Commit(ctx context.Context, t Ticket, body []byte) {
	if c.generation(t.path) != t.gen {
		return
	}

	key := common.CacheKeyView(t.path)
	if err := c.store.Set(ctx, key, body); err != nil {
		c.logger.Error("view cache store failed", slog.String("path", t.path), slog.Any("error", err))
		return
	}

	// A Drop that ran between the check and the Set may have deleted the key
	// before we wrote it.
	if c.generation(t.path) != t.gen {
		c.delete(ctx, t.path)
	}
}

// Drop invalidates the cached page of path. It is safe to call repeatedly.
func (c *Cache) Drop(ctx context.Context, path string) {
	c.mu.Lock()
	c.gens[path]++
	c.mu.Unlock()

	c.delete(ctx, path)
}

func (c *Cache) delete(ctx context.Context, path string) {
	if err := c.store.Delete(ctx, common.CacheKeyView(path)); err != nil {
		c.logger.Error("view cache delete failed", slog.String("path", path), slog.Any("error", err))
	}
}

// Handler serves GET requests for next from the cache, keyed by the request
// path. Only 200 responses are stored.
func (c *Cache) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		path := r.URL.Path
		if body, ok := c.Lookup(r.Context(), path); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("X-Cache", "HIT")
			w.Write(body)
			return
		}

		ticket := c.Begin(path)
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK {
			c.Commit(r.Context(), ticket, rec.body.Bytes())
		}
	})
}

// recorder passes the response through while keeping a copy of the body.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
