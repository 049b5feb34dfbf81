package mw

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ResponseCache holds cached GET responses. Every flush starts a new
// generation; a response computed in an older generation is never stored.
type ResponseCache struct {
	store *cache.Cache

	mu         sync.Mutex
	generation uint64
}

// NewResponseCache wraps store for use by Cache and Invalidate.
func NewResponseCache(store *cache.Cache) *ResponseCache {
	return &ResponseCache{store: store}
}

func (rc *ResponseCache) current() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.generation
}

// set stores resp unless the cache was flushed after generation was read.
func (rc *ResponseCache) set(key string, resp cachedResponse, generation uint64, ttl time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if generation == rc.generation {
		rc.store.Set(key, resp, ttl)
	}
}

func (rc *ResponseCache) flush() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.generation++
	rc.store.Flush()
}

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests for the same URI from memory.
func Cache(rc *ResponseCache, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if resp, found := rc.store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		generation := rc.current()
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() >= 200 && blw.Status() < 300 {
			rc.set(key, cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			}, generation, duration)
		}
	}
}

type invalidateWriter struct {
	gin.ResponseWriter
	cache   *ResponseCache
	flushed bool
}

func (w *invalidateWriter) flush() {
	if status := w.Status(); !w.flushed && status >= 200 && status < 300 {
		w.cache.flush()
		w.flushed = true
	}
}

func (w *invalidateWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *invalidateWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

func (w *invalidateWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

// Invalidate flushes the cache when a mutation succeeds, before its response
// reaches the caller, so the refetch that follows sees the new state.
func Invalidate(rc *ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !mutating(c.Request.Method) {
			c.Next()
			return
		}
		w := &invalidateWriter{ResponseWriter: c.Writer, cache: rc}
		c.Writer = w
		c.Next()
		w.flush()
	}
}
