package mw

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	return serveFrom(r, "192.0.2.1", method, path, headers)
}

func serveFrom(r *gin.Engine, ip, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":40000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity(t *testing.T) {
	r := gin.New()
	r.Use(Identity())
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "location": LocationID(c)})
	}
	r.GET("/beds", handler)
	r.POST("/beds", handler)

	w := serve(r, http.MethodPost, "/beds", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"x-user-id header is required"}`, w.Body.String())

	w = serve(r, http.MethodPost, "/beds", map[string]string{HeaderUserID: "u1", HeaderLocationID: "loc-9"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","location":"loc-9"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/beds", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCacheAndInvalidate(t *testing.T) {
	responses := NewResponseCache(cache.New(time.Minute, time.Minute))
	calls := 0

	r := gin.New()
	r.Use(Invalidate(responses))
	r.GET("/sites", Cache(responses, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.POST("/beds/check-in", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/beds/check-out", func(c *gin.Context) { c.Status(http.StatusConflict) })

	w := serve(r, http.MethodGet, "/sites", nil)
	assert.JSONEq(t, `{"calls":1}`, w.Body.String())
	w = serve(r, http.MethodGet, "/sites", nil)
	assert.JSONEq(t, `{"calls":1}`, w.Body.String())
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	serve(r, http.MethodPost, "/beds/check-out", nil)
	w = serve(r, http.MethodGet, "/sites", nil)
	assert.JSONEq(t, `{"calls":1}`, w.Body.String(), "failed mutations keep the cache")

	serve(r, http.MethodPost, "/beds/check-in", nil)
	w = serve(r, http.MethodGet, "/sites", nil)
	assert.JSONEq(t, `{"calls":2}`, w.Body.String())
}

func TestCache_SlowReadDuringMutation(t *testing.T) {
	responses := NewResponseCache(cache.New(time.Minute, time.Minute))
	var state atomic.Int64
	state.Store(1)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	r := gin.New()
	r.Use(Invalidate(responses))
	r.GET("/sites/1/beds", Cache(responses, time.Minute), func(c *gin.Context) {
		seen := state.Load()
		if c.Query("slow") == "1" {
			once.Do(func() { close(started) })
			<-release
		}
		c.JSON(http.StatusOK, gin.H{"state": seen})
	})
	r.POST("/beds/check-in", func(c *gin.Context) {
		state.Store(2)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := serve(r, http.MethodGet, "/sites/1/beds?slow=1", nil)
		assert.JSONEq(t, `{"state":1}`, w.Body.String())
	}()
	<-started
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/beds/check-in", nil).Code)
	close(release)
	wg.Wait()

	w := serve(r, http.MethodGet, "/sites/1/beds?slow=1", nil)
	assert.Empty(t, w.Header().Get("X-Cache"), "the read that overlapped the mutation must not be cached")
	assert.JSONEq(t, `{"state":2}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	user := func(id string) map[string]string { return map[string]string{HeaderUserID: id} }

	assert.Equal(t, http.StatusOK, serveFrom(r, "10.0.0.1", http.MethodGet, "/", user("u1")).Code)
	assert.Equal(t, http.StatusOK, serveFrom(r, "10.0.0.1", http.MethodGet, "/", user("u1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(r, "10.0.0.1", http.MethodGet, "/", user("u1")).Code)

	// The user's own bucket follows them to another address.
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(r, "10.0.0.2", http.MethodGet, "/", user("u1")).Code)
	assert.Equal(t, http.StatusOK, serveFrom(r, "10.0.0.3", http.MethodGet, "/", user("u2")).Code)
}

func TestRateLimiter_RotatingUserIDs(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	allowed := 0
	for i := 0; i < 50; i++ {
		w := serveFrom(r, "10.0.0.9", http.MethodGet, "/", map[string]string{HeaderUserID: fmt.Sprintf("user-%d", i)})
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestKeyedRateLimiter_EvictsIdleBuckets(t *testing.T) {
	limiter := newKeyedRateLimiter(rate.Limit(1), 1, 200*time.Millisecond)
	r := gin.New()
	r.Use(rateLimit(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		serveFrom(r, fmt.Sprintf("10.0.1.%d", i), http.MethodGet, "/", nil)
	}
	assert.Equal(t, 5, limiter.limiters.ItemCount())
	assert.Eventually(t, func() bool { return limiter.limiters.ItemCount() == 0 }, 2*time.Second, 20*time.Millisecond)
}
