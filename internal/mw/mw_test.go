package mw

import (
	"net/http"
	"net/http/httptest"
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

func get(r *gin.Engine, path, identity string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if identity != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: identity})
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCache_PerClient(t *testing.T) {
	calls := 0
	r := gin.New()
	r.GET("/orders", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	first := get(r, "/orders", "boss")
	second := get(r, "/orders", "boss")
	other := get(r, "/orders", "op1")

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get(CacheStatusHeader))
	assert.JSONEq(t, `{"calls":2}`, other.Body.String())
	assert.Equal(t, 2, calls)
}

func TestCache_SkipsErrorsAndBypass(t *testing.T) {
	calls := 0
	r := gin.New()
	r.GET("/fail", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusBadGateway, gin.H{"error": "down"})
	})
	r.GET("/stale", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		c.Header(CacheBypassHeader, "1")
		c.JSON(http.StatusOK, gin.H{})
	})

	get(r, "/fail", "")
	get(r, "/fail", "")
	get(r, "/stale", "")
	get(r, "/stale", "")
	assert.Equal(t, 4, calls)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/ping", "op1").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "op1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "op1").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "boss").Code)
}
