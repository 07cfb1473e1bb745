package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const (
	// CacheBypassHeader set to a non-empty value on a response keeps it out
	// of the cache.
	CacheBypassHeader = "X-Cache-Bypass"
	// CacheStatusHeader is set to HIT on responses replayed from memory.
	CacheStatusHeader = "X-Cache"
)

type storedResponse struct {
	code   int
	header http.Header
	body   []byte
}

// teeWriter copies the body sent to the client.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache replays GET responses of slow backend views, like the ERP work
// order list, for ttl. Entries are keyed per client because what a client
// sees depends on its session.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := ClientKey(c) + " " + c.Request.URL.RequestURI()
		if v, ok := store.Get(key); ok {
			replay(c, v.(storedResponse))
			return
		}

		tw := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tw
		c.Next()

		if !cacheable(tw) {
			return
		}
		store.Set(key, storedResponse{
			code:   tw.Status(),
			header: tw.Header().Clone(),
			body:   tw.buf.Bytes(),
		}, ttl)
	}
}

// cacheable rejects errors and stale fallbacks flagged by the handler.
func cacheable(w *teeWriter) bool {
	code := w.Status()
	return code >= 200 && code < 300 && w.Header().Get(CacheBypassHeader) == ""
}

func replay(c *gin.Context, r storedResponse) {
	h := c.Writer.Header()
	for k, v := range r.header {
		h[k] = v
	}
	h.Set(CacheStatusHeader, "HIT")
	c.Writer.WriteHeader(r.code)
	c.Writer.Write(r.body)
	c.Abort()
}
