package respcache

import (
	"bytes"
	"net/http"

	"github.com/kerjago/kerjago/pkg/metrics"
)

// cacheHeader tags responses so clients can distinguish hits from misses.
const cacheHeader = "X-Cache"

// Middleware returns a read-through caching middleware for the namespace.
// Only GET requests are eligible. On a hit the stored body is returned
// verbatim and the downstream handler is skipped entirely; on a miss the
// response is captured and stored with the configured TTL when the handler
// answered 200.
func (c *Cache) Middleware(namespace string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.client == nil || r.Method != http.MethodGet {
				if r.Method == http.MethodGet {
					metrics.CacheRequests.WithLabelValues("bypass").Inc()
				}
				next.ServeHTTP(w, r)
				return
			}

			key := Key(c.cfg.KeyPrefix, namespace, r.URL.Path, r.URL.Query())

			if e, ok := c.get(r.Context(), key); ok {
				metrics.CacheRequests.WithLabelValues("hit").Inc()
				if e.ContentType != "" {
					w.Header().Set("Content-Type", e.ContentType)
				}
				w.Header().Set(cacheHeader, "HIT")
				w.WriteHeader(e.Status)
				_, _ = w.Write(e.Body)
				return
			}

			metrics.CacheRequests.WithLabelValues("miss").Inc()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set(cacheHeader, "MISS")
			next.ServeHTTP(rec, r)

			// Only successful responses are worth replaying later.
			if rec.status == http.StatusOK {
				c.set(r.Context(), key, entry{
					Status:      rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.buf.Bytes(),
				})
			}
		})
	}
}

// recorder tees the response body so it can be stored after serving.
type recorder struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}
