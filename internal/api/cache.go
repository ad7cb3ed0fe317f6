package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/themeschema/internal/query"
)

// SnapshotCache returns middleware that tags successful GET responses with a
// weak ETag derived from the live snapshot checksum and turns them into 304
// when If-None-Match matches. Every response changes together on reload, so
// the checksum is a valid validator for all of them. Errors pass through
// untouched.
func SnapshotCache(api *query.API, maxAge int) func(http.Handler) http.Handler {
	cacheControl := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sum := api.Checksum()
			if r.Method != http.MethodGet || sum == "" {
				next.ServeHTTP(w, r)
				return
			}
			etag := `W/"` + sum + `"`
			next.ServeHTTP(&cacheWriter{
				ResponseWriter: w,
				etag:           etag,
				cacheControl:   cacheControl,
				matched:        etagMatch(r.Header.Get("If-None-Match"), etag),
			}, r)
		})
	}
}

// etagMatch applies the weak comparison of RFC 9110 to an If-None-Match list.
func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// cacheWriter adds the validators to successful responses and replaces them
// with an empty 304 when the client already holds the current snapshot.
type cacheWriter struct {
	http.ResponseWriter
	etag         string
	cacheControl string
	matched      bool
	wroteHeader  bool
	discard      bool
}

func (w *cacheWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if code < 200 || code >= 300 {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	h := w.Header()
	h.Set("ETag", w.etag)
	h.Set("Cache-Control", w.cacheControl)
	if w.matched {
		h.Del("Content-Type")
		h.Del("Content-Length")
		w.discard = true
		code = http.StatusNotModified
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.discard {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}
