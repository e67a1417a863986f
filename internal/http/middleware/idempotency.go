// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotent replay for unsafe HTTP methods. A POST
// carrying an Idempotency-Key is looked up under a scope made of the route
// and the caller's IP. A stored response is written back verbatim without
// running the handler; otherwise the handler runs and its response is stored
// for the TTL the store applies.
//
// Persistence is decoupled via the IdempotencyStore interface.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to convey an
// idempotency key for unsafe operations.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set on responses served from the store.
const HeaderIdempotentReplay = "Idempotent-Replayed"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored response was served
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated key stashed by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response was served from the store.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// StoredResponse is a response recorded under an idempotency key.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyStore persists responses per (scope, key). Lookup returns
// found=false for unknown or expired keys. Save must tolerate a concurrent
// Save of the same pair (first writer wins).
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string, now time.Time) (resp StoredResponse, found bool, err error)
	Save(ctx context.Context, scope, key string, resp StoredResponse) error
}

// IdempotencyOptions configures key validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 128.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Now is the clock used for expiry checks; defaults to time.Now.
	Now func() time.Time
}

// Idempotency returns the replay middleware.
//
// Behavior:
//   - Safe methods and requests without the header pass through untouched.
//   - A malformed key is rejected with 400.
//   - A stored response is replayed with the Idempotent-Replayed header and
//     the chain is aborted, so neither the handler nor the rate limiter run.
//   - Otherwise the response is captured and saved when its status is below
//     500. Server errors are not stored so the client can retry them.
//
// Store failures are logged and never block the request.
func Idempotency(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		if !isUnsafe(c.Request.Method) {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": GetRequestID(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		if store == nil {
			c.Next()
			return
		}

		scope := idempotencyScope(c)
		ctx := c.Request.Context()
		lg := LoggerFrom(c)

		stored, found, err := store.Lookup(ctx, scope, key, now().UTC())
		if err != nil {
			lg.Warn().Err(err).Msg("idempotency lookup failed")
		}
		if found {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		rec := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError || rec.body.Len() == 0 {
			return
		}
		if err := store.Save(ctx, scope, key, StoredResponse{Status: status, Body: rec.body.Bytes()}); err != nil {
			lg.Warn().Err(err).Msg("idempotency save failed")
		}
	}
}

// idempotencyScope binds a key to the route and the caller.
func idempotencyScope(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path + " " + c.ClientIP()
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// captureWriter tees the response body into a buffer.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
