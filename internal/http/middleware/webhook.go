// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates the mail provider's delivery webhook before the
// body is parsed. Two schemes are accepted:
//
//   - Authorization: Bearer <secret>, compared in constant time.
//   - Signed headers webhook-id, webhook-timestamp and webhook-signature
//     (svix-* aliases accepted). The signature list holds space-separated
//     "v1,<base64>" entries, each an HMAC-SHA256 over
//     "<id>.<timestamp>.<raw body>". Secrets prefixed "whsec_" are base64.
//
// Any failure aborts with 401 and the body is never handed to the handler.
// On success the raw body is restored so the handler can bind it.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultWebhookTolerance bounds the age and skew of a signed timestamp.
const DefaultWebhookTolerance = 5 * time.Minute

var (
	errWebhookNoSecret   = errors.New("webhook secret not configured")
	errWebhookNoCreds    = errors.New("missing webhook credentials")
	errWebhookMismatch   = errors.New("webhook signature mismatch")
	errWebhookStale      = errors.New("webhook timestamp outside tolerance")
	errWebhookBadHeaders = errors.New("malformed webhook headers")
)

// WebhookAuthOptions configures WebhookAuth.
type WebhookAuthOptions struct {
	Secret    string
	Tolerance time.Duration    // defaults to DefaultWebhookTolerance
	MaxBody   int64            // defaults to 1 MiB
	Now       func() time.Time // defaults to time.Now
}

// WebhookAuth returns a middleware rejecting unauthenticated webhook calls
// with 401.
func WebhookAuth(opts WebhookAuthOptions) gin.HandlerFunc {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultWebhookTolerance
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = 1 << 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return func(c *gin.Context) {
		lg := LoggerFrom(c)
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, opts.MaxBody+1))
		if err != nil || int64(len(body)) > opts.MaxBody {
			lg.Warn().Err(err).Msg("webhook body unreadable")
			unauthorized(c)
			return
		}
		if err := VerifyWebhook(opts.Secret, c.Request.Header, body, opts.Now(), opts.Tolerance); err != nil {
			lg.Warn().Err(err).Msg("webhook rejected")
			unauthorized(c)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": GetRequestID(c),
		"code":       "unauthorized",
		"message":    "Unauthorized",
	})
}

// VerifyWebhook checks h and body against secret using either scheme.
func VerifyWebhook(secret string, h http.Header, body []byte, now time.Time, tolerance time.Duration) error {
	if secret == "" {
		return errWebhookNoSecret
	}
	if auth := h.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return errWebhookBadHeaders
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(secret)) != 1 {
			return errWebhookMismatch
		}
		return nil
	}

	id := firstHeader(h, "webhook-id", "svix-id")
	ts := firstHeader(h, "webhook-timestamp", "svix-timestamp")
	sigs := firstHeader(h, "webhook-signature", "svix-signature")
	if id == "" || ts == "" || sigs == "" {
		return errWebhookNoCreds
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errWebhookBadHeaders
	}
	if math.Abs(now.Sub(time.Unix(sec, 0)).Seconds()) > tolerance.Seconds() {
		return errWebhookStale
	}

	want := SignWebhook(secret, id, ts, body)
	for _, s := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(s, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(want)) {
			return nil
		}
	}
	return errWebhookMismatch
}

// SignWebhook returns the base64 v1 signature for a message.
func SignWebhook(secret, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, webhookKey(secret))
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// webhookKey decodes "whsec_" secrets; anything else is used verbatim.
func webhookKey(secret string) []byte {
	if raw, ok := strings.CutPrefix(secret, "whsec_"); ok {
		if k, err := base64.StdEncoding.DecodeString(raw); err == nil {
			return k
		}
	}
	return []byte(secret)
}

func firstHeader(h http.Header, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(h.Get(n)); v != "" {
			return v
		}
	}
	return ""
}
