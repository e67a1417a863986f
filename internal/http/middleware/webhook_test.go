package middleware

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "s3cret"

func webhookRouter(secret string, now time.Time) (*gin.Engine, *[]string) {
	gin.SetMode(gin.TestMode)
	var bodies []string
	r := gin.New()
	r.POST("/email/webhook", WebhookAuth(WebhookAuthOptions{
		Secret: secret,
		Now:    func() time.Time { return now },
	}), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		bodies = append(bodies, string(b))
		c.JSON(http.StatusOK, gin.H{"received": true})
	})
	return r, &bodies
}

func signedRequest(secret, prefix, body string, ts time.Time) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/email/webhook", strings.NewReader(body))
	stamp := strconv.FormatInt(ts.Unix(), 10)
	req.Header.Set(prefix+"-id", "msg_1")
	req.Header.Set(prefix+"-timestamp", stamp)
	req.Header.Set(prefix+"-signature", "v0,zzz v1,"+SignWebhook(secret, "msg_1", stamp, []byte(body)))
	return req
}

func TestWebhookAuth_Accepts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := `{"type":"email.delivered","data":{"email_id":"e1"}}`
	whsec := "whsec_" + base64.StdEncoding.EncodeToString([]byte("raw-key"))

	tests := []struct {
		name   string
		secret string
		req    *http.Request
	}{
		{"bearer", testSecret, func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/email/webhook", strings.NewReader(body))
			r.Header.Set("Authorization", "Bearer "+testSecret)
			return r
		}()},
		{"webhook headers", testSecret, signedRequest(testSecret, "webhook", body, now)},
		{"svix headers", testSecret, signedRequest(testSecret, "svix", body, now.Add(-4*time.Minute))},
		{"whsec secret", whsec, signedRequest(whsec, "webhook", body, now)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, bodies := webhookRouter(tc.secret, now)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tc.req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
			}
			if len(*bodies) != 1 || (*bodies)[0] != body {
				t.Fatalf("handler did not get the raw body: %v", *bodies)
			}
		})
	}
}

func TestWebhookAuth_Rejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := `{"type":"email.delivered","data":{"email_id":"e1"}}`

	tampered := signedRequest(testSecret, "webhook", body, now)
	tampered.Body = io.NopCloser(strings.NewReader(strings.Replace(body, "e1", "e2", 1)))

	tests := []struct {
		name   string
		secret string
		req    *http.Request
	}{
		{"no secret configured", "", signedRequest(testSecret, "webhook", body, now)},
		{"no credentials", testSecret, httptest.NewRequest(http.MethodPost, "/email/webhook", strings.NewReader(body))},
		{"wrong bearer", testSecret, func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/email/webhook", strings.NewReader(body))
			r.Header.Set("Authorization", "Bearer nope")
			return r
		}()},
		{"basic auth", testSecret, func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/email/webhook", strings.NewReader(body))
			r.Header.Set("Authorization", "Basic "+testSecret)
			return r
		}()},
		{"wrong key", testSecret, signedRequest("other", "webhook", body, now)},
		{"stale", testSecret, signedRequest(testSecret, "webhook", body, now.Add(-6*time.Minute))},
		{"future", testSecret, signedRequest(testSecret, "webhook", body, now.Add(6*time.Minute))},
		{"tampered body", testSecret, tampered},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, bodies := webhookRouter(tc.secret, now)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tc.req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", w.Code)
			}
			if len(*bodies) != 0 {
				t.Fatalf("handler must not run")
			}
		})
	}
}

func TestVerifyWebhook_BadTimestamp(t *testing.T) {
	h := http.Header{}
	h.Set("webhook-id", "x")
	h.Set("webhook-timestamp", "yesterday")
	h.Set("webhook-signature", "v1,abc")
	if err := VerifyWebhook(testSecret, h, nil, time.Now(), time.Minute); err != errWebhookBadHeaders {
		t.Fatalf("err = %v", err)
	}
}
