package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/realtime"
)

// Watcher follows the API's websocket streams.
type Watcher struct {
	base   *url.URL
	dialer *websocket.Dialer
	header http.Header
}

// NewWatcher derives the websocket endpoint from the client's base URL.
// origin, when set, is sent as the Origin header.
func (c *Client) NewWatcher(origin string) *Watcher {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	hdr := http.Header{}
	if origin != "" {
		hdr.Set("Origin", origin)
	}
	return &Watcher{
		base:   &u,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		header: hdr,
	}
}

func (w *Watcher) stream(ctx context.Context, path string, q url.Values, fn func(realtime.Event) (done bool)) error {
	conn, resp, err := w.dialer.DialContext(ctx, joinURL(w.base, path, q), w.header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return fmt.Errorf("dial %s: %w", path, decodeAPIError(resp))
		}
		return fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if fn(ev) {
			return nil
		}
	}
}

// ErrStreamEnded is returned by WatchClaim when the server closed the
// stream before a terminal status arrived.
var ErrStreamEnded = errors.New("claim stream ended before a terminal status")

// WatchClaim calls fn with the claim's current status and every change
// until a terminal status, which is delivered before WatchClaim returns
// nil.
func (w *Watcher) WatchClaim(ctx context.Context, emailID string, fn func(domain.ClaimStatus)) error {
	terminal := false
	err := w.stream(ctx, "/claims/"+url.PathEscape(emailID)+"/stream", nil, func(ev realtime.Event) bool {
		if ev.Type != realtime.TypeClaimStatus {
			return false
		}
		var d realtime.ClaimStatusData
		if json.Unmarshal(ev.Data, &d) != nil {
			return false
		}
		st := domain.ClaimStatus(d.Status)
		fn(st)
		terminal = st.IsTerminal()
		return terminal
	})
	if err == nil && !terminal {
		return ErrStreamEnded
	}
	return err
}

// Changes calls fn for every catalog invalidation of the business until ctx
// ends or the stream breaks.
func (w *Watcher) Changes(ctx context.Context, businessID uint, fn func(reason string)) error {
	return w.stream(ctx, "/events", idQuery("business_id", businessID), func(ev realtime.Event) bool {
		if ev.Type != realtime.TypeCatalogInvalidate {
			return false
		}
		var d realtime.CatalogData
		_ = json.Unmarshal(ev.Data, &d)
		fn(d.Reason)
		return false
	})
}
