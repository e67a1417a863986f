package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestMemoryBroker_PublishSubscribeCancel(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	cancel, err := b.Subscribe(ctx, "t1", func(ev Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = b.Publish(ctx, "t1", Event{Type: "a"})
	_ = b.Publish(ctx, "other", Event{Type: "x"})
	cancel()
	cancel() // idempotent
	_ = b.Publish(ctx, "t1", Event{Type: "b"})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
	if n := b.Subscribers("t1"); n != 0 {
		t.Fatalf("subscribers after cancel = %d", n)
	}
}

func TestTopicsAndNewEvent(t *testing.T) {
	if ClaimTopic("abc") != "claim:abc" {
		t.Fatalf("ClaimTopic = %q", ClaimTopic("abc"))
	}
	if CatalogTopic(7) != "catalog:7" {
		t.Fatalf("CatalogTopic = %q", CatalogTopic(7))
	}
	ev, err := NewEvent(TypeClaimStatus, ClaimStatusData{EmailID: "e", Status: "delivered"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	var d ClaimStatusData
	if err := json.Unmarshal(ev.Data, &d); err != nil || d.Status != "delivered" {
		t.Fatalf("data = %s (%v)", ev.Data, err)
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list allows all", nil, "https://evil.example", true},
		{"wildcard", []string{"*"}, "https://a.example", true},
		{"listed", []string{"https://shop.example/"}, "https://shop.example", true},
		{"unlisted", []string{"https://shop.example"}, "https://evil.example", false},
		{"no origin header", []string{"https://shop.example"}, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			if got := originChecker(tc.allowed)(r); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestHub_SnapshotThenEventsUntilTerminal(t *testing.T) {
	b := NewMemoryBroker()
	hub := NewHub(b, nil, zerolog.Nop())
	topic := ClaimTopic("e1")

	snap := func(context.Context) (*Event, error) {
		ev, _ := NewEvent(TypeClaimStatus, ClaimStatusData{EmailID: "e1", Status: "processing"})
		return &ev, nil
	}
	until := func(ev Event) bool {
		var d ClaimStatusData
		_ = json.Unmarshal(ev.Data, &d)
		return d.Status == "delivered"
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, topic, snap, until)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	read := func() ClaimStatusData {
		t.Helper()
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		var d ClaimStatusData
		_ = json.Unmarshal(ev.Data, &d)
		return d
	}
	if d := read(); d.Status != "processing" {
		t.Fatalf("snapshot status = %q", d.Status)
	}

	// subscription exists before the snapshot is written
	if n := b.Subscribers(topic); n != 1 {
		t.Fatalf("subscribers = %d", n)
	}
	ev, _ := NewEvent(TypeClaimStatus, ClaimStatusData{EmailID: "e1", Status: "delivered"})
	_ = b.Publish(context.Background(), topic, ev)
	if d := read(); d.Status != "delivered" {
		t.Fatalf("status = %q", d.Status)
	}

	var tmp Event
	if err := conn.ReadJSON(&tmp); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for b.Subscribers(topic) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := b.Subscribers(topic); n != 0 {
		t.Fatalf("subscription leaked: %d", n)
	}
}
