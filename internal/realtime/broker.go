// Package realtime fans change notifications out to interested parties: the
// claim status of a single confirmation email and the invalidation of a
// business's cached catalog. A Broker moves events between processes (Redis
// pub/sub) or within one (memory); the Hub streams them to websocket
// clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Event types.
const (
	TypeClaimStatus       = "claim.status"
	TypeCatalogInvalidate = "catalog.invalidate"
)

// Event is the envelope published on a topic.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// ClaimStatusData is the payload of TypeClaimStatus.
type ClaimStatusData struct {
	EmailID   string `json:"email_id"`
	VoucherID uint   `json:"voucher_id"`
	Status    string `json:"status"`
}

// CatalogData is the payload of TypeCatalogInvalidate.
type CatalogData struct {
	BusinessID uint   `json:"business_id"`
	Reason     string `json:"reason"`
}

// NewEvent marshals data into an event of type t.
func NewEvent(t string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event: %w", err)
	}
	return Event{Type: t, Data: raw, At: time.Now().UTC()}, nil
}

// ClaimTopic is the topic carrying status changes of one claim.
func ClaimTopic(emailID string) string { return "claim:" + emailID }

// CatalogTopic is the topic carrying catalog invalidations of a business.
func CatalogTopic(businessID uint) string {
	return "catalog:" + strconv.FormatUint(uint64(businessID), 10)
}

// CatalogFeedTopic carries the catalog invalidations of every business, for
// caches that serve more than one.
const CatalogFeedTopic = "catalog:all"

// Handler receives events. It runs on the broker's delivery goroutine and
// must not block.
type Handler func(Event)

// Broker publishes events and registers subscribers per topic.
type Broker interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topic string, h Handler) (cancel func(), err error)
}

// MemoryBroker delivers events synchronously to subscribers of the same
// process.
type MemoryBroker struct {
	mu     sync.RWMutex
	next   int
	topics map[string]map[int]Handler
}

// NewMemoryBroker returns an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[int]Handler)}
}

// Publish calls every handler of topic.
func (b *MemoryBroker) Publish(_ context.Context, topic string, ev Event) error {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.topics[topic]))
	for _, h := range b.topics[topic] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
	return nil
}

// Subscribe registers h on topic until cancel is called.
func (b *MemoryBroker) Subscribe(_ context.Context, topic string, h Handler) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]Handler)
	}
	b.topics[topic][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.topics[topic], id)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			b.mu.Unlock()
		})
	}, nil
}

// Subscribers reports the number of handlers on topic.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
