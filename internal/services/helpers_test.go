package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voucherverse/storefront-api/internal/content"
	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/queue"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/repo"
)

const bizID = 1

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seeded opens a database with the demo catalog and returns a fixed clock.
func seeded(t *testing.T) (*gorm.DB, time.Time) {
	t.Helper()
	db := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	if err := repo.SeedDemo(context.Background(), db, bizID, now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db, now
}

func voucherByCode(t *testing.T, db *gorm.DB, code string) domain.Voucher {
	t.Helper()
	var v domain.Voucher
	if err := db.Where("voucher_code = ?", code).First(&v).Error; err != nil {
		t.Fatalf("voucher %s: %v", code, err)
	}
	return v
}

func productByName(t *testing.T, db *gorm.DB, name string) domain.Product {
	t.Helper()
	var p domain.Product
	if err := db.Where("name = ?", name).First(&p).Error; err != nil {
		t.Fatalf("product %s: %v", name, err)
	}
	return p
}

type published struct {
	topic string
	ev    realtime.Event
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []published
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, published{topic, ev})
	return nil
}

func (r *recordingPublisher) on(topic string) []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Event
	for _, p := range r.got {
		if p.topic == topic {
			out = append(out, p.ev)
		}
	}
	return out
}

func claimStatusOf(t *testing.T, ev realtime.Event) string {
	t.Helper()
	var d realtime.ClaimStatusData
	if err := json.Unmarshal(ev.Data, &d); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return d.Status
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, queue.Job) error { return errors.New("redis down") }

func fixedClock(now time.Time) func() time.Time { return func() time.Time { return now } }

func newCatalog(db *gorm.DB, now time.Time) *CatalogService {
	return &CatalogService{DB: db, Promo: content.Default(), Cache: NewListingCache(time.Minute), Now: fixedClock(now)}
}

type noopQueue struct{}

func (noopQueue) Enqueue(context.Context, queue.Job) error { return nil }
