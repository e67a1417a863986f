package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&Business{}, &Category{}, &Product{}, &ProductImage{}, &Voucher{},
		&ProductRating{}, &ProductReview{}, &Testimonial{}, &BusinessService{}, &PromoClaim{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]interface{ TableName() string }{
		"business":          Business{},
		"categories":        Category{},
		"products":          Product{},
		"product_images":    ProductImage{},
		"vouchers":          Voucher{},
		"product_ratings":   ProductRating{},
		"product_reviews":   ProductReview{},
		"testimonials":      Testimonial{},
		"business_services": BusinessService{},
		"promo_claims":      PromoClaim{},
		"idempotency":       Idempotency{},
	}
	for want, m := range cases {
		if got := m.TableName(); got != want {
			t.Fatalf("%T.TableName() = %q; want %q", m, got, want)
		}
	}
}

func TestMigrations_UniqueIndexes(t *testing.T) {
	db := newTestDB(t)
	m := db.Migrator()

	for model, idx := range map[any]string{
		&ProductReview{}: "ux_review_product_email",
		&Testimonial{}:   "ux_testimonial_business_email",
		&PromoClaim{}:    "ux_claim_voucher_email",
		&Idempotency{}:   "ux_idem_scope_key",
		&Category{}:      "ux_category_business_slug",
	} {
		if !m.HasIndex(model, idx) {
			t.Fatalf("expected index %s on %T", idx, model)
		}
	}

	now := time.Now().UTC()
	b := &Business{Name: "Acme", SocialLinks: datatypes.JSONMap{"instagram": "https://instagram.com/acme"}}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("insert business: %v", err)
	}
	p := &Product{BusinessID: b.ID, Name: "Lamp", IsActive: true, Price: decimal.NewNullDecimal(decimal.RequireFromString("19.99"))}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("insert product: %v", err)
	}
	v := &Voucher{ProductID: p.ID, VoucherCode: "LAMP10", IsPromo: true, StartDate: now, EndDate: now.Add(time.Hour)}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("insert voucher: %v", err)
	}

	c1 := &PromoClaim{VoucherID: v.ID, UserEmail: "a@example.com", ClaimedAt: now, Status: ClaimPending, EmailID: "00000000-0000-0000-0000-000000000001"}
	if err := db.Create(c1).Error; err != nil {
		t.Fatalf("insert claim: %v", err)
	}
	c2 := &PromoClaim{VoucherID: v.ID, UserEmail: "a@example.com", ClaimedAt: now, Status: ClaimPending, EmailID: "00000000-0000-0000-0000-000000000002"}
	err := db.Create(c2).Error
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "unique") {
		t.Fatalf("expected unique violation on second claim, got %v", err)
	}

	var got Product
	if err := db.Preload("Voucher").First(&got, p.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Voucher == nil || got.Voucher.VoucherCode != "LAMP10" {
		t.Fatalf("voucher not preloaded: %+v", got.Voucher)
	}
	if !got.Price.Valid || !got.Price.Decimal.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("price round trip: %+v", got.Price)
	}

	var gb Business
	if err := db.First(&gb, b.ID).Error; err != nil {
		t.Fatalf("reload business: %v", err)
	}
	if gb.SocialLinks["instagram"] != "https://instagram.com/acme" {
		t.Fatalf("social links round trip: %#v", gb.SocialLinks)
	}
}
