package repo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// newTestDB opens a private in-memory database with the full schema. A
// single connection serializes concurrent transactions the way a real
// SQLite writer lock would, without shared-cache table lock errors.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
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
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fixture struct {
	business domain.Business
	product  domain.Product
	voucher  domain.Voucher
}

// seedVoucher creates a business, an active product and a promo voucher
// whose window covers now.
func seedVoucher(t *testing.T, db *gorm.DB, now time.Time, maxClaims *int) fixture {
	t.Helper()
	f := fixture{business: domain.Business{Name: "Acme"}}
	if err := db.Create(&f.business).Error; err != nil {
		t.Fatalf("seed business: %v", err)
	}
	f.product = domain.Product{BusinessID: f.business.ID, Name: "Lamp", IsActive: true}
	if err := db.Create(&f.product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	f.voucher = domain.Voucher{
		ProductID:      f.product.ID,
		VoucherCode:    "LAMP10",
		IsPromo:        true,
		MaxClaims:      maxClaims,
		DiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		StartDate:      now.Add(-24 * time.Hour),
		EndDate:        now.Add(24 * time.Hour),
	}
	if err := db.Create(&f.voucher).Error; err != nil {
		t.Fatalf("seed voucher: %v", err)
	}
	return f
}

func intPtr(i int) *int { return &i }
