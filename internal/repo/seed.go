package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// SeedDemo populates an empty store with a demo business, a small catalog
// with vouchers, services and testimonials. It does nothing when the
// business already exists, so it is safe to run on every start in
// development. Voucher windows are placed around now.
func SeedDemo(ctx context.Context, db *gorm.DB, businessID uint, now time.Time) error {
	_, err := GetBusiness(ctx, db, businessID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	str := func(s string) *string { return &s }
	intp := func(i int) *int { return &i }
	money := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b := domain.Business{
			ID:          businessID,
			Name:        "VoucherVerse Outfitters",
			Description: str("Outdoor gear with weekly vouchers."),
			WebsiteURL:  str("https://voucherverse.example"),
			Email:       str("hello@voucherverse.example"),
			SocialLinks: datatypes.JSONMap{"instagram": "https://instagram.com/voucherverse"},
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}

		camping := domain.Category{BusinessID: b.ID, Name: "Camping", Slug: "camping"}
		apparel := domain.Category{BusinessID: b.ID, Name: "Apparel", Slug: "apparel"}
		if err := tx.Create(&[]*domain.Category{&camping, &apparel}).Error; err != nil {
			return err
		}

		products := []struct {
			p domain.Product
			v *domain.Voucher
			r *domain.ProductRating
		}{
			{
				p: domain.Product{BusinessID: b.ID, CategoryID: &camping.ID, Name: "Trail Tent 2P", Price: money("249.00"),
					ShortDescription: str("Two-person ultralight tent"), IsActive: true},
				v: &domain.Voucher{VoucherCode: "TENT-40", IsPromo: true, IsPriority: true, MaxClaims: intp(50),
					DiscountAmount: money("40.00"), StartDate: day.AddDate(0, 0, -3), EndDate: day.AddDate(0, 0, 14), PromoType: str("Summer Sale")},
				r: &domain.ProductRating{FourStar: 3, FiveStar: 5},
			},
			{
				p: domain.Product{BusinessID: b.ID, CategoryID: &camping.ID, Name: "Camp Stove", Price: money("89.50"),
					ShortDescription: str("Compact gas stove"), IsActive: true},
				v: &domain.Voucher{VoucherCode: "STOVE-15", IsPromo: true, MaxClaims: intp(1),
					DiscountAmount: money("15.00"), StartDate: day.AddDate(0, 0, -1), EndDate: day.AddDate(0, 0, 7), PromoType: str("Flash Deal")},
				r: &domain.ProductRating{ThreeStar: 2, FourStar: 1},
			},
			{
				p: domain.Product{BusinessID: b.ID, CategoryID: &apparel.ID, Name: "Rain Shell", Price: money("129.00"),
					ShortDescription: str("Waterproof breathable jacket"), IsActive: true},
				v: &domain.Voucher{VoucherCode: "SHELL-20", IsPromo: true,
					DiscountAmount: money("20.00"), StartDate: day.AddDate(0, 0, -30), EndDate: day.AddDate(0, 0, -2)},
			},
			{
				p: domain.Product{BusinessID: b.ID, CategoryID: &apparel.ID, Name: "Merino Beanie", Price: money("25.00"),
					ShortDescription: str("Warm wool beanie"), IsActive: true},
			},
		}
		for _, it := range products {
			p := it.p
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			if err := tx.Create(&domain.ProductImage{ProductID: p.ID, URL: fmt.Sprintf("https://cdn.voucherverse.example/p/%d.jpg", p.ID), IsPrimary: true}).Error; err != nil {
				return err
			}
			if it.v != nil {
				v := *it.v
				v.ProductID = p.ID
				if err := tx.Create(&v).Error; err != nil {
					return err
				}
			}
			if it.r != nil {
				r := *it.r
				r.ProductID = p.ID
				if err := tx.Create(&r).Error; err != nil {
					return err
				}
			}
		}

		services := []domain.BusinessService{
			{BusinessID: b.ID, Name: "Gear Rental", Description: str("Rent tents and stoves by the weekend."), Icon: str("tent"), SortOrder: 1},
			{BusinessID: b.ID, Name: "Repairs", Description: str("Seam sealing and zipper fixes."), Icon: str("wrench"), SortOrder: 2},
		}
		if err := tx.Create(&services).Error; err != nil {
			return err
		}

		return tx.Create(&domain.Testimonial{
			BusinessID: b.ID, CustomerName: str("Dana"), CustomerEmail: "dana@example.com",
			Message: "Claimed a voucher and saved on my tent!", Rating: 5, CreatedAt: now.Add(-48 * time.Hour),
		}).Error
	})
}
