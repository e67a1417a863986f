// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// CatalogStats returns the number of active products of a business and the
// latest UpdatedAt across those products and their vouchers. A claim bumps
// its voucher's updated_at and a review bumps its product's, so either
// changes the result. maxUpdatedAt is nil when the business has no active
// products.
func CatalogStats(ctx context.Context, db *gorm.DB, businessID uint) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Product{}).
		Where("business_id = ? AND is_active = ?", businessID, true)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// latest updated_at via ORDER BY (MAX() comes back as TEXT in SQLite)
	var prod struct{ UpdatedAt time.Time }
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&prod).Error; err != nil {
		return 0, nil, err
	}
	latest := prod.UpdatedAt

	var vch struct{ UpdatedAt time.Time }
	res := db.WithContext(ctx).Model(&domain.Voucher{}).
		Select("vouchers.updated_at").
		Joins("JOIN products ON products.id = vouchers.product_id").
		Where("products.business_id = ? AND products.is_active = ?", businessID, true).
		Order("vouchers.updated_at DESC").Limit(1).
		Scan(&vch)
	if res.Error != nil {
		return 0, nil, res.Error
	}
	if res.RowsAffected > 0 && vch.UpdatedAt.After(latest) {
		latest = vch.UpdatedAt
	}
	return count, &latest, nil
}

// TestimonialsStats returns the testimonial count of a business and the
// newest CreatedAt. Testimonials are immutable, so that pair identifies the
// list.
func TestimonialsStats(ctx context.Context, db *gorm.DB, businessID uint) (count int64, newest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Testimonial{}).Where("business_id = ?", businessID)
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct{ CreatedAt time.Time }
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
