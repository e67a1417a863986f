package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// InsertTestimonial stores a testimonial. A second testimonial from the same
// email for the same business yields ErrDuplicate; an unknown business
// yields ErrNotFound.
func InsertTestimonial(ctx context.Context, db *gorm.DB, t *domain.Testimonial) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Business{}).Where("id = ?", t.BusinessID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Create(t).Error; err != nil {
			if IsDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// ListTestimonials returns a business's testimonials, newest first.
func ListTestimonials(ctx context.Context, db *gorm.DB, businessID uint) ([]domain.Testimonial, error) {
	var out []domain.Testimonial
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	return out, err
}
