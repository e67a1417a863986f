// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the product review procedure and the
// review listing.
//
// Error semantics:
//   - RateAndReviewProduct returns ErrNotFound when the product is not an
//     active product of the business and ErrDuplicate when the email already
//     reviewed the product. The review insert and the rating bucket
//     increment commit together or not at all.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// ReviewInput parameterizes RateAndReviewProduct.
type ReviewInput struct {
	BusinessID uint
	ProductID  uint
	Email      string // already normalized
	Rating     int    // 1..5
	Review     *string
	Now        time.Time
}

// RateAndReviewProduct stores a review and bumps the product's rating
// aggregate in one transaction.
func RateAndReviewProduct(ctx context.Context, db *gorm.DB, in ReviewInput) (*domain.ProductReview, error) {
	col, err := domain.BucketColumn(in.Rating)
	if err != nil {
		return nil, err
	}
	rev := &domain.ProductReview{
		ProductID: in.ProductID,
		Email:     in.Email,
		Rating:    in.Rating,
		Review:    in.Review,
		CreatedAt: in.Now,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Product{}).
			Where("id = ? AND business_id = ? AND is_active = ?", in.ProductID, in.BusinessID, true).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Create(rev).Error; err != nil {
			if IsDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.ProductRating{ProductID: in.ProductID, UpdatedAt: in.Now}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.ProductRating{}).
			Where("product_id = ?", in.ProductID).
			Updates(map[string]any{col: gorm.Expr(col + " + 1"), "updated_at": in.Now}).Error; err != nil {
			return err
		}
		// the listing ETag follows products.updated_at
		return tx.Model(&domain.Product{}).
			Where("id = ?", in.ProductID).
			UpdateColumn("updated_at", in.Now).Error
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// ListReviews returns the reviews of a product that carry text, newest
// first. Rating-only submissions stay out of the list.
func ListReviews(ctx context.Context, db *gorm.DB, productID uint) ([]domain.ProductReview, error) {
	var out []domain.ProductReview
	err := db.WithContext(ctx).
		Where("product_id = ? AND review IS NOT NULL AND TRIM(review) <> ''", productID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	return out, err
}
