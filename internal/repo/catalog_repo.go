// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read queries for the storefront
// catalog: the business singleton, categories, services and products.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: query composition only, no business rules. Voucher window
// filtering and ranking happen in the services package.
//
// Error semantics:
//   - Single-row lookups return ErrNotFound when the row is missing.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// GetBusiness fetches the business row with the given id.
func GetBusiness(ctx context.Context, db *gorm.DB, id uint) (*domain.Business, error) {
	var b domain.Business
	if err := db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListCategories returns the categories of a business ordered by name.
func ListCategories(ctx context.Context, db *gorm.DB, businessID uint) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}

// ListServices returns the services of a business in display order.
func ListServices(ctx context.Context, db *gorm.DB, businessID uint) ([]domain.BusinessService, error) {
	var out []domain.BusinessService
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("sort_order ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}

// ProductFilter narrows ListActiveProducts.
type ProductFilter struct {
	BusinessID uint
	CategoryID *uint
}

// ListActiveProducts returns every active product of a business with its
// voucher, rating aggregate, category and images preloaded. Rows come back
// in id order so later stable sorting has a deterministic base.
func ListActiveProducts(ctx context.Context, db *gorm.DB, f ProductFilter) ([]domain.Product, error) {
	q := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", f.BusinessID, true)
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	var out []domain.Product
	err := q.
		Preload("Voucher").
		Preload("Rating").
		Preload("Category").
		Preload("Images", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("is_primary DESC").Order("sort_order ASC").Order("id ASC")
		}).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetProduct fetches an active product of a business.
func GetProduct(ctx context.Context, db *gorm.DB, businessID, productID uint) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("id = ? AND business_id = ? AND is_active = ?", productID, businessID, true).
		Preload("Voucher").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// BusinessIDForVoucher returns the business owning a voucher's product.
func BusinessIDForVoucher(ctx context.Context, db *gorm.DB, voucherID uint) (uint, error) {
	var row struct{ BusinessID uint }
	res := db.WithContext(ctx).Model(&domain.Voucher{}).
		Select("products.business_id").
		Joins("JOIN products ON products.id = vouchers.product_id").
		Where("vouchers.id = ?", voucherID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return row.BusinessID, nil
}
