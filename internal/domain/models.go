// Package domain defines the persistence models of the storefront: the
// business singleton, its catalog (categories, products, images, vouchers,
// rating aggregates), customer submissions (reviews, testimonials) and the
// promo claims created when a visitor claims a voucher. The types are mapped
// with GORM and shared by the repository, service and HTTP layers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Business is the storefront owner. The application serves exactly one
// business row, selected by configuration.
type Business struct {
	ID          uint              `json:"id"          gorm:"primaryKey"`
	Name        string            `json:"name"        gorm:"type:varchar(255);not null"`
	Description *string           `json:"description,omitempty" gorm:"type:text"`
	LogoURL     *string           `json:"logo_url,omitempty"`
	WebsiteURL  *string           `json:"website_url,omitempty"`
	Email       *string           `json:"email,omitempty"`
	Phone       *string           `json:"phone,omitempty"`
	Address     *string           `json:"address,omitempty"`
	SocialLinks datatypes.JSONMap `json:"social_links,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName returns the database table name for Business.
func (Business) TableName() string { return "business" }

// Category groups products of a business.
type Category struct {
	ID         uint   `json:"id"          gorm:"primaryKey"`
	BusinessID uint   `json:"business_id" gorm:"not null;index;uniqueIndex:ux_category_business_slug,priority:1"`
	Name       string `json:"name"        gorm:"type:varchar(128);not null"`
	Slug       string `json:"slug"        gorm:"type:varchar(128);not null;uniqueIndex:ux_category_business_slug,priority:2"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Product is a catalog item. It owns zero-or-one voucher, zero-or-one rating
// aggregate and any number of images.
type Product struct {
	ID               uint                `json:"id"          gorm:"primaryKey"`
	BusinessID       uint                `json:"business_id" gorm:"not null;index:idx_products_business_active,priority:1"`
	CategoryID       *uint               `json:"category_id,omitempty" gorm:"index"`
	Name             string              `json:"name"        gorm:"type:varchar(255);not null"`
	Price            decimal.NullDecimal `json:"price"       gorm:"type:decimal(12,2)"`
	ShortDescription *string             `json:"short_description,omitempty" gorm:"type:varchar(512)"`
	Description      *string             `json:"description,omitempty" gorm:"type:text"`
	IsActive         bool                `json:"is_active"   gorm:"not null;default:true;index:idx_products_business_active,priority:2"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`

	Category *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID;references:ID;constraint:OnDelete:SET NULL"`
	Voucher  *Voucher       `json:"voucher,omitempty"  gorm:"foreignKey:ProductID;references:ID"`
	Rating   *ProductRating `json:"-"                  gorm:"foreignKey:ProductID;references:ID"`
	Images   []ProductImage `json:"images,omitempty"   gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// ProductImage is a picture attached to a product.
type ProductImage struct {
	ID        uint    `json:"id"         gorm:"primaryKey"`
	ProductID uint    `json:"product_id" gorm:"not null;index"`
	URL       string  `json:"url"        gorm:"type:varchar(1024);not null"`
	Alt       *string `json:"alt,omitempty"`
	IsPrimary bool    `json:"is_primary" gorm:"not null;default:false"`
	SortOrder int     `json:"sort_order" gorm:"not null;default:0"`
}

// TableName returns the database table name for ProductImage.
func (ProductImage) TableName() string { return "product_images" }

// Voucher is the claimable promotion attached to a product.
//
// A voucher is claimable only while IsPromo is set and the current instant
// lies inside [StartDate, WindowEnd()]. ClaimedCount never exceeds MaxClaims
// when MaxClaims is set; it is changed exclusively by the claim procedure.
type Voucher struct {
	ID             uint                `json:"id"             gorm:"primaryKey"`
	ProductID      uint                `json:"product_id"     gorm:"not null;uniqueIndex"`
	VoucherCode    string              `json:"-"              gorm:"type:varchar(64);not null"`
	Description    *string             `json:"description,omitempty" gorm:"type:text"`
	IsPromo        bool                `json:"is_promo"       gorm:"not null;default:false"`
	IsPriority     bool                `json:"is_priority"    gorm:"not null;default:false"`
	MaxClaims      *int                `json:"max_claims"     gorm:"check:max_claims IS NULL OR max_claims >= 0"`
	ClaimedCount   int                 `json:"claimed_count"  gorm:"not null;default:0;check:claimed_count >= 0"`
	DiscountAmount decimal.NullDecimal `json:"discount_amount" gorm:"type:decimal(12,2)"`
	StartDate      time.Time           `json:"start_date"     gorm:"not null"`
	EndDate        time.Time           `json:"end_date"       gorm:"not null"`
	PromoType      *string             `json:"promo_type,omitempty" gorm:"type:varchar(64)"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TableName returns the database table name for Voucher.
func (Voucher) TableName() string { return "vouchers" }

// ProductRating holds the five star-bucket counters of a product. The
// average is always derived, never stored.
type ProductRating struct {
	ProductID uint      `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	OneStar   int       `json:"one_star"   gorm:"not null;default:0"`
	TwoStar   int       `json:"two_star"   gorm:"not null;default:0"`
	ThreeStar int       `json:"three_star" gorm:"not null;default:0"`
	FourStar  int       `json:"four_star"  gorm:"not null;default:0"`
	FiveStar  int       `json:"five_star"  gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ProductRating.
func (ProductRating) TableName() string { return "product_ratings" }

// ProductReview is a visitor's rating of a product. One per (product, email).
type ProductReview struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	ProductID uint      `json:"product_id" gorm:"not null;index;uniqueIndex:ux_review_product_email,priority:1"`
	Email     string    `json:"-"          gorm:"type:varchar(320);not null;uniqueIndex:ux_review_product_email,priority:2"`
	Rating    int       `json:"rating"     gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Review    *string   `json:"review"     gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for ProductReview.
func (ProductReview) TableName() string { return "product_reviews" }

// Testimonial is a visitor's statement about the business. One per
// (business, email).
type Testimonial struct {
	ID            uint      `json:"id"            gorm:"primaryKey"`
	BusinessID    uint      `json:"business_id"   gorm:"not null;index;uniqueIndex:ux_testimonial_business_email,priority:1"`
	CustomerName  *string   `json:"customer_name" gorm:"type:varchar(255)"`
	CustomerEmail string    `json:"-"             gorm:"type:varchar(320);not null;uniqueIndex:ux_testimonial_business_email,priority:2"`
	Message       string    `json:"message"       gorm:"type:text;not null"`
	Rating        int       `json:"rating"        gorm:"not null;check:rating BETWEEN 1 AND 5"`
	CreatedAt     time.Time `json:"created_at"    gorm:"index"`
}

// TableName returns the database table name for Testimonial.
func (Testimonial) TableName() string { return "testimonials" }

// BusinessService is a service offering rendered in the services section.
type BusinessService struct {
	ID          uint    `json:"id"          gorm:"primaryKey"`
	BusinessID  uint    `json:"business_id" gorm:"not null;index"`
	Name        string  `json:"name"        gorm:"type:varchar(255);not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Icon        *string `json:"icon,omitempty" gorm:"type:varchar(64)"`
	SortOrder   int     `json:"sort_order"  gorm:"not null;default:0"`
}

// TableName returns the database table name for BusinessService.
func (BusinessService) TableName() string { return "business_services" }

// PromoClaim records one visitor's claim on a voucher and tracks the
// delivery of the confirmation email.
//
// Fields:
//   - EmailID: correlation id handed to the client and used by the
//     dispatcher as the provider idempotency key.
//   - ProviderMessageID: id the mail provider assigned on send; webhook
//     events reference it.
//   - Status: see ClaimStatus.
type PromoClaim struct {
	ID                uint        `json:"id"          gorm:"primaryKey"`
	VoucherID         uint        `json:"voucher_id"  gorm:"not null;uniqueIndex:ux_claim_voucher_email,priority:1"`
	UserEmail         string      `json:"-"           gorm:"type:varchar(320);not null;uniqueIndex:ux_claim_voucher_email,priority:2"`
	ClaimedAt         time.Time   `json:"claimed_at"  gorm:"not null"`
	Status            ClaimStatus `json:"status"      gorm:"type:varchar(16);not null;default:'pending'"`
	EmailID           string      `json:"email_id"    gorm:"type:char(36);not null;uniqueIndex"`
	ProviderMessageID *string     `json:"-"           gorm:"type:varchar(128);index"`
	UpdatedAt         time.Time   `json:"updated_at"`

	Voucher Voucher `json:"-" gorm:"foreignKey:VoucherID;references:ID"`
}

// TableName returns the database table name for PromoClaim.
func (PromoClaim) TableName() string { return "promo_claims" }
