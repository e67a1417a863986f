// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the voucher claim procedures: the atomic
// claim itself and the delivery-status updates applied by the email
// dispatcher and the provider webhook.
//
// ClaimVoucher is the single source of truth for claim eligibility. Voucher
// existence, the claim window, the per-email duplicate check and the
// capacity check are evaluated and applied inside one transaction:
//
//   - capacity uses a conditional increment
//     (claimed_count = claimed_count + 1 WHERE claimed_count < max_claims),
//     so concurrent claimants can never push the counter past max_claims;
//   - duplicates are rejected by the (voucher_id, user_email) unique index,
//     with a pre-check so the caller sees "already claimed" ahead of
//     "fully claimed".
//
// Error semantics:
//   - ErrNotFound: voucher missing, or its product is inactive or belongs to
//     another business.
//   - ErrWindow, ErrDuplicate, ErrCapacity: see errors.go.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// ClaimInput parameterizes ClaimVoucher.
type ClaimInput struct {
	VoucherID  uint
	BusinessID uint
	Email      string // already normalized
	EmailID    string // correlation id for the confirmation email
	Now        time.Time
}

// ClaimResult is what a successful claim produced.
type ClaimResult struct {
	Claim   domain.PromoClaim
	Voucher domain.Voucher // ClaimedCount reflects this claim
	Product domain.Product
}

// ClaimVoucher atomically claims one unit of a voucher for an email.
func ClaimVoucher(ctx context.Context, db *gorm.DB, in ClaimInput) (*ClaimResult, error) {
	var res ClaimResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.Voucher{})
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("id = ?", in.VoucherID).First(&res.Voucher).Error; err != nil {
			return err
		}
		if err := tx.
			Where("id = ? AND business_id = ? AND is_active = ?", res.Voucher.ProductID, in.BusinessID, true).
			First(&res.Product).Error; err != nil {
			return err
		}
		if !res.Voucher.ActiveAt(in.Now) {
			return ErrWindow
		}

		var existing int64
		if err := tx.Model(&domain.PromoClaim{}).
			Where("voucher_id = ? AND user_email = ?", in.VoucherID, in.Email).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}

		upd := tx.Model(&domain.Voucher{}).
			Where("id = ? AND (max_claims IS NULL OR claimed_count < max_claims)", in.VoucherID).
			Updates(map[string]any{
				"claimed_count": gorm.Expr("claimed_count + 1"),
				"updated_at":    in.Now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrCapacity
		}
		res.Voucher.ClaimedCount++
		res.Voucher.UpdatedAt = in.Now

		res.Claim = domain.PromoClaim{
			VoucherID: in.VoucherID,
			UserEmail: in.Email,
			ClaimedAt: in.Now,
			Status:    domain.ClaimPending,
			EmailID:   in.EmailID,
			UpdatedAt: in.Now,
		}
		if err := tx.Omit(clause.Associations).Create(&res.Claim).Error; err != nil {
			if IsDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetClaimByEmailID fetches a claim by its correlation id.
func GetClaimByEmailID(ctx context.Context, db *gorm.DB, emailID string) (*domain.PromoClaim, error) {
	var c domain.PromoClaim
	if err := db.WithContext(ctx).Where("email_id = ?", emailID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClaimForDispatch loads a claim with its voucher, the product (images
// preloaded) and the product's business, everything the voucher email
// renders.
func GetClaimForDispatch(ctx context.Context, db *gorm.DB, emailID string) (*domain.PromoClaim, *domain.Product, *domain.Business, error) {
	c, err := GetClaimByEmailID(ctx, db, emailID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.WithContext(ctx).First(&c.Voucher, c.VoucherID).Error; err != nil {
		return nil, nil, nil, err
	}
	var p domain.Product
	if err := db.WithContext(ctx).
		Preload("Images", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("is_primary DESC").Order("sort_order ASC").Order("id ASC")
		}).
		First(&p, c.Voucher.ProductID).Error; err != nil {
		return nil, nil, nil, err
	}
	b, err := GetBusiness(ctx, db, p.BusinessID)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, &p, b, nil
}

// VerifyClaim moves the claim referenced by ref (its email_id or the
// provider's message id) to status. Disallowed transitions, including any
// move out of a terminal status, leave the row untouched and report
// changed=false. The update is conditional on the status read, so two
// concurrent events cannot both win.
func VerifyClaim(ctx context.Context, db *gorm.DB, ref string, status domain.ClaimStatus, now time.Time) (claim *domain.PromoClaim, changed bool, err error) {
	var c domain.PromoClaim
	err = db.WithContext(ctx).
		Where("email_id = ? OR provider_message_id = ?", ref, ref).
		First(&c).Error
	if err != nil {
		return nil, false, err
	}
	if !c.Status.CanTransition(status) {
		return &c, false, nil
	}
	upd := db.WithContext(ctx).Model(&domain.PromoClaim{}).
		Where("id = ? AND status = ?", c.ID, c.Status).
		Updates(map[string]any{"status": status, "updated_at": now})
	if upd.Error != nil {
		return nil, false, upd.Error
	}
	if upd.RowsAffected == 0 {
		// lost the race; report what is stored now
		if err := db.WithContext(ctx).First(&c, c.ID).Error; err != nil {
			return nil, false, err
		}
		return &c, false, nil
	}
	c.Status = status
	c.UpdatedAt = now
	return &c, true, nil
}

// AttachProviderMessage records the provider's message id for a claim and
// moves it from pending to processing. A claim the webhook already advanced
// keeps its status.
func AttachProviderMessage(ctx context.Context, db *gorm.DB, emailID, providerID string, now time.Time) (*domain.PromoClaim, bool, error) {
	var changed bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.PromoClaim{}).
			Where("email_id = ?", emailID).
			Updates(map[string]any{"provider_message_id": providerID, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		adv := tx.Model(&domain.PromoClaim{}).
			Where("email_id = ? AND status = ?", emailID, domain.ClaimPending).
			Update("status", domain.ClaimProcessing)
		if adv.Error != nil {
			return adv.Error
		}
		changed = adv.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	c, err := GetClaimByEmailID(ctx, db, emailID)
	if err != nil {
		return nil, false, err
	}
	return c, changed, nil
}
