package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voucherverse/storefront-api/internal/domain"
)

func TestRateAndReviewProduct(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	f := seedVoucher(t, db, now, nil)
	text := "Great lamp"

	in := ReviewInput{BusinessID: f.business.ID, ProductID: f.product.ID, Email: "a@example.com", Rating: 4, Review: &text, Now: now}
	if _, err := RateAndReviewProduct(ctx, db, in); err != nil {
		t.Fatalf("first review: %v", err)
	}
	in2 := in
	in2.Email = "b@example.com"
	in2.Rating = 2
	in2.Review = nil
	in2.Now = now.Add(time.Minute)
	if _, err := RateAndReviewProduct(ctx, db, in2); err != nil {
		t.Fatalf("second review: %v", err)
	}

	var r domain.ProductRating
	if err := db.First(&r, "product_id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("load rating: %v", err)
	}
	if r.FourStar != 1 || r.TwoStar != 1 || r.Total() != 2 || r.Average() != 3.0 {
		t.Fatalf("rating buckets unexpected: %+v", r)
	}

	t.Run("duplicate email", func(t *testing.T) {
		if _, err := RateAndReviewProduct(ctx, db, in); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("err = %v; want ErrDuplicate", err)
		}
		var again domain.ProductRating
		db.First(&again, "product_id = ?", f.product.ID)
		if again.Total() != 2 {
			t.Fatalf("duplicate must not bump buckets: %+v", again)
		}
	})
	t.Run("unknown product", func(t *testing.T) {
		bad := in
		bad.ProductID = 999
		bad.Email = "c@example.com"
		if _, err := RateAndReviewProduct(ctx, db, bad); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v; want ErrNotFound", err)
		}
	})
	t.Run("rating out of range", func(t *testing.T) {
		bad := in
		bad.Rating = 6
		bad.Email = "d@example.com"
		if _, err := RateAndReviewProduct(ctx, db, bad); err == nil {
			t.Fatalf("expected error for rating 6")
		}
	})
	t.Run("listing keeps text reviews only", func(t *testing.T) {
		blank := "   "
		in3 := in
		in3.Email = "e@example.com"
		in3.Review = &blank
		if _, err := RateAndReviewProduct(ctx, db, in3); err != nil {
			t.Fatalf("blank review: %v", err)
		}
		later := "Still great"
		in4 := in
		in4.Email = "f@example.com"
		in4.Review = &later
		in4.Now = now.Add(time.Hour)
		if _, err := RateAndReviewProduct(ctx, db, in4); err != nil {
			t.Fatalf("later review: %v", err)
		}

		got, err := ListReviews(ctx, db, f.product.ID)
		if err != nil {
			t.Fatalf("ListReviews: %v", err)
		}
		if len(got) != 2 || *got[0].Review != "Still great" || *got[1].Review != "Great lamp" {
			t.Fatalf("unexpected reviews: %+v", got)
		}
	})
}

func TestTestimonials(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	f := seedVoucher(t, db, now, nil)

	first := &domain.Testimonial{BusinessID: f.business.ID, CustomerEmail: "a@example.com", Message: "Nice", Rating: 5, CreatedAt: now}
	if err := InsertTestimonial(ctx, db, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := &domain.Testimonial{BusinessID: f.business.ID, CustomerEmail: "a@example.com", Message: "Again", Rating: 4, CreatedAt: now}
	if err := InsertTestimonial(ctx, db, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v; want ErrDuplicate", err)
	}
	orphan := &domain.Testimonial{BusinessID: 999, CustomerEmail: "b@example.com", Message: "x", Rating: 3}
	if err := InsertTestimonial(ctx, db, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown business err = %v; want ErrNotFound", err)
	}
	second := &domain.Testimonial{BusinessID: f.business.ID, CustomerEmail: "c@example.com", Message: "Newer", Rating: 4, CreatedAt: now.Add(time.Hour)}
	if err := InsertTestimonial(ctx, db, second); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	list, err := ListTestimonials(ctx, db, f.business.ID)
	if err != nil || len(list) != 2 || list[0].Message != "Newer" {
		t.Fatalf("ListTestimonials = %+v, %v", list, err)
	}
	n, newest, err := TestimonialsStats(ctx, db, f.business.ID)
	if err != nil || n != 2 || newest == nil || !newest.Equal(now.Add(time.Hour)) {
		t.Fatalf("TestimonialsStats = %d, %v, %v", n, newest, err)
	}
}
