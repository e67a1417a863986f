package services

import (
	"context"
	"errors"
	"testing"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/realtime"
)

func claimOne(t *testing.T, svc *ClaimService, email string) string {
	t.Helper()
	v := voucherByCode(t, svc.DB, "TENT-40")
	ticket, err := svc.Claim(context.Background(), ClaimRequest{VoucherID: v.ID, BusinessID: bizID, Email: email})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return ticket.EmailID
}

func TestDelivery_LifecycleAndStickiness(t *testing.T) {
	db, now := seeded(t)
	pub := &recordingPublisher{}
	claims := &ClaimService{DB: db, Queue: noopQueue{}, Now: fixedClock(now)}
	svc := &DeliveryService{DB: db, Events: pub, Now: fixedClock(now)}
	ctx := context.Background()
	emailID := claimOne(t, claims, "ana@example.com")

	// dispatcher side
	c, p, b, err := svc.ForDispatch(ctx, emailID)
	if err != nil || c == nil || p.Name != "Trail Tent 2P" || b.ID != bizID {
		t.Fatalf("ForDispatch = %+v %+v %+v %v", c, p, b, err)
	}
	if c.Voucher.VoucherCode != "TENT-40" || len(p.Images) != 1 {
		t.Fatalf("dispatch data incomplete: %+v / %d images", c.Voucher, len(p.Images))
	}
	if err := svc.MarkSent(ctx, emailID, "re_msg_1"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	// webhook side, referencing the provider id
	res, err := svc.ApplyEvent(ctx, "email.delivered", "re_msg_1")
	if err != nil || !res.Changed || res.Status != domain.ClaimDelivered {
		t.Fatalf("delivered = %+v %v", res, err)
	}
	// late bounce must not leave a terminal status
	res, err = svc.ApplyEvent(ctx, "email.bounced", emailID)
	if err != nil || res.Changed || res.Status != domain.ClaimDelivered {
		t.Fatalf("late bounce = %+v %v", res, err)
	}
	// late "sent" neither
	res, _ = svc.ApplyEvent(ctx, "email.sent", emailID)
	if res.Changed {
		t.Fatalf("processing after delivered must be ignored")
	}

	evs := pub.on(realtime.ClaimTopic(emailID))
	if len(evs) != 2 || claimStatusOf(t, evs[0]) != "processing" || claimStatusOf(t, evs[1]) != "delivered" {
		t.Fatalf("claim events = %d", len(evs))
	}
	if n := len(pub.on(realtime.CatalogTopic(bizID))); n != 1 {
		t.Fatalf("delivered should publish one catalog event, got %d", n)
	}
}

func TestDelivery_IgnoredAndUnknown(t *testing.T) {
	db, now := seeded(t)
	svc := &DeliveryService{DB: db, Now: fixedClock(now)}
	ctx := context.Background()

	res, err := svc.ApplyEvent(ctx, "email.opened", "whatever")
	if err != nil || !res.Ignored {
		t.Fatalf("opened = %+v %v", res, err)
	}
	if _, err := svc.ApplyEvent(ctx, "email.delivered", "missing"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("unknown ref err = %v", err)
	}
	if err := svc.MarkSent(ctx, "missing", "x"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("MarkSent unknown err = %v", err)
	}
	c, p, b, err := svc.ForDispatch(ctx, "missing")
	if c != nil || p != nil || b != nil || err != nil {
		t.Fatalf("ForDispatch missing should be all nil")
	}
}

func TestDelivery_MarkFailedAndComplaint(t *testing.T) {
	db, now := seeded(t)
	claims := &ClaimService{DB: db, Queue: noopQueue{}, Now: fixedClock(now)}
	svc := &DeliveryService{DB: db, Now: fixedClock(now)}
	ctx := context.Background()

	a := claimOne(t, claims, "a@example.com")
	if err := svc.MarkFailed(ctx, a); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	c, _ := claims.Status(ctx, a)
	if c.Status != domain.ClaimFailed {
		t.Fatalf("status = %s", c.Status)
	}

	b := claimOne(t, claims, "b@example.com")
	res, err := svc.ApplyEvent(ctx, "email.complained", b)
	if err != nil || res.Status != domain.ClaimSpam || !res.Changed {
		t.Fatalf("complained = %+v %v", res, err)
	}
}

func TestDelivery_EventBeforeProviderIDIsStored(t *testing.T) {
	db, now := seeded(t)
	claims := &ClaimService{DB: db, Queue: noopQueue{}, Now: fixedClock(now)}
	svc := &DeliveryService{DB: db, Now: fixedClock(now)}
	ctx := context.Background()
	emailID := claimOne(t, claims, "early@example.com")

	// MarkSent has not run yet, so only our tagged id resolves
	res, err := svc.ApplyEvent(ctx, "email.delivered", emailID, "re_not_attached")
	if err != nil || res.Status != domain.ClaimDelivered || !res.Changed {
		t.Fatalf("delivered = %+v %v", res, err)
	}
	if err := svc.MarkSent(ctx, emailID, "re_not_attached"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if c, _ := claims.Status(ctx, emailID); c.Status != domain.ClaimDelivered {
		t.Fatalf("late MarkSent moved claim to %s", c.Status)
	}

	// unknown tag falls back to the provider id
	other := claimOne(t, claims, "later@example.com")
	if err := svc.MarkSent(ctx, other, "re_other"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	res, err = svc.ApplyEvent(ctx, "email.bounced", "", "no-such-claim", "re_other")
	if err != nil || res.Status != domain.ClaimBounced {
		t.Fatalf("bounced = %+v %v", res, err)
	}
	if _, err := svc.ApplyEvent(ctx, "email.delivered"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("no refs err = %v", err)
	}
}
