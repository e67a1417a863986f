package services

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/text/language"
)

func TestTestimonial_SubmitAndList(t *testing.T) {
	db, now := seeded(t)
	svc := &TestimonialService{DB: db, Now: fixedClock(now)}
	ctx := context.Background()

	got, err := svc.Submit(ctx, TestimonialRequest{
		BusinessID: bizID, Email: " New@Example.com", Name: strp("  maría   del carmen "), Message: " Great shop ", Rating: 5,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.CustomerName == nil || *got.CustomerName != "María Del Carmen" {
		t.Fatalf("name = %v", got.CustomerName)
	}
	if got.Message != "Great shop" || got.CustomerEmail != "new@example.com" {
		t.Fatalf("testimonial = %+v", got)
	}

	list, err := svc.List(ctx, bizID)
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %d items (%v)", len(list), err)
	}
	if list[0].ID != got.ID {
		t.Fatalf("newest first: head = %d", list[0].ID)
	}

	blank, err := svc.Submit(ctx, TestimonialRequest{BusinessID: bizID, Email: "x@example.com", Name: strp("   "), Message: "ok", Rating: 4})
	if err != nil || blank.CustomerName != nil {
		t.Fatalf("blank name should be nil: %+v %v", blank, err)
	}
}

func TestTestimonial_Errors(t *testing.T) {
	db, now := seeded(t)
	svc := &TestimonialService{DB: db, Now: fixedClock(now), NameLocale: language.Dutch}
	ctx := context.Background()

	tests := []struct {
		name string
		req  TestimonialRequest
		want error
	}{
		{"duplicate seeded email", TestimonialRequest{BusinessID: bizID, Email: "DANA@example.com", Message: "again", Rating: 5}, ErrDuplicateTestimonial},
		{"unknown business", TestimonialRequest{BusinessID: 42, Email: "q@example.com", Message: "hi", Rating: 5}, ErrBusinessNotFound},
		{"empty message", TestimonialRequest{BusinessID: bizID, Email: "q@example.com", Message: "  ", Rating: 5}, ErrEmptyMessage},
		{"rating", TestimonialRequest{BusinessID: bizID, Email: "q@example.com", Message: "hi", Rating: 0}, ErrInvalidRating},
		{"email", TestimonialRequest{BusinessID: bizID, Email: "q", Message: "hi", Rating: 3}, ErrInvalidEmail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v want %v", err, tc.want)
			}
		})
	}
}
