package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/services"
)

func TestSubmitReview_OK(t *testing.T) {
	var got services.ReviewRequest
	h := New(Deps{Reviews: stubReviews{
		submit: func(req services.ReviewRequest) (*domain.ProductReview, error) {
			got = req
			return &domain.ProductReview{ID: 1, ProductID: req.ProductID, Rating: req.Rating}, nil
		},
	}})

	w := do(newRouter(h), http.MethodPost, "/review",
		`{"p_business_id":1,"p_product_id":"7","p_rating":4.0,"p_email":"ana@example.com","p_review":"Light and roomy."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got.ProductID != 7 || got.Rating != 4 || got.Review == nil || *got.Review != "Light and roomy." {
		t.Fatalf("unexpected request: %+v", got)
	}
	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != "Thank you for your review!" || resp.Status != "success" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	h := New(Deps{Reviews: stubReviews{
		submit: func(services.ReviewRequest) (*domain.ProductReview, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}})
	r := newRouter(h)

	cases := []struct {
		name string
		body string
		code string
		msg  string
	}{
		{"missing", `{"p_business_id":1}`, ErrCodeMissingParams, "Missing required parameters: p_product_id, p_rating, p_email."},
		{"fraction", `{"p_business_id":1,"p_product_id":7,"p_rating":4.5,"p_email":"a@b.co"}`, ErrCodeInvalidRating, MsgInvalidRating},
		{"zero", `{"p_business_id":1,"p_product_id":7,"p_rating":0,"p_email":"a@b.co"}`, ErrCodeInvalidRating, MsgInvalidRating},
		{"six", `{"p_business_id":1,"p_product_id":7,"p_rating":6,"p_email":"a@b.co"}`, ErrCodeInvalidRating, MsgInvalidRating},
		{"text", `{"p_business_id":1,"p_product_id":7,"p_rating":"good","p_email":"a@b.co"}`, ErrCodeBadRequest, "Invalid request format."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/review", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			er := decodeErr(t, w)
			if er.Code != tc.code || er.Message != tc.msg {
				t.Fatalf("got %+v", er)
			}
		})
	}
}

func TestSubmitReview_Duplicate(t *testing.T) {
	h := New(Deps{Reviews: stubReviews{
		submit: func(services.ReviewRequest) (*domain.ProductReview, error) {
			return nil, services.ErrDuplicateReview
		},
	}})
	w := do(newRouter(h), http.MethodPost, "/review",
		`{"p_business_id":1,"p_product_id":7,"p_rating":5,"p_email":"ana@example.com"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
	er := decodeErr(t, w)
	if er.Code != ErrCodeDuplicateReview || er.Message != "You have already reviewed this product." {
		t.Fatalf("got %+v", er)
	}
}

func TestListReviews(t *testing.T) {
	text := "nice"
	h := New(Deps{Reviews: stubReviews{
		list: func(pid uint) ([]domain.ProductReview, error) {
			return []domain.ProductReview{{ID: 1, ProductID: pid, Rating: 5, Review: &text, CreatedAt: time.Now()}}, nil
		},
	}})
	r := newRouter(h)

	w := do(r, http.MethodGet, "/reviews?product_id=7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var list []map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0]["review"] != "nice" {
		t.Fatalf("unexpected: %s", w.Body.String())
	}
	if _, leaked := list[0]["email"]; leaked {
		t.Fatalf("reviewer email must not be exposed")
	}

	if w := do(r, http.MethodGet, "/reviews", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing product_id: status=%d", w.Code)
	}
}

func TestSubmitTestimonial(t *testing.T) {
	var got services.TestimonialRequest
	h := New(Deps{Testimonials: stubTestimonials{
		submit: func(req services.TestimonialRequest) (*domain.Testimonial, error) {
			got = req
			if req.Email == "dana@example.com" {
				return nil, services.ErrDuplicateTestimonial
			}
			return &domain.Testimonial{ID: 2}, nil
		},
	}})
	r := newRouter(h)

	w := do(r, http.MethodPost, "/testimonial",
		`{"p_business_id":"1","p_customer_email":"ana@example.com","p_message":"Great!","p_rating":5,"p_customer_name":"ana maría"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got.BusinessID != 1 || got.Name == nil || *got.Name != "ana maría" || got.Rating != 5 {
		t.Fatalf("unexpected request: %+v", got)
	}
	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != "Testimonial inserted successfully" || resp.Status != "success" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	w = do(r, http.MethodPost, "/testimonial",
		`{"p_business_id":1,"p_customer_email":"dana@example.com","p_message":"Again","p_rating":4}`)
	if w.Code != http.StatusConflict || decodeErr(t, w).Code != ErrCodeDuplicateTestimonial {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/testimonial", `{"p_business_id":1,"p_customer_email":"x@y.co","p_message":" ","p_rating":4}`)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Message != "Missing required parameters: p_message." {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListTestimonials(t *testing.T) {
	h := New(Deps{Testimonials: stubTestimonials{
		list: func(bid uint) ([]domain.Testimonial, error) {
			if bid != 1 {
				return []domain.Testimonial{}, nil
			}
			return []domain.Testimonial{{ID: 1, BusinessID: 1, Message: "Great", Rating: 5}}, nil
		},
	}})
	w := do(newRouter(h), http.MethodGet, "/testimonials?business_id=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var list []domain.Testimonial
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Message != "Great" {
		t.Fatalf("unexpected: %s", w.Body.String())
	}
}

func TestParseRating(t *testing.T) {
	cases := map[string]int{"1": 1, "5": 5, "3.0": 3, "0": 0, "5.5": 0, "-1": 0, "1e0": 1}
	for in, want := range cases {
		n := json.Number(in)
		got, ok := parseRating(&n)
		if (want == 0) == ok || got != want {
			t.Errorf("parseRating(%s)=%d,%v want %d", in, got, ok, want)
		}
	}
}
