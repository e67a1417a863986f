// Package client is the typed consumer of the storefront API: an HTTP client
// for every route, a request-deduplicating revalidating cache, a product
// pager, websocket watchers for claim status and catalog changes, and the
// application Store a front-end renders from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/services"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	defaultTimeout       = 15 * time.Second
	maxErrorBody         = 64 << 10
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// ErrNotModified is returned by conditional reads answered with 304.
var ErrNotModified = errors.New("not modified")

// Client calls the storefront API rooted at BaseURL (including the API base
// path, e.g. "http://localhost:8080/api").
type Client struct {
	base *url.URL
	http *http.Client
	ua   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.ua = ua }
}

// New parses baseURL and returns a client.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: defaultTimeout}, ua: "voucherverse-client"}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// endpoint joins the base URL and an escaped path, with optional query.
func (c *Client) endpoint(path string, q url.Values) string {
	return joinURL(c.base, path, q)
}

func joinURL(base *url.URL, escapedPath string, q url.Values) string {
	u := *base
	u.RawPath = base.EscapedPath() + escapedPath
	if p, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = p
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, body, out any) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return resp.Header, ErrNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, decodeAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.Header, nil
}

func decodeAPIError(resp *http.Response) error {
	var env struct {
		RequestID string `json:"request_id"`
		Code      string `json:"code"`
		Message   string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ae := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
	if json.Unmarshal(raw, &env) == nil {
		ae.Code, ae.Message = env.Code, env.Message
		if env.RequestID != "" {
			ae.RequestID = env.RequestID
		}
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(resp.StatusCode)
	}
	return ae
}

func idQuery(name string, id uint) url.Values {
	return url.Values{name: {strconv.FormatUint(uint64(id), 10)}}
}

// Business returns the storefront business.
func (c *Client) Business(ctx context.Context) (*domain.Business, error) {
	var b domain.Business
	if _, err := c.do(ctx, http.MethodGet, "/business", nil, nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ProductQuery selects a listing page.
type ProductQuery struct {
	BusinessID uint
	CategoryID *uint
	Search     string
	Page       int
	Limit      int
}

func (q ProductQuery) values() url.Values {
	v := idQuery("business_id", q.BusinessID)
	if q.CategoryID != nil {
		v.Set("category_id", strconv.FormatUint(uint64(*q.CategoryID), 10))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// key identifies the query in caches.
func (q ProductQuery) key() string { return "products?" + q.values().Encode() }

// Products returns one listing page.
func (c *Client) Products(ctx context.Context, q ProductQuery) (*services.ProductPage, error) {
	page, _, err := c.ProductsIfChanged(ctx, q, "")
	return page, err
}

// ProductsIfChanged sends etag as If-None-Match. It returns ErrNotModified
// when the listing is unchanged, otherwise the page and its new ETag.
func (c *Client) ProductsIfChanged(ctx context.Context, q ProductQuery, etag string) (*services.ProductPage, string, error) {
	var hdr http.Header
	if etag != "" {
		hdr = http.Header{"If-None-Match": {etag}}
	}
	var page services.ProductPage
	h, err := c.do(ctx, http.MethodGet, "/products", q.values(), hdr, nil, &page)
	if err != nil {
		return nil, etag, err
	}
	return &page, h.Get("ETag"), nil
}

// Categories lists the business's categories.
func (c *Client) Categories(ctx context.Context, businessID uint) ([]domain.Category, error) {
	var out []domain.Category
	_, err := c.do(ctx, http.MethodGet, "/categories", idQuery("business_id", businessID), nil, nil, &out)
	return out, err
}

// Services lists the business's service offerings.
func (c *Client) Services(ctx context.Context, businessID uint) ([]domain.BusinessService, error) {
	var out []domain.BusinessService
	_, err := c.do(ctx, http.MethodGet, "/services", idQuery("business_id", businessID), nil, nil, &out)
	return out, err
}

// Testimonials lists testimonials, newest first.
func (c *Client) Testimonials(ctx context.Context, businessID uint) ([]domain.Testimonial, error) {
	var out []domain.Testimonial
	_, err := c.do(ctx, http.MethodGet, "/testimonials", idQuery("business_id", businessID), nil, nil, &out)
	return out, err
}

// Reviews lists a product's written reviews, newest first.
func (c *Client) Reviews(ctx context.Context, productID uint) ([]domain.ProductReview, error) {
	var out []domain.ProductReview
	_, err := c.do(ctx, http.MethodGet, "/reviews", idQuery("product_id", productID), nil, nil, &out)
	return out, err
}

// ClaimRequest is the body of POST /claim-voucher. An empty IdempotencyKey
// gets a fresh one, so transport retries of the same request are safe.
type ClaimRequest struct {
	VoucherID      uint   `json:"voucher_id"`
	UserEmail      string `json:"user_email"`
	BusinessID     uint   `json:"business_id"`
	Timezone       string `json:"timezone,omitempty"`
	IdempotencyKey string `json:"-"`
}

// ClaimResponse is the accepted-claim answer.
type ClaimResponse struct {
	Message string             `json:"message"`
	Status  domain.ClaimStatus `json:"status"`
	EmailID string             `json:"emailId"`
}

// ClaimVoucher submits a claim.
func (c *Client) ClaimVoucher(ctx context.Context, req ClaimRequest) (*ClaimResponse, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	var out ClaimResponse
	hdr := http.Header{headerIdempotencyKey: {key}}
	if _, err := c.do(ctx, http.MethodPost, "/claim-voucher", nil, hdr, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimStatus is the stored delivery status of one claim.
type ClaimStatus struct {
	EmailID   string             `json:"email_id"`
	Status    domain.ClaimStatus `json:"status"`
	VoucherID uint               `json:"voucher_id"`
}

// Claim reads a claim's delivery status.
func (c *Client) Claim(ctx context.Context, emailID string) (*ClaimStatus, error) {
	var out ClaimStatus
	if _, err := c.do(ctx, http.MethodGet, "/claims/"+url.PathEscape(emailID), nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Review is the body of POST /review.
type Review struct {
	BusinessID uint   `json:"p_business_id"`
	ProductID  uint   `json:"p_product_id"`
	Rating     int    `json:"p_rating"`
	Email      string `json:"p_email"`
	Text       string `json:"p_review,omitempty"`
}

// Testimonial is the body of POST /testimonial.
type Testimonial struct {
	BusinessID    uint   `json:"p_business_id"`
	CustomerEmail string `json:"p_customer_email"`
	Message       string `json:"p_message"`
	Rating        int    `json:"p_rating"`
	CustomerName  string `json:"p_customer_name,omitempty"`
}

// Result is the {message, status} acknowledgement of submissions.
type Result struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// SubmitReview posts a product review.
func (c *Client) SubmitReview(ctx context.Context, r Review) (*Result, error) {
	var out Result
	if _, err := c.do(ctx, http.MethodPost, "/review", nil, nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTestimonial posts a testimonial.
func (c *Client) SubmitTestimonial(ctx context.Context, t Testimonial) (*Result, error) {
	var out Result
	if _, err := c.do(ctx, http.MethodPost, "/testimonial", nil, nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
