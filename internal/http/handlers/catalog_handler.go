// Catalog and storefront read endpoints.
//
//   - GET /products      (ranked, paginated, weak ETag)
//   - GET /business      (the configured business singleton)
//   - GET /categories, /services
//   - GET /data          (business + products + services + testimonials)
//   - GET /content       (site copy)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/services"
	"github.com/voucherverse/storefront-api/internal/utils"
)

// ListProducts godoc
// @ID          listProducts
// @Summary     List products
// @Description Returns one page of the business's active products, ranked: priority vouchers, promo-type priority, discount, rating, newest. Supports a weak ETag via If-None-Match.
// @Tags        Catalog
// @Produce     json
//
// @Param       business_id    query   int     true  "Business ID"        minimum(1)
// @Param       category_id    query   int     false "Category filter"    minimum(1)
// @Param       search         query   string  false "Free-text search"
// @Param       page           query   int     false "Page number"        minimum(1) default(1)
// @Param       limit          query   int     false "Items per page"     minimum(1) maximum(100) default(12)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} services.ProductPage
// @Header      200  {string} ETag "Weak ETag for the current listing"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid business_id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	bid, okID := queryID(c, "business_id")
	if !okID {
		return
	}
	cat, okCat := optionalQueryID(c, "category_id")
	if !okCat {
		return
	}

	// ETag pre-check (best effort). The tag identifies the business's
	// listing; caches key it by URL, so query params need not be part of it.
	if fp, err := h.catalog.Fingerprint(ctx, bid); err == nil {
		etag := `W/"products-` + fp + `"`
		c.Header("ETag", etag)
		c.Header("Cache-Control", "no-cache")
		if matchesETag(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, err := h.catalog.ListProducts(ctx, services.ProductQuery{
		BusinessID: bid,
		CategoryID: cat,
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       utils.AtoiDefault(c.Query("page"), 1),
		Limit:      utils.AtoiDefault(c.Query("limit"), services.DefaultPageSize),
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// GetBusiness godoc
// @ID          getBusiness
// @Summary     Get the storefront business
// @Tags        Storefront
// @Produce     json
// @Success     200  {object} domain.Business
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /business [get]
func (h *Handlers) GetBusiness(c *gin.Context) {
	b, err := h.storefront.Business(c.Request.Context(), h.businessID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Tags        Storefront
// @Produce     json
// @Param       business_id  query  int  true  "Business ID"  minimum(1)
// @Success     200  {array}  domain.Category
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	bid, okID := queryID(c, "business_id")
	if !okID {
		return
	}
	cats, err := h.storefront.Categories(c.Request.Context(), bid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, cats)
}

// ListServices godoc
// @ID          listServices
// @Summary     List business services
// @Description Ordered by sort_order.
// @Tags        Storefront
// @Produce     json
// @Param       business_id  query  int  true  "Business ID"  minimum(1)
// @Success     200  {array}  domain.BusinessService
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /services [get]
func (h *Handlers) ListServices(c *gin.Context) {
	bid, okID := queryID(c, "business_id")
	if !okID {
		return
	}
	svcs, err := h.storefront.Services(c.Request.Context(), bid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, svcs)
}

// GetData godoc
// @ID          getData
// @Summary     Storefront aggregate
// @Description Business, ranked products, services and testimonials in one response.
// @Tags        Storefront
// @Produce     json
// @Param       business_id  query  int  true  "Business ID"  minimum(1)
// @Success     200  {object} services.Storefront
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /data [get]
func (h *Handlers) GetData(c *gin.Context) {
	bid, okID := queryID(c, "business_id")
	if !okID {
		return
	}
	snap, err := h.storefront.Snapshot(c.Request.Context(), bid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// GetContent godoc
// @ID          getContent
// @Summary     Site content
// @Description Hero, navigation, promo banner and modal copy, with the business name filled in.
// @Tags        Storefront
// @Produce     json
// @Success     200  {object} content.Site
// @Router      /content [get]
func (h *Handlers) GetContent(c *gin.Context) {
	var name string
	if b, err := h.storefront.Business(c.Request.Context(), h.businessID); err == nil {
		name = b.Name
	}
	ok(c, http.StatusOK, h.site.WithBusinessName(name))
}
