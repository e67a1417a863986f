// Package mail renders and delivers the voucher confirmation email and runs
// the dispatcher that drains the email job queue.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/voucherverse/storefront-api/internal/domain"
)

const claimedLayout = "January 2, 2006 at 3:04 PM"

const defaultDescription = "Enjoy your voucher!"

var voucherTmpl = template.Must(template.New("voucher").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Your voucher for {{.ProductName}}</title></head>
<body style="background:#f3f4f6;font-family:Arial,Helvetica,sans-serif;margin:0;padding:24px">
  <div style="background:#fff;border:1px solid #e5e7eb;border-radius:8px;max-width:576px;margin:40px auto;padding:32px">
    <h1 style="color:#1f2937;font-size:24px;text-align:center">Voucher Claimed!</h1>
    <p style="color:#4b5563;text-align:center">Thank you for claiming your voucher for:</p>
    <p style="color:#111827;font-size:20px;font-weight:600;text-align:center">{{.ProductName}}</p>
    {{- if .ImageURL}}
    <img src="{{.ImageURL}}" alt="{{.ProductName}}" width="100%" style="border-radius:6px;max-height:320px;object-fit:contain">
    {{- end}}
    <div style="background:#faf5ff;border:1px dashed #d8b4fe;border-radius:8px;margin:24px 0;padding:24px;text-align:center">
      <h2 style="color:#6b21a8;font-size:18px;margin-top:0">Your Voucher Details</h2>
      <p style="color:#7e22ce;margin:0">{{.Description}}</p>
      {{- if .Code}}
      <p style="color:#581c87;font-family:monospace;font-size:22px;letter-spacing:2px;margin:16px 0 0">{{.Code}}</p>
      {{- end}}
      {{- if .Discount}}
      <p style="color:#6b21a8;margin:8px 0 0">Save {{.Discount}}</p>
      {{- end}}
    </div>
    <hr style="border:none;border-top:1px solid #e5e7eb;margin:24px 0">
    <p style="color:#6b7280;font-size:14px"><strong>Date Claimed:</strong> {{.ClaimedAt}}</p>
    <p style="color:#6b7280;font-size:14px"><strong>Valid Until:</strong> {{.ValidUntil}}</p>
    <p style="color:#6b7280;font-size:14px">Please present this email or your voucher code upon purchase. Terms and conditions may apply.</p>
    <p style="color:#9ca3af;font-size:12px;text-align:center;margin-top:32px">{{if .BusinessName}}{{.BusinessName}} · {{end}}This is an automated email. Please do not reply.</p>
  </div>
</body>
</html>
`))

// VoucherEmail is the data a confirmation email is rendered from.
type VoucherEmail struct {
	BusinessName string
	ProductName  string
	ImageURL     string
	Description  string
	Code         string
	Discount     string
	ClaimedAt    time.Time
	ValidUntil   time.Time
}

// NewVoucherEmail collects the email data of a claim. The voucher's own
// description wins over the product's.
func NewVoucherEmail(c *domain.PromoClaim, p *domain.Product, b *domain.Business) VoucherEmail {
	e := VoucherEmail{
		ProductName: p.Name,
		Code:        c.Voucher.VoucherCode,
		ClaimedAt:   c.ClaimedAt,
		ValidUntil:  c.Voucher.WindowEnd(),
		Description: defaultDescription,
	}
	if b != nil {
		e.BusinessName = b.Name
	}
	if len(p.Images) > 0 {
		e.ImageURL = p.Images[0].URL
	}
	switch {
	case c.Voucher.Description != nil && *c.Voucher.Description != "":
		e.Description = *c.Voucher.Description
	case p.ShortDescription != nil && *p.ShortDescription != "":
		e.Description = *p.ShortDescription
	}
	if c.Voucher.DiscountAmount.Valid {
		e.Discount = c.Voucher.DiscountAmount.Decimal.StringFixed(2)
	}
	return e
}

// Subject returns the email subject line.
func (e VoucherEmail) Subject() string {
	return fmt.Sprintf("Your Voucher for %s is on its way!", e.ProductName)
}

// Render produces the HTML body with dates shown in the named IANA zone.
// Unknown or empty zones fall back to UTC.
func (e VoucherEmail) Render(timezone string) (string, error) {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	view := struct {
		VoucherEmail
		ClaimedAt  string
		ValidUntil string
	}{
		VoucherEmail: e,
		ClaimedAt:    e.ClaimedAt.In(loc).Format(claimedLayout),
		ValidUntil:   e.ValidUntil.In(loc).Format("January 2, 2006"),
	}
	var buf bytes.Buffer
	if err := voucherTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render voucher email: %w", err)
	}
	return buf.String(), nil
}
