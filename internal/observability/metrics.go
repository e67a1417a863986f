package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. HTTP traffic is covered by the metrics middleware.
var (
	// ClaimsTotal counts claim attempts by outcome (accepted,
	// already_claimed, fully_claimed, not_active, not_found, error).
	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_claims_total",
			Help: "Voucher claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// EmailDispatchTotal counts dispatcher results (sent, retried, dead,
	// skipped).
	EmailDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_email_dispatch_total",
			Help: "Voucher email dispatch attempts by result.",
		},
		[]string{"result"},
	)

	// WebhookEventsTotal counts accepted provider events by mapped status;
	// "ignored" covers event types that do not affect a claim.
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_webhook_events_total",
			Help: "Email provider webhook events by resulting claim status.",
		},
		[]string{"status"},
	)

	// ListingCacheTotal counts product listing cache lookups (hit, miss) and
	// loads discarded because the business was invalidated meanwhile.
	ListingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_listing_cache_total",
			Help: "Product listing cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ClaimsTotal, EmailDispatchTotal, WebhookEventsTotal, ListingCacheTotal)
}
