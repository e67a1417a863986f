package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/repo"
)

// Publisher is the part of realtime.Broker the services need.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev realtime.Event) error
}

// NormalizeEmail trims and lower-cases an address before any uniqueness
// check.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether s is a bare address (no display name).
func ValidEmail(s string) bool {
	if s == "" || len(s) > 320 {
		return false
	}
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// isNotFound treats repo-level not found sentinels as "not found".
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// loggerFrom returns the request logger stored in ctx, or the global one.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// publish sends a best-effort notification. Failures are logged, never
// returned: the state change it announces is already committed.
func publish(ctx context.Context, p Publisher, topic, typ string, data any) {
	if p == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, data)
	if err == nil {
		err = p.Publish(ctx, topic, ev)
	}
	if err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("topic", topic).Str("event", typ).Msg("publish failed")
	}
}

// publishCatalog announces a catalog change on the business's topic and on
// the shared feed.
func publishCatalog(ctx context.Context, p Publisher, businessID uint, reason string) {
	data := realtime.CatalogData{BusinessID: businessID, Reason: reason}
	publish(ctx, p, realtime.CatalogTopic(businessID), realtime.TypeCatalogInvalidate, data)
	publish(ctx, p, realtime.CatalogFeedTopic, realtime.TypeCatalogInvalidate, data)
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
