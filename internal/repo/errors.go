package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so callers can match either.
var ErrNotFound = gorm.ErrRecordNotFound

var (
	// ErrDuplicate reports a unique-constraint violation: a second claim,
	// review or testimonial for the same email, or a reused idempotency key.
	ErrDuplicate = errors.New("duplicate")
	// ErrCapacity reports that a voucher has no claims left.
	ErrCapacity = errors.New("voucher capacity exhausted")
	// ErrWindow reports a voucher that is not a promo or is outside its
	// claim window.
	ErrWindow = errors.New("voucher not claimable now")
)

// IsDuplicate reports whether err is a unique violation from any supported
// driver. glebarez/sqlite surfaces them as plain text; Postgres as SQLSTATE
// 23505.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
