package domain

import "time"

// Idempotency records the response produced for a POST request carrying an
// Idempotency-Key, keyed by (scope, key). Scope is the route plus the
// caller identity the key was issued under (client IP), so two visitors
// reusing the same key never see each other's response. A retry inside the
// TTL replays Status and Body without re-running side effects such as a
// voucher claim.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Scope     string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_scope_key,priority:2"`
	Status    int       `gorm:"not null"`
	Body      []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
