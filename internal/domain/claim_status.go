package domain

import "strings"

// ClaimStatus is the delivery lifecycle of a claim's confirmation email:
//
//	pending -> processing -> delivered | bounced | spam | failed
type ClaimStatus string

const (
	ClaimPending    ClaimStatus = "pending"
	ClaimProcessing ClaimStatus = "processing"
	ClaimDelivered  ClaimStatus = "delivered"
	ClaimBounced    ClaimStatus = "bounced"
	ClaimSpam       ClaimStatus = "spam"
	ClaimFailed     ClaimStatus = "failed"
)

// IsTerminal reports whether no further transition may leave s.
func (s ClaimStatus) IsTerminal() bool {
	switch s {
	case ClaimDelivered, ClaimBounced, ClaimSpam, ClaimFailed:
		return true
	}
	return false
}

// IsFailure reports whether s is a terminal failure.
func (s ClaimStatus) IsFailure() bool { return s.IsTerminal() && s != ClaimDelivered }

// Valid reports whether s is a known status.
func (s ClaimStatus) Valid() bool {
	return s == ClaimPending || s == ClaimProcessing || s.IsTerminal()
}

// CanTransition reports whether a claim in status s may move to next.
// Terminal statuses are sticky and processing never regresses to pending.
func (s ClaimStatus) CanTransition(next ClaimStatus) bool {
	if !next.Valid() || s.IsTerminal() || s == next {
		return false
	}
	if next == ClaimPending {
		return false
	}
	return true
}

// StatusFromEvent maps a provider webhook event type ("email.<status>") to a
// claim status. The second result is false for events that do not affect
// the claim (opened, clicked, ...).
func StatusFromEvent(eventType string) (ClaimStatus, bool) {
	name, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(eventType)), "email.")
	if !ok {
		return "", false
	}
	switch name {
	case "sent", "delivery_delayed", "processing":
		return ClaimProcessing, true
	case "delivered":
		return ClaimDelivered, true
	case "bounced":
		return ClaimBounced, true
	case "complained", "spam":
		return ClaimSpam, true
	case "failed":
		return ClaimFailed, true
	}
	return "", false
}
