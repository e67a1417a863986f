package domain

import "time"

// WindowEnd returns the last instant at which the voucher is claimable. An
// end date stored at midnight denotes the whole calendar day, so the window
// then closes at 23:59:59.999999999 of that day.
func (v Voucher) WindowEnd() time.Time {
	return EndOfDay(v.EndDate)
}

// ActiveAt reports whether the voucher is a promo whose inclusive window
// contains now.
func (v Voucher) ActiveAt(now time.Time) bool {
	if !v.IsPromo {
		return false
	}
	return !now.Before(v.StartDate) && !now.After(v.WindowEnd())
}

// ExpiredAt reports whether the window closed before now.
func (v Voucher) ExpiredAt(now time.Time) bool {
	return now.After(v.WindowEnd())
}

// Remaining returns the number of claims still available, or nil when the
// voucher has no capacity limit.
func (v Voucher) Remaining() *int {
	if v.MaxClaims == nil {
		return nil
	}
	r := *v.MaxClaims - v.ClaimedCount
	if r < 0 {
		r = 0
	}
	return &r
}

// EndOfDay extends a midnight timestamp to the last nanosecond of its day.
// Timestamps carrying a time of day are returned unchanged.
func EndOfDay(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
