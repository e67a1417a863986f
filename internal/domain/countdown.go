package domain

import "time"

// Countdown is the remaining time until a voucher window closes, split into
// the units shown by the countdown timer.
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// CountdownTo computes the countdown from now to end. The end instant is
// extended with EndOfDay first, so a date-only end counts down to midnight.
func CountdownTo(end, now time.Time) Countdown {
	d := EndOfDay(end).Sub(now)
	if d < 0 {
		return Countdown{Expired: true}
	}
	secs := int(d / time.Second)
	return Countdown{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
	}
}
