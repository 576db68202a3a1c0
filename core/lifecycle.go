package core

import (
	"fmt"
	"strings"
	"time"
)

// Visit lifecycle rules. Everything in this file is pure: derived values are
// computed from the arguments alone so the store and the display layer share
// one implementation.

const passDayLayout = "20060102"

// ComposeName joins first and last name with a single space, collapsing any
// redundant whitespace inside either part.
func ComposeName(first, last string) string {
	parts := append(strings.Fields(first), strings.Fields(last)...)
	return strings.Join(parts, " ")
}

// NextPassNumber formats the pass issued after countIssuedToday passes on the
// given day: VMS-YYYYMMDD-NNNN, sequence starting at 0001 each day. Counting
// is the caller's job; the count and the insert must share one transaction or
// two concurrent check-ins could mint the same pass.
func NextPassNumber(day time.Time, countIssuedToday int64) string {
	return fmt.Sprintf("VMS-%s-%04d", day.Format(passDayLayout), countIssuedToday+1)
}

// ComputeDuration returns the whole minutes between check-in and check-out,
// truncating seconds. A check-out before check-in is ErrInvalidRange.
func ComputeDuration(checkIn, checkOut time.Time) (int64, error) {
	if checkOut.Before(checkIn) {
		return 0, ErrInvalidRange
	}
	minutes := int64(checkOut.Sub(checkIn).Seconds()) / 60
	if minutes < 0 {
		minutes = 0
	}
	return minutes, nil
}

// FormatDuration renders a stored duration for display. nil means the visit
// is still open.
func FormatDuration(minutes *int64) string {
	if minutes == nil {
		return "Active"
	}
	m := *minutes
	if m >= 60 {
		return fmt.Sprintf("%dh %dm", m/60, m%60)
	}
	return fmt.Sprintf("%dm", m)
}

// SameCalendarDay reports whether two instants fall on the same calendar day
// in the local time of a.
func SameCalendarDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
