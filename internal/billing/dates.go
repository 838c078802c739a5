// Package billing turns a credit wallet's transactions into statement cycles,
// bills and due dates. Everything here is pure: callers pass "now" in and
// persist whatever comes out.
package billing

import (
	"time"

	"wallet_tracker/internal/model"
)

// MaxCycles bounds the history walk and catch-up advancement.
const MaxCycles = 24

// ValidBillingDay reports whether day can be used as a statement day.
func ValidBillingDay(day int) bool {
	return day >= 1 && day <= 31
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CycleBoundary returns the statement date for billingDay in the given month.
// Days past the end of the month are clamped to its last day, so day 31 in
// April resolves to April 30. Month may be out of range; it is normalised the
// way time.Date does it.
func CycleBoundary(year int, month time.Month, billingDay int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, loc).Day()
	day := billingDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// NextBoundary returns the statement date one calendar month after t.
func NextBoundary(billingDay int, t time.Time) time.Time {
	return CycleBoundary(t.Year(), t.Month()+1, billingDay, t.Location())
}

// PreviousBoundary returns the statement date one calendar month before t.
func PreviousBoundary(billingDay int, t time.Time) time.Time {
	return CycleBoundary(t.Year(), t.Month()-1, billingDay, t.Location())
}

// CycleStartFor returns the start of the cycle window containing t.
func CycleStartFor(billingDay int, t time.Time) time.Time {
	boundary := CycleBoundary(t.Year(), t.Month(), billingDay, t.Location())
	if t.Before(boundary) {
		return PreviousBoundary(billingDay, boundary)
	}
	return boundary
}

// ResolveCycleDates finds the last statement date, the next one and the due
// dates of both bills. When lastBillingDate is unknown it is derived from now:
// this month's statement date if it has been reached, else last month's.
// It returns nil for a billing day outside 1..31.
func ResolveCycleDates(billingDay int, lastBillingDate *time.Time, dueDateDuration int, now time.Time) *model.CycleDates {
	if !ValidBillingDay(billingDay) {
		return nil
	}
	if dueDateDuration < 0 {
		dueDateDuration = 0
	}

	var last time.Time
	if lastBillingDate != nil && !lastBillingDate.IsZero() {
		last = startOfDay(lastBillingDate.In(now.Location()))
	} else {
		last = CycleStartFor(billingDay, startOfDay(now))
	}
	next := NextBoundary(billingDay, last)

	return &model.CycleDates{
		LastBillingDate:    last,
		NextBillingDate:    next,
		CurrentBillDueDate: last.AddDate(0, 0, dueDateDuration),
		NextBillDueDate:    next.AddDate(0, 0, dueDateDuration),
	}
}

// IsBetweenBillingAndDue reports whether today falls inside
// [LastBillingDate, CurrentBillDueDate], both ends inclusive.
func IsBetweenBillingAndDue(now time.Time, dates *model.CycleDates) bool {
	if dates == nil {
		return false
	}
	today := startOfDay(now)
	return !today.Before(dates.LastBillingDate) && !today.After(dates.CurrentBillDueDate)
}

// DaysUntil counts calendar days from now to due. Negative means overdue.
func DaysUntil(due, now time.Time) int {
	d := due.In(now.Location())
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func dueDuration(w *model.Wallet) int {
	if w.DueDateDuration == nil || *w.DueDateDuration < 0 {
		return 0
	}
	return *w.DueDateDuration
}

// billingDay returns the wallet's statement day, or 0 when it has none.
func billingDay(w *model.Wallet) int {
	if w == nil || !w.IsCredit() || w.BillingDate == nil || !ValidBillingDay(*w.BillingDate) {
		return 0
	}
	return *w.BillingDate
}
