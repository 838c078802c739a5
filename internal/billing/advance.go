package billing

import (
	"time"

	"wallet_tracker/internal/model"
)

// Advance moves a credit wallet past every statement date that has been
// reached by now. Each crossed statement bills the amount that was unbilled
// at that date; payments made before it are consumed and later ones are kept
// for the new bill. At most MaxCycles statements are crossed in one call.
//
// It returns nil when no statement date has been reached, so calling it again
// on the same day is a no-op.
func Advance(w *model.Wallet, txs []model.Transaction, now time.Time) *model.CycleAdvance {
	day := billingDay(w)
	if day == 0 {
		return nil
	}
	dur := dueDuration(w)
	dates := ResolveCycleDates(day, w.LastBillingDate, dur, now)
	if dates == nil {
		return nil
	}
	today := startOfDay(now)
	if today.Before(dates.NextBillingDate) {
		return nil
	}

	owned := forWallet(txs, w.ID)
	state := *w
	state.Payments = append([]model.Payment(nil), w.Payments...)

	boundary := dates.NextBillingDate
	steps := 0
	for steps < MaxCycles && !today.Before(boundary) {
		var settled, open []model.Payment
		for _, p := range state.Payments {
			if p.Date.Before(boundary) {
				settled = append(settled, p)
			} else {
				open = append(open, p)
			}
		}
		state.Payments = settled

		billed := Summarize(&state, before(owned, boundary), boundary).UnbilledAmount

		crossed := boundary
		state.LastBillingDate = &crossed
		state.LastBilledAmount = &billed
		state.Payments = open

		steps++
		boundary = NextBoundary(day, boundary)
	}

	payments := state.Payments
	if payments == nil {
		payments = []model.Payment{}
	}
	return &model.CycleAdvance{
		LastBillingDate:  *state.LastBillingDate,
		LastBilledAmount: *state.LastBilledAmount,
		DueDate:          state.LastBillingDate.AddDate(0, 0, dur),
		Payments:         payments,
		CyclesAdvanced:   steps,
	}
}
