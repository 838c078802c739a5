package billing

import (
	"time"

	"wallet_tracker/internal/model"

	"github.com/shopspring/decimal"
)

// Walk builds the wallet's statement cycles in chronological order, starting
// with the cycle that contains the earliest transaction (or now) and ending
// with the cycle that contains now. A bill still owed at the last statement
// pulls the start back to the window that statement closed, so payments made
// against it have a cycle to land in. At most MaxCycles cycles are produced.
//
// Each cycle's exact amount is rounded to a whole unit and the remainder is
// carried into the next cycle, so the order of iteration matters. The wallet's
// initial balance is billed in the first cycle.
//
// Walk returns nil for wallets without a valid statement day.
func Walk(w *model.Wallet, txs []model.Transaction, now time.Time) []model.BillingCycle {
	day := billingDay(w)
	if day == 0 {
		return nil
	}
	loc := now.Location()
	dur := dueDuration(w)
	owned := forWallet(txs, w.ID)

	start := now
	for _, tx := range owned {
		if tx.TransactionDate.Before(start) {
			start = tx.TransactionDate
		}
	}
	if w.LastBillingDate != nil && w.LastBilledAmount != nil && w.LastBilledAmount.IsPositive() {
		if billed := PreviousBoundary(day, w.LastBillingDate.In(loc)); billed.Before(start) {
			start = billed
		}
	}

	cycleStart := CycleStartFor(day, start.In(loc))
	carry := decimal.Zero
	var cycles []model.BillingCycle

	for i := 0; i < MaxCycles && !cycleStart.After(now); i++ {
		cycleEnd := NextBoundary(day, cycleStart)

		var totals statementTotals
		for j := range owned {
			d := owned[j].TransactionDate
			if !d.Before(cycleStart) && d.Before(cycleEnd) {
				totals.add(&owned[j])
			}
		}

		exact := totals.net()
		if i == 0 {
			exact = exact.Add(w.Balance)
		}
		total := exact.Add(carry)
		billed := roundHalfUp(total)

		payments := matchPayments(w.Payments, cycleStart, cycleEnd)
		paid := sumPayments(payments)
		remaining := clampZero(billed.Sub(paid))
		due := cycleEnd.AddDate(0, 0, dur)
		current := !now.Before(cycleStart) && now.Before(cycleEnd)
		settled := remaining.IsZero()

		cycles = append(cycles, model.BillingCycle{
			BillingDate:      cycleStart,
			NextBillingDate:  cycleEnd,
			DueDate:          due,
			Expenses:         totals.expenses,
			Income:           totals.income,
			Transfers:        totals.transfers,
			TransactionCount: totals.count,
			ExactAmount:      exact,
			CarryIn:          carry,
			BilledAmount:     billed,
			Carryforward:     total.Sub(billed),
			Payments:         payments,
			PaidAmount:       paid,
			RemainingBalance: remaining,
			IsSettled:        settled,
			IsPastDue:        !settled && !current && startOfDay(now).After(due),
			IsCurrent:        current,
		})

		carry = total.Sub(billed)
		cycleStart = cycleEnd
	}

	return cycles
}

// History is Walk ordered most recent first.
func History(w *model.Wallet, txs []model.Transaction, now time.Time) []model.BillingCycle {
	cycles := Walk(w, txs, now)
	for i, j := 0, len(cycles)-1; i < j; i, j = i+1, j-1 {
		cycles[i], cycles[j] = cycles[j], cycles[i]
	}
	return cycles
}

// matchPayments picks the payments settling the cycle [start, end). A payment
// that names its cycle is matched on that date alone; the rest are matched
// by the day they were made.
func matchPayments(payments []model.Payment, start, end time.Time) []model.Payment {
	matched := []model.Payment{}
	for _, p := range payments {
		if p.BillingCycleDate != nil && !p.BillingCycleDate.IsZero() {
			if sameDay(start, *p.BillingCycleDate) {
				matched = append(matched, p)
			}
			continue
		}
		if !p.Date.Before(start) && p.Date.Before(end) {
			matched = append(matched, p)
		}
	}
	return matched
}
