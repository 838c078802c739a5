package billing

import (
	"time"

	"wallet_tracker/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize projects a wallet and its transactions into the display snapshot.
//
// Cash wallets get a running balance. Credit wallets get lifetime credit
// used, the unpaid part of the last statement, spending not yet billed and
// the due date that currently matters: the open statement's while it is
// unpaid, else the upcoming one's. Derived amounts never go below zero.
func Summarize(w *model.Wallet, txs []model.Transaction, now time.Time) model.WalletSummary {
	income, expenses := lifetimeTotals(forWallet(txs, w.ID))

	s := model.WalletSummary{
		WalletID:       w.ID,
		Type:           w.Type,
		InitialBalance: w.Balance,
		TotalIncome:    income,
		TotalExpenses:  expenses,
		CreditUsed:     decimal.Zero,
		Utilization:    decimal.Zero,
	}

	if !w.IsCredit() {
		s.CalculatedBalance = w.Balance.Add(income).Sub(expenses)
		s.AvailableCredit = decimal.Zero
		s.TotalPayments = decimal.Zero
		s.LastBilledAmount = decimal.Zero
		s.UnpaidBillAmount = decimal.Zero
		s.UnbilledAmount = decimal.Zero
		return s
	}

	creditUsed := clampZero(w.Balance.Add(expenses).Sub(income))
	s.CreditUsed = creditUsed
	// For a card the running balance is what is owed.
	s.CalculatedBalance = creditUsed
	s.AvailableCredit = decimal.Zero
	if w.CreditLimit != nil {
		s.CreditLimit = w.CreditLimit
		s.AvailableCredit = clampZero(w.CreditLimit.Sub(creditUsed))
		if w.CreditLimit.IsPositive() {
			s.Utilization = creditUsed.Div(*w.CreditLimit).Mul(hundred).Round(2)
		}
	}

	s.TotalPayments = sumPayments(w.Payments)
	s.LastBilledAmount = decimal.Zero
	if w.LastBilledAmount != nil {
		s.LastBilledAmount = *w.LastBilledAmount
	}
	s.UnpaidBillAmount = clampZero(s.LastBilledAmount.Sub(s.TotalPayments))
	s.UnbilledAmount = clampZero(creditUsed.Sub(s.UnpaidBillAmount))

	day := billingDay(w)
	if day == 0 {
		return s
	}
	dates := ResolveCycleDates(day, w.LastBillingDate, dueDuration(w), now)
	if dates == nil {
		return s
	}

	due := dates.NextBillDueDate
	if s.UnpaidBillAmount.IsPositive() {
		due = dates.CurrentBillDueDate
	}
	days := DaysUntil(due, now)

	s.HasBillingCycle = true
	s.LastBillingDate = &dates.LastBillingDate
	s.NextBillingDate = &dates.NextBillingDate
	s.DueDate = &due
	s.DaysUntilDue = &days
	return s
}
