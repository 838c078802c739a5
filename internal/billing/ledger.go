package billing

import (
	"strings"
	"time"

	"wallet_tracker/internal/model"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// roundHalfUp rounds to a whole currency unit, ties towards positive infinity.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// IsBillPayment reports whether tx records money paid towards a card bill.
func IsBillPayment(tx *model.Transaction) bool {
	if tx.PaymentID != nil && *tx.PaymentID != "" {
		return true
	}
	if tx.Tag != nil && strings.EqualFold(*tx.Tag, model.BillPaymentTag) {
		return true
	}
	return strings.EqualFold(tx.Category, model.BillPaymentCategory)
}

// statementTotals holds the per-cycle sums that make up a bill.
type statementTotals struct {
	expenses  decimal.Decimal
	income    decimal.Decimal
	transfers decimal.Decimal
	count     int
}

// add applies the statement rules:
//   - expenses: non-transfer expenses plus interest charges
//   - income: non-transfer income that is not a bill payment (those are
//     tracked as payments)
//   - transfers: transfer records reduce the bill, source_debit legs raise it
func (s *statementTotals) add(tx *model.Transaction) {
	s.count++
	switch {
	case tx.Type == model.TransactionTypeExpense && (!tx.IsTransfer || tx.HasTransferType(model.TransferTypeInterest)):
		s.expenses = s.expenses.Add(tx.Amount)
	case tx.Type == model.TransactionTypeIncome && !tx.IsTransfer && !IsBillPayment(tx):
		s.income = s.income.Add(tx.Amount)
	}

	if tx.Type == model.TransactionTypeTransfer {
		s.transfers = s.transfers.Add(tx.Amount)
	} else if tx.HasTransferType(model.TransferTypeSourceDebit) {
		s.transfers = s.transfers.Sub(tx.Amount)
	}
}

// net is the cycle's own exact amount before any carry-forward.
func (s *statementTotals) net() decimal.Decimal {
	return clampZero(s.expenses.Sub(s.income.Add(s.transfers)))
}

// lifetimeTotals sums every inflow and outflow of a wallet. Bill payments and
// transfer legs count: this is the running balance, not a statement.
// A "transfer" record is money moved into the wallet.
func lifetimeTotals(txs []model.Transaction) (income, expenses decimal.Decimal) {
	income, expenses = decimal.Zero, decimal.Zero
	for i := range txs {
		switch txs[i].Type {
		case model.TransactionTypeExpense:
			expenses = expenses.Add(txs[i].Amount)
		case model.TransactionTypeIncome, model.TransactionTypeTransfer:
			income = income.Add(txs[i].Amount)
		}
	}
	return income, expenses
}

// forWallet keeps the transactions owned by walletID.
func forWallet(txs []model.Transaction, walletID int64) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out
}

// before keeps the transactions dated strictly before t.
func before(txs []model.Transaction, t time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.TransactionDate.Before(t) {
			out = append(out, tx)
		}
	}
	return out
}

func sumPayments(payments []model.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
