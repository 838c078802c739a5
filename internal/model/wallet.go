package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WalletTypeCash   = "cash"
	WalletTypeCredit = "credit"
)

// Wallet is a cash account or a credit card.
//
// For credit wallets Balance is the debt carried when the wallet was created.
// It is a fixed reference point: payments never change it, they are recorded
// in Payments and through bill-payment transactions instead.
type Wallet struct {
	ID               int64            `json:"id"`
	UserID           int              `json:"user_id"`
	Name             string           `json:"name"`
	Type             string           `json:"type"`
	Balance          decimal.Decimal  `json:"balance"`
	CreditLimit      *decimal.Decimal `json:"credit_limit,omitempty"`
	BillingDate      *int             `json:"billing_date,omitempty"`      // Day of month, 1-31
	DueDateDuration  *int             `json:"due_date_duration,omitempty"` // Days after the statement
	LastBillingDate  *time.Time       `json:"last_billing_date,omitempty"`
	LastBilledAmount *decimal.Decimal `json:"last_billed_amount,omitempty"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	Payments         []Payment        `json:"payments"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (w *Wallet) IsCredit() bool {
	return w.Type == WalletTypeCredit
}

// Payment settles (part of) a credit card bill.
type Payment struct {
	ID               string          `json:"id"`
	WalletID         int64           `json:"wallet_id"`
	Amount           decimal.Decimal `json:"amount"`
	Date             time.Time       `json:"date"`
	BillingCycleDate *time.Time      `json:"billing_cycle_date,omitempty"` // Start of the cycle this payment settles
	SourceWalletID   *int64          `json:"source_wallet_id,omitempty"`
	Description      string          `json:"description"`
}

// CycleDates are the statement boundaries around "today" for a credit wallet.
type CycleDates struct {
	LastBillingDate    time.Time `json:"last_billing_date"`
	NextBillingDate    time.Time `json:"next_billing_date"`
	CurrentBillDueDate time.Time `json:"current_bill_due_date"`
	NextBillDueDate    time.Time `json:"next_bill_due_date"`
}

// BillingCycle is derived from transactions and never persisted.
type BillingCycle struct {
	BillingDate      time.Time       `json:"billing_date"`
	NextBillingDate  time.Time       `json:"next_billing_date"`
	DueDate          time.Time       `json:"due_date"`
	Expenses         decimal.Decimal `json:"expenses"`
	Income           decimal.Decimal `json:"income"`
	Transfers        decimal.Decimal `json:"transfers"`
	TransactionCount int             `json:"transaction_count"`
	ExactAmount      decimal.Decimal `json:"exact_amount"` // Before the previous cycle's carry-forward
	CarryIn          decimal.Decimal `json:"carry_in"`
	BilledAmount     decimal.Decimal `json:"billed_amount"`
	Carryforward     decimal.Decimal `json:"carryforward"`
	Payments         []Payment       `json:"payments"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	IsSettled        bool            `json:"is_settled"`
	IsPastDue        bool            `json:"is_past_due"`
	IsCurrent        bool            `json:"is_current"`
}

// WalletSummary is the display snapshot of a wallet.
type WalletSummary struct {
	WalletID          int64            `json:"wallet_id"`
	Type              string           `json:"type"`
	InitialBalance    decimal.Decimal  `json:"initial_balance"`
	TotalIncome       decimal.Decimal  `json:"total_income"`
	TotalExpenses     decimal.Decimal  `json:"total_expenses"`
	CalculatedBalance decimal.Decimal  `json:"calculated_balance"`
	CreditLimit       *decimal.Decimal `json:"credit_limit,omitempty"`
	CreditUsed        decimal.Decimal  `json:"credit_used"`
	AvailableCredit   decimal.Decimal  `json:"available_credit"`
	Utilization       decimal.Decimal  `json:"utilization"` // Percent of the limit in use
	TotalPayments     decimal.Decimal  `json:"total_payments"`
	LastBilledAmount  decimal.Decimal  `json:"last_billed_amount"`
	UnpaidBillAmount  decimal.Decimal  `json:"unpaid_bill_amount"`
	UnbilledAmount    decimal.Decimal  `json:"unbilled_amount"`
	HasBillingCycle   bool             `json:"has_billing_cycle"`
	LastBillingDate   *time.Time       `json:"last_billing_date,omitempty"`
	NextBillingDate   *time.Time       `json:"next_billing_date,omitempty"`
	DueDate           *time.Time       `json:"due_date,omitempty"`
	DaysUntilDue      *int             `json:"days_until_due,omitempty"`
}

// CycleAdvance is the wallet update produced when statement dates are crossed.
type CycleAdvance struct {
	LastBillingDate  time.Time       `json:"last_billing_date"`
	LastBilledAmount decimal.Decimal `json:"last_billed_amount"`
	DueDate          time.Time       `json:"due_date"`
	Payments         []Payment       `json:"payments"`
	CyclesAdvanced   int             `json:"cycles_advanced"`
}

type CreateWalletRequest struct {
	Name            string           `json:"name" binding:"required"`
	Type            string           `json:"type" binding:"required,oneof=cash credit"`
	Balance         decimal.Decimal  `json:"balance"`
	CreditLimit     *decimal.Decimal `json:"credit_limit"`
	BillingDate     *int             `json:"billing_date" binding:"omitempty,min=1,max=31"`
	DueDateDuration *int             `json:"due_date_duration" binding:"omitempty,min=0"`
	// Only consulted when today lies between the last statement and its due date.
	LastBillPaid     *bool            `json:"last_bill_paid"`
	LastBilledAmount *decimal.Decimal `json:"last_billed_amount"`
}

type UpdateWalletRequest struct {
	Name            *string          `json:"name,omitempty"`
	CreditLimit     *decimal.Decimal `json:"credit_limit,omitempty"`
	BillingDate     *int             `json:"billing_date,omitempty" binding:"omitempty,min=1,max=31"`
	DueDateDuration *int             `json:"due_date_duration,omitempty" binding:"omitempty,min=0"`
}

type EditInitialDebtRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

type ApplyPaymentRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	SourceWalletID   *int64          `json:"source_wallet_id"`
	Date             time.Time       `json:"date"`
	BillingCycleDate *time.Time      `json:"billing_cycle_date"`
	Description      string          `json:"description"`
}
