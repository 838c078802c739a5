package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeIncome   = "income"
	TransactionTypeExpense  = "expense"
	TransactionTypeTransfer = "transfer"
)

// Transfer legs. A wallet-to-wallet move is stored as a source_debit on the
// paying wallet and a destination_credit on the receiving one.
const (
	TransferTypeSourceDebit       = "source_debit"
	TransferTypeDestinationCredit = "destination_credit"
	TransferTypeInterest          = "interest"
)

const (
	BillPaymentTag      = "bill-payment"
	BillPaymentCategory = "Bill Payment"
)

// Transaction represents a dated money movement owned by exactly one wallet
type Transaction struct {
	ID              int64           `json:"id"`
	UserID          int             `json:"user_id"`
	WalletID        int64           `json:"wallet_id"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"` // "income", "expense" or "transfer"
	Category        string          `json:"category"`
	Tag             *string         `json:"tag,omitempty"`
	Description     *string         `json:"description,omitempty"` // Pointer for optional field
	TransactionDate time.Time       `json:"transaction_date"`
	IsTransfer      bool            `json:"is_transfer"`
	TransferType    *string         `json:"transfer_type,omitempty"`
	PaymentID       *string         `json:"payment_id,omitempty"`
	ReceiptPath     *string         `json:"receipt_path,omitempty"` // Pointer for optional field
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasTransferType reports whether the transaction is tagged with the given transfer leg.
func (t *Transaction) HasTransferType(kind string) bool {
	return t.TransferType != nil && *t.TransferType == kind
}

// CreateTransactionRequest is used for creating a new transaction
type CreateTransactionRequest struct {
	WalletID        int64           `json:"wallet_id" binding:"required,gt=0"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type" binding:"required,oneof=income expense transfer"`
	Category        string          `json:"category" binding:"required"`
	Tag             *string         `json:"tag"`
	Description     *string         `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	IsTransfer      bool            `json:"is_transfer"`
	TransferType    *string         `json:"transfer_type" binding:"omitempty,oneof=source_debit destination_credit interest"`
}

type UpdateTransactionRequest struct {
	WalletID        *int64           `json:"wallet_id,omitempty" binding:"omitempty,gt=0"` // Reassigns ownership
	Amount          *decimal.Decimal `json:"amount,omitempty"`                             // Pointers to allow partial updates
	Type            *string          `json:"type,omitempty" binding:"omitempty,oneof=income expense transfer"`
	Category        *string          `json:"category,omitempty"`
	Tag             *string          `json:"tag,omitempty"`
	Description     *string          `json:"description,omitempty"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
}

// AdminTransactionFilters contains filter parameters for admin transaction queries
type AdminTransactionFilters struct {
	UserID    *int
	StartDate *time.Time
	EndDate   *time.Time
	Category  *string
	Type      *string
}

// UserTransactionFilters contains filter parameters for user transaction queries
type UserTransactionFilters struct {
	Type      *string
	Category  *string
	WalletID  *int64
	StartDate *time.Time // For filtering by date (start of day)
	EndDate   *time.Time // For filtering by date (end of day)
}

// AggregatedStats represents the statistics for admin
type AggregatedStats struct {
	TotalIncome       decimal.Decimal            `json:"total_income"`
	TotalExpenses     decimal.Decimal            `json:"total_expenses"`
	Balance           decimal.Decimal            `json:"balance"`
	ByCategoryIncome  map[string]decimal.Decimal `json:"by_category_income"`
	ByCategoryExpense map[string]decimal.Decimal `json:"by_category_expense"`
	ByUserSpending    map[int]UserStat           `json:"by_user_spending"` // UserID -> Stats
}

type UserStat struct {
	UserID           int             `json:"user_id"`
	UserPhone        string          `json:"user_phone"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TransactionCount int64           `json:"transaction_count"`
}
