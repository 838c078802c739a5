package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet_tracker/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepository defines operations for transaction data
type TransactionRepository interface {
	Create(ctx context.Context, transaction *model.Transaction) error
	FindByID(ctx context.Context, id int64) (*model.Transaction, error)
	FindByUser(ctx context.Context, userID int, filters model.UserTransactionFilters) ([]model.Transaction, error)
	Update(ctx context.Context, transaction *model.Transaction) error
	Delete(ctx context.Context, id int64) error
	UpdateReceiptPath(ctx context.Context, id int64, receiptPath string) error
	FindAll(ctx context.Context, filters model.AdminTransactionFilters) ([]model.Transaction, error)
	GetAggregatedStats(ctx context.Context, filters model.AdminTransactionFilters) (*model.AggregatedStats, error)
}

type transactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db DBTX) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, user_id, wallet_id, amount, type, category, tag, description, transaction_date,
            is_transfer, transfer_type, payment_id, receipt_path, created_at, updated_at`

func scanTransaction(row pgx.Row, t *model.Transaction) error {
	return row.Scan(
		&t.ID, &t.UserID, &t.WalletID, &t.Amount, &t.Type, &t.Category, &t.Tag, &t.Description,
		&t.TransactionDate, &t.IsTransfer, &t.TransferType, &t.PaymentID, &t.ReceiptPath,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

// insertTransaction is shared with the wallet repository, which writes
// payment legs inside its own transaction.
func insertTransaction(ctx context.Context, q rowQuerier, t *model.Transaction) error {
	sql := `INSERT INTO transactions (user_id, wallet_id, amount, type, category, tag, description, transaction_date,
                is_transfer, transfer_type, payment_id, receipt_path, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id, created_at, updated_at`
	err := q.QueryRow(ctx, sql,
		t.UserID, t.WalletID, t.Amount, t.Type, t.Category, t.Tag, t.Description, t.TransactionDate,
		t.IsTransfer, t.TransferType, t.PaymentID, t.ReceiptPath, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// Create inserts a new transaction into the database
func (r *transactionRepository) Create(ctx context.Context, t *model.Transaction) error {
	return insertTransaction(ctx, r.db, t)
}

// FindByID retrieves a transaction by its ID
func (r *transactionRepository) FindByID(ctx context.Context, id int64) (*model.Transaction, error) {
	t := &model.Transaction{}
	sql := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if err := scanTransaction(r.db.QueryRow(ctx, sql, id), t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find transaction by ID: %w", err)
	}
	return t, nil
}

// filterSet accumulates AND-ed conditions with positional arguments.
type filterSet struct {
	clauses []string
	args    []interface{}
}

// add appends expr, whose single %d verb receives the argument position.
func (f *filterSet) add(expr string, arg interface{}) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(expr, len(f.args)))
}

func (f *filterSet) addString(expr string, v *string) {
	if v != nil && *v != "" {
		f.add(expr, *v)
	}
}

func (f *filterSet) addTime(expr string, v *time.Time) {
	if v != nil {
		f.add(expr, *v)
	}
}

func (f *filterSet) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func collectTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	defer rows.Close()
	var transactions []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// FindByUser lists a user's transactions, newest first
func (r *transactionRepository) FindByUser(ctx context.Context, userID int, filters model.UserTransactionFilters) ([]model.Transaction, error) {
	var f filterSet
	f.add("user_id = $%d", userID)
	f.addString("type = $%d", filters.Type)
	f.addString("category = $%d", filters.Category)
	if filters.WalletID != nil {
		f.add("wallet_id = $%d", *filters.WalletID)
	}
	f.addTime("transaction_date >= $%d", filters.StartDate)
	f.addTime("transaction_date <= $%d", filters.EndDate)

	sql := `SELECT ` + transactionColumns + ` FROM transactions` + f.where() + ` ORDER BY transaction_date DESC, created_at DESC`
	rows, err := r.db.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by user: %w", err)
	}
	return collectTransactions(rows)
}

// Update modifies an existing transaction, including moving it to another wallet
func (r *transactionRepository) Update(ctx context.Context, t *model.Transaction) error {
	sql := `UPDATE transactions
            SET wallet_id = $1, amount = $2, type = $3, category = $4, tag = $5, description = $6, transaction_date = $7, updated_at = NOW()
            WHERE id = $8 AND user_id = $9 RETURNING updated_at` // ensure user_id matches for ownership
	err := r.db.QueryRow(ctx, sql, t.WalletID, t.Amount, t.Type, t.Category, t.Tag, t.Description, t.TransactionDate, t.ID, t.UserID).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("transaction not found or not owned by user for update")
		}
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// Delete removes a transaction from the database
func (r *transactionRepository) Delete(ctx context.Context, id int64) error {
	sql := `DELETE FROM transactions WHERE id = $1`
	cmdTag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found for deletion")
	}
	return nil
}

// UpdateReceiptPath updates the receipt path for a transaction
func (r *transactionRepository) UpdateReceiptPath(ctx context.Context, id int64, receiptPath string) error {
	sql := `UPDATE transactions SET receipt_path = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, sql, receiptPath, id).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("transaction not found for receipt path update")
		}
		return fmt.Errorf("failed to update receipt path: %w", err)
	}
	return nil
}

// adminConditions builds the WHERE clause shared by the admin queries.
func adminConditions(filters model.AdminTransactionFilters) (string, []interface{}) {
	f := filterSet{args: []interface{}{}}
	if filters.UserID != nil {
		f.add("t.user_id = $%d", *filters.UserID)
	}
	f.addString("t.type = $%d", filters.Type)
	f.addString("t.category = $%d", filters.Category)
	f.addTime("t.transaction_date >= $%d", filters.StartDate)
	f.addTime("t.transaction_date <= $%d", filters.EndDate)
	return f.where(), f.args
}

// withType narrows an admin WHERE clause to one transaction type.
func withType(where string, args []interface{}, txType string) (string, []interface{}) {
	narrowed := make([]interface{}, len(args), len(args)+1)
	copy(narrowed, args)
	narrowed = append(narrowed, txType)
	cond := fmt.Sprintf("t.type = $%d", len(narrowed))
	if where == "" {
		return " WHERE " + cond, narrowed
	}
	return where + " AND " + cond, narrowed
}

// FindAll retrieves all transactions with optional filters for admin
func (r *transactionRepository) FindAll(ctx context.Context, filters model.AdminTransactionFilters) ([]model.Transaction, error) {
	where, args := adminConditions(filters)
	sql := `SELECT t.id, t.user_id, t.wallet_id, t.amount, t.type, t.category, t.tag, t.description, t.transaction_date,
                t.is_transfer, t.transfer_type, t.payment_id, t.receipt_path, t.created_at, t.updated_at
            FROM transactions t` + where + ` ORDER BY t.transaction_date DESC, t.created_at DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query all transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *transactionRepository) sumByCategory(ctx context.Context, where string, args []interface{}, into map[string]decimal.Decimal) error {
	sql := `SELECT t.category, COALESCE(SUM(t.amount), 0) FROM transactions t` + where + ` GROUP BY t.category`
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var sum decimal.Decimal
		if err := rows.Scan(&category, &sum); err != nil {
			return err
		}
		into[category] = sum
	}
	return rows.Err()
}

// GetAggregatedStats calculates aggregated statistics for admin
func (r *transactionRepository) GetAggregatedStats(ctx context.Context, filters model.AdminTransactionFilters) (*model.AggregatedStats, error) {
	stats := &model.AggregatedStats{
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		ByCategoryIncome:  make(map[string]decimal.Decimal),
		ByCategoryExpense: make(map[string]decimal.Decimal),
		ByUserSpending:    make(map[int]model.UserStat),
	}
	const (
		from   = ` FROM transactions t JOIN users u ON t.user_id = u.id`
		income = `COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0)`
		spent  = `COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'expense'), 0)`
	)
	where, args := adminConditions(filters)

	// An aggregate without GROUP BY always yields one row.
	if err := r.db.QueryRow(ctx, `SELECT `+income+`, `+spent+from+where, args...).
		Scan(&stats.TotalIncome, &stats.TotalExpenses); err != nil {
		return nil, fmt.Errorf("failed to get total income/expenses: %w", err)
	}
	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpenses)

	byCategory := map[string]map[string]decimal.Decimal{
		model.TransactionTypeIncome:  stats.ByCategoryIncome,
		model.TransactionTypeExpense: stats.ByCategoryExpense,
	}
	for txType, into := range byCategory {
		typedWhere, typedArgs := where, args
		switch {
		case filters.Type == nil:
			typedWhere, typedArgs = withType(where, args, txType)
		case *filters.Type != txType:
			continue
		}
		if err := r.sumByCategory(ctx, typedWhere, typedArgs, into); err != nil {
			return nil, fmt.Errorf("failed to sum %s by category: %w", txType, err)
		}
	}

	userSpendingQuery := `SELECT t.user_id, u.phone, ` + spent + `, ` + income + `, COUNT(t.id)` +
		from + where + ` GROUP BY t.user_id, u.phone`

	rows, err := r.db.Query(ctx, userSpendingQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats by user: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var us model.UserStat
		if err := rows.Scan(&us.UserID, &us.UserPhone, &us.TotalSpent, &us.TotalIncome, &us.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan user stats: %w", err)
		}
		stats.ByUserSpending[us.UserID] = us
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user stats: %w", err)
	}

	return stats, nil
}
