package repository

import (
	"context"
	"errors"
	"fmt"

	"wallet_tracker/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines operations for wallet and payment data
type WalletRepository interface {
	Create(ctx context.Context, wallet *model.Wallet) error
	FindByID(ctx context.Context, id int64) (*model.Wallet, error)
	FindByUser(ctx context.Context, userID int) ([]model.Wallet, error)
	Update(ctx context.Context, wallet *model.Wallet) error
	Delete(ctx context.Context, id int64) error
	ListPayments(ctx context.Context, walletID int64, includeArchived bool) ([]model.Payment, error)
	RecordPayment(ctx context.Context, payment *model.Payment, legs []*model.Transaction) error
	SaveCycleAdvance(ctx context.Context, walletID int64, advance *model.CycleAdvance) error
}

type walletRepository struct {
	db DBTX
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(db DBTX) WalletRepository {
	return &walletRepository{db: db}
}

const walletColumns = `id, user_id, name, type, balance, credit_limit, billing_date, due_date_duration,
            last_billing_date, last_billed_amount, due_date, created_at, updated_at`

const paymentColumns = `id, wallet_id, amount, paid_at, billing_cycle_date, source_wallet_id, description`

func scanWallet(row pgx.Row, w *model.Wallet) error {
	var creditLimit, lastBilled decimal.NullDecimal
	err := row.Scan(
		&w.ID, &w.UserID, &w.Name, &w.Type, &w.Balance, &creditLimit, &w.BillingDate, &w.DueDateDuration,
		&w.LastBillingDate, &lastBilled, &w.DueDate, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return err
	}
	w.CreditLimit = decimalPtr(creditLimit)
	w.LastBilledAmount = decimalPtr(lastBilled)
	return nil
}

func scanPayments(rows pgx.Rows) ([]model.Payment, error) {
	defer rows.Close()
	payments := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.WalletID, &p.Amount, &p.Date, &p.BillingCycleDate, &p.SourceWalletID, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}

// Create inserts a new wallet
func (r *walletRepository) Create(ctx context.Context, w *model.Wallet) error {
	sql := `INSERT INTO wallets (user_id, name, type, balance, credit_limit, billing_date, due_date_duration,
                last_billing_date, last_billed_amount, due_date)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql,
		w.UserID, w.Name, w.Type, w.Balance, nullDecimal(w.CreditLimit), w.BillingDate, w.DueDateDuration,
		w.LastBillingDate, nullDecimal(w.LastBilledAmount), w.DueDate,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	if w.Payments == nil {
		w.Payments = []model.Payment{}
	}
	return nil
}

// FindByID retrieves a wallet with its outstanding payments
func (r *walletRepository) FindByID(ctx context.Context, id int64) (*model.Wallet, error) {
	w := &model.Wallet{}
	sql := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	if err := scanWallet(r.db.QueryRow(ctx, sql, id), w); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find wallet by ID: %w", err)
	}
	payments, err := r.ListPayments(ctx, id, false)
	if err != nil {
		return nil, err
	}
	w.Payments = payments
	return w, nil
}

// FindByUser retrieves every wallet of a user, payments included
func (r *walletRepository) FindByUser(ctx context.Context, userID int) ([]model.Wallet, error) {
	sql := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets by user: %w", err)
	}
	defer rows.Close()

	wallets := []model.Wallet{}
	ids := []int64{}
	for rows.Next() {
		var w model.Wallet
		if err := scanWallet(rows, &w); err != nil {
			return nil, fmt.Errorf("failed to scan wallet row: %w", err)
		}
		w.Payments = []model.Payment{}
		wallets = append(wallets, w)
		ids = append(ids, w.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}
	rows.Close()
	if len(wallets) == 0 {
		return wallets, nil
	}

	paymentRows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM wallet_payments WHERE wallet_id = ANY($1) AND NOT archived ORDER BY paid_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet payments: %w", err)
	}
	payments, err := scanPayments(paymentRows)
	if err != nil {
		return nil, err
	}
	byWallet := make(map[int64]int, len(wallets))
	for i := range wallets {
		byWallet[wallets[i].ID] = i
	}
	for _, p := range payments {
		if i, ok := byWallet[p.WalletID]; ok {
			wallets[i].Payments = append(wallets[i].Payments, p)
		}
	}
	return wallets, nil
}

// Update persists every mutable wallet column
func (r *walletRepository) Update(ctx context.Context, w *model.Wallet) error {
	sql := `UPDATE wallets
            SET name = $1, balance = $2, credit_limit = $3, billing_date = $4, due_date_duration = $5,
                last_billing_date = $6, last_billed_amount = $7, due_date = $8, updated_at = NOW()
            WHERE id = $9 AND user_id = $10 RETURNING updated_at`
	err := r.db.QueryRow(ctx, sql,
		w.Name, w.Balance, nullDecimal(w.CreditLimit), w.BillingDate, w.DueDateDuration,
		w.LastBillingDate, nullDecimal(w.LastBilledAmount), w.DueDate, w.ID, w.UserID,
	).Scan(&w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("wallet not found or not owned by user for update")
		}
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

// Delete removes a wallet; its transactions and payments cascade
func (r *walletRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found for deletion")
	}
	return nil
}

// ListPayments returns a wallet's payments oldest first. Archived payments
// were consumed by an earlier statement.
func (r *walletRepository) ListPayments(ctx context.Context, walletID int64, includeArchived bool) ([]model.Payment, error) {
	sql := `SELECT ` + paymentColumns + ` FROM wallet_payments WHERE wallet_id = $1`
	if !includeArchived {
		sql += ` AND NOT archived`
	}
	sql += ` ORDER BY paid_at`
	rows, err := r.db.Query(ctx, sql, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet payments: %w", err)
	}
	return scanPayments(rows)
}

// RecordPayment stores a payment together with its bill-payment transactions
// in one database transaction.
func (r *walletRepository) RecordPayment(ctx context.Context, p *model.Payment, legs []*model.Transaction) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO wallet_payments (id, wallet_id, amount, paid_at, billing_cycle_date, source_wallet_id, description)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.WalletID, p.Amount, p.Date, p.BillingCycleDate, p.SourceWalletID, p.Description)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		for _, leg := range legs {
			if err := insertTransaction(ctx, tx, leg); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveCycleAdvance stores the new statement and archives the payments it
// consumed: those made before the new statement date. Payments recorded after
// the advance was computed are never archived by it.
func (r *walletRepository) SaveCycleAdvance(ctx context.Context, walletID int64, adv *model.CycleAdvance) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE wallets SET last_billing_date = $1, last_billed_amount = $2, due_date = $3, updated_at = NOW() WHERE id = $4`,
			adv.LastBillingDate, adv.LastBilledAmount, adv.DueDate, walletID)
		if err != nil {
			return fmt.Errorf("failed to save billing state: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("wallet not found for billing update")
		}
		_, err = tx.Exec(ctx,
			`UPDATE wallet_payments SET archived = TRUE WHERE wallet_id = $1 AND NOT archived AND paid_at < $2`,
			walletID, adv.LastBillingDate)
		if err != nil {
			return fmt.Errorf("failed to archive consumed payments: %w", err)
		}
		return nil
	})
}
