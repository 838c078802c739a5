package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet_tracker/internal/billing"
	"wallet_tracker/internal/logger"
	"wallet_tracker/internal/model"
	"wallet_tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrNotCreditWallet   = errors.New("operation requires a credit wallet")
	ErrInvalidBillingDay = errors.New("billing date must be between 1 and 31")
	ErrInvalidWallet     = errors.New("credit limit, initial debt and due date duration cannot be negative")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrSameWallet        = errors.New("a wallet cannot pay its own bill")
	ErrMissingBillAmount = errors.New("last billed amount is required when the last bill is unpaid")
)

// WalletService owns every change to a wallet's billing state
type WalletService interface {
	CreateWallet(ctx context.Context, userID int, req model.CreateWalletRequest) (*model.Wallet, error)
	GetWallet(ctx context.Context, walletID int64, userID int) (*model.Wallet, error)
	ListWallets(ctx context.Context, userID int) ([]model.Wallet, error)
	UpdateWallet(ctx context.Context, walletID int64, userID int, req model.UpdateWalletRequest) (*model.Wallet, error)
	DeleteWallet(ctx context.Context, walletID int64, userID int) error
	EditInitialDebt(ctx context.Context, walletID int64, userID int, balance decimal.Decimal) (*model.Wallet, error)
	ApplyPayment(ctx context.Context, walletID int64, userID int, req model.ApplyPaymentRequest) (*model.Payment, error)
	AdvanceCycle(ctx context.Context, walletID int64, userID int) (*model.Wallet, *model.CycleAdvance, error)
	SyncBillingCycles(ctx context.Context, userID int) error
	GetSummary(ctx context.Context, walletID int64, userID int) (*model.WalletSummary, error)
	GetBillingHistory(ctx context.Context, walletID int64, userID int) ([]model.BillingCycle, error)
	GetCycleDates(ctx context.Context, walletID int64, userID int) (*model.CycleDates, error)
}

type walletService struct {
	wallets repository.WalletRepository
	txs     repository.TransactionRepository
	now     func() time.Time
}

// NewWalletService creates a WalletService. Statement dates and "today" are
// evaluated in loc.
func NewWalletService(wallets repository.WalletRepository, txs repository.TransactionRepository, loc *time.Location) WalletService {
	if loc == nil {
		loc = time.UTC
	}
	return &walletService{
		wallets: wallets,
		txs:     txs,
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

func validateCreditFields(limit *decimal.Decimal, billingDate, dueDateDuration *int) error {
	if billingDate != nil && !billing.ValidBillingDay(*billingDate) {
		return ErrInvalidBillingDay
	}
	if dueDateDuration != nil && *dueDateDuration < 0 {
		return ErrInvalidWallet
	}
	if limit != nil && limit.IsNegative() {
		return ErrInvalidWallet
	}
	return nil
}

func (s *walletService) CreateWallet(ctx context.Context, userID int, req model.CreateWalletRequest) (*model.Wallet, error) {
	wallet := &model.Wallet{
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Balance:  req.Balance,
		Payments: []model.Payment{},
	}

	if wallet.IsCredit() {
		if err := validateCreditFields(req.CreditLimit, req.BillingDate, req.DueDateDuration); err != nil {
			return nil, err
		}
		if req.Balance.IsNegative() {
			return nil, ErrInvalidWallet
		}
		wallet.CreditLimit = req.CreditLimit
		wallet.BillingDate = req.BillingDate
		wallet.DueDateDuration = req.DueDateDuration

		if req.BillingDate != nil {
			if err := s.seedStatement(wallet, req); err != nil {
				return nil, err
			}
		}
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to create wallet in repo: %w", err)
	}
	logger.FromContext(ctx).Info().Int64("wallet_id", wallet.ID).Str("type", wallet.Type).Msg("wallet created")
	return wallet, nil
}

// seedStatement sets the first statement of a new card. A still unpaid last
// bill is only asked about while today lies between that statement and its
// due date; outside that window the card starts with nothing billed.
func (s *walletService) seedStatement(w *model.Wallet, req model.CreateWalletRequest) error {
	now := s.now()
	dates := billing.ResolveCycleDates(*w.BillingDate, nil, intOrZero(w.DueDateDuration), now)
	if dates == nil {
		return ErrInvalidBillingDay
	}
	lastBilling := dates.LastBillingDate
	due := dates.CurrentBillDueDate
	billed := decimal.Zero

	if req.LastBillPaid != nil && !*req.LastBillPaid && billing.IsBetweenBillingAndDue(now, dates) {
		if req.LastBilledAmount == nil || !req.LastBilledAmount.IsPositive() {
			return ErrMissingBillAmount
		}
		billed = *req.LastBilledAmount
	}

	w.LastBillingDate = &lastBilling
	w.DueDate = &due
	w.LastBilledAmount = &billed
	return nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// ownedWallet loads a wallet and checks it belongs to userID.
func (s *walletService) ownedWallet(ctx context.Context, walletID int64, userID int) (*model.Wallet, error) {
	wallet, err := s.wallets.FindByID(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet by ID: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	if wallet.UserID != userID {
		return nil, ErrForbidden
	}
	return wallet, nil
}

func (s *walletService) walletTransactions(ctx context.Context, w *model.Wallet) ([]model.Transaction, error) {
	txs, err := s.txs.FindByUser(ctx, w.UserID, model.UserTransactionFilters{WalletID: &w.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet transactions: %w", err)
	}
	return txs, nil
}

func (s *walletService) GetWallet(ctx context.Context, walletID int64, userID int) (*model.Wallet, error) {
	return s.ownedWallet(ctx, walletID, userID)
}

func (s *walletService) ListWallets(ctx context.Context, userID int) ([]model.Wallet, error) {
	wallets, err := s.wallets.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets from repo: %w", err)
	}
	return wallets, nil
}

func (s *walletService) UpdateWallet(ctx context.Context, walletID int64, userID int, req model.UpdateWalletRequest) (*model.Wallet, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	creditChange := req.CreditLimit != nil || req.BillingDate != nil || req.DueDateDuration != nil
	if creditChange && !wallet.IsCredit() {
		return nil, ErrNotCreditWallet
	}
	if err := validateCreditFields(req.CreditLimit, req.BillingDate, req.DueDateDuration); err != nil {
		return nil, err
	}

	if req.Name != nil {
		wallet.Name = strings.TrimSpace(*req.Name)
	}
	if req.CreditLimit != nil {
		wallet.CreditLimit = req.CreditLimit
	}
	if req.DueDateDuration != nil {
		wallet.DueDateDuration = req.DueDateDuration
	}

	dayChanged := req.BillingDate != nil && (wallet.BillingDate == nil || *wallet.BillingDate != *req.BillingDate)
	if dayChanged {
		wallet.BillingDate = req.BillingDate
		// The last statement moves to the new day; what was billed stays.
		dates := billing.ResolveCycleDates(*wallet.BillingDate, nil, intOrZero(wallet.DueDateDuration), s.now())
		wallet.LastBillingDate = &dates.LastBillingDate
		if wallet.LastBilledAmount == nil {
			zero := decimal.Zero
			wallet.LastBilledAmount = &zero
		}
	}
	if wallet.LastBillingDate != nil && (dayChanged || req.DueDateDuration != nil) {
		due := wallet.LastBillingDate.AddDate(0, 0, intOrZero(wallet.DueDateDuration))
		wallet.DueDate = &due
	}

	if err := s.wallets.Update(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to update wallet in repo: %w", err)
	}
	return wallet, nil
}

func (s *walletService) DeleteWallet(ctx context.Context, walletID int64, userID int) error {
	if _, err := s.ownedWallet(ctx, walletID, userID); err != nil {
		return err
	}
	if err := s.wallets.Delete(ctx, walletID); err != nil {
		return fmt.Errorf("failed to delete wallet in repo: %w", err)
	}
	logger.FromContext(ctx).Info().Int64("wallet_id", walletID).Msg("wallet deleted")
	return nil
}

// EditInitialDebt is the only operation that changes Balance.
func (s *walletService) EditInitialDebt(ctx context.Context, walletID int64, userID int, balance decimal.Decimal) (*model.Wallet, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	if wallet.IsCredit() && balance.IsNegative() {
		return nil, ErrInvalidWallet
	}
	wallet.Balance = balance
	if err := s.wallets.Update(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to update initial balance in repo: %w", err)
	}
	return wallet, nil
}

// ApplyPayment records a bill payment on a credit wallet. The payment gets an
// income leg on the card and, when paid from another wallet, a source_debit
// leg there; all three rows are written together.
func (s *walletService) ApplyPayment(ctx context.Context, walletID int64, userID int, req model.ApplyPaymentRequest) (*model.Payment, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsCredit() {
		return nil, ErrNotCreditWallet
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.SourceWalletID != nil {
		if *req.SourceWalletID == walletID {
			return nil, ErrSameWallet
		}
		if _, err := s.ownedWallet(ctx, *req.SourceWalletID, userID); err != nil {
			return nil, fmt.Errorf("source wallet: %w", err)
		}
	}

	now := s.now()
	loc := now.Location()
	paidAt := req.Date
	if paidAt.IsZero() {
		paidAt = now
	}

	payment := &model.Payment{
		ID:             uuid.NewString(),
		WalletID:       walletID,
		Amount:         req.Amount,
		Date:           paidAt,
		SourceWalletID: req.SourceWalletID,
		Description:    strings.TrimSpace(req.Description),
	}
	switch {
	case req.BillingCycleDate != nil:
		// The client names a calendar day; cycles start at midnight in loc.
		d := *req.BillingCycleDate
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		payment.BillingCycleDate = &start
	case wallet.BillingDate != nil && wallet.LastBillingDate != nil:
		// The bill being paid covers the window that ended at the last statement.
		start := billing.PreviousBoundary(*wallet.BillingDate, wallet.LastBillingDate.In(loc))
		payment.BillingCycleDate = &start
	}

	legs := paymentLegs(userID, payment)
	if err := s.wallets.RecordPayment(ctx, payment, legs); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	logger.FromContext(ctx).Info().
		Int64("wallet_id", walletID).
		Str("payment_id", payment.ID).
		Str("amount", payment.Amount.StringFixed(2)).
		Msg("bill payment recorded")
	return payment, nil
}

func paymentLegs(userID int, p *model.Payment) []*model.Transaction {
	now := time.Now()
	tag := model.BillPaymentTag
	var desc *string
	if p.Description != "" {
		desc = &p.Description
	}
	credit := &model.Transaction{
		UserID:          userID,
		WalletID:        p.WalletID,
		Amount:          p.Amount,
		Type:            model.TransactionTypeIncome,
		Category:        model.BillPaymentCategory,
		Tag:             &tag,
		Description:     desc,
		TransactionDate: p.Date,
		PaymentID:       &p.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.SourceWalletID == nil {
		return []*model.Transaction{credit}
	}

	destination, source := model.TransferTypeDestinationCredit, model.TransferTypeSourceDebit
	credit.IsTransfer = true
	credit.TransferType = &destination
	debit := &model.Transaction{
		UserID:          userID,
		WalletID:        *p.SourceWalletID,
		Amount:          p.Amount,
		Type:            model.TransactionTypeExpense,
		Category:        model.BillPaymentCategory,
		Tag:             &tag,
		Description:     desc,
		TransactionDate: p.Date,
		IsTransfer:      true,
		TransferType:    &source,
		PaymentID:       &p.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return []*model.Transaction{credit, debit}
}

// advance crosses every statement date reached by now and persists the
// result. It returns nil when nothing was due.
func (s *walletService) advance(ctx context.Context, w *model.Wallet) (*model.CycleAdvance, error) {
	if !w.IsCredit() || w.BillingDate == nil {
		return nil, nil
	}
	txs, err := s.walletTransactions(ctx, w)
	if err != nil {
		return nil, err
	}
	adv := billing.Advance(w, txs, s.now())
	if adv == nil {
		return nil, nil
	}
	if err := s.wallets.SaveCycleAdvance(ctx, w.ID, adv); err != nil {
		return nil, fmt.Errorf("failed to save cycle advance: %w", err)
	}

	w.LastBillingDate = &adv.LastBillingDate
	w.LastBilledAmount = &adv.LastBilledAmount
	w.DueDate = &adv.DueDate
	w.Payments = adv.Payments

	logger.FromContext(ctx).Info().
		Int64("wallet_id", w.ID).
		Int("cycles", adv.CyclesAdvanced).
		Time("last_billing_date", adv.LastBillingDate).
		Str("billed", adv.LastBilledAmount.StringFixed(2)).
		Msg("billing cycle advanced")
	return adv, nil
}

func (s *walletService) AdvanceCycle(ctx context.Context, walletID int64, userID int) (*model.Wallet, *model.CycleAdvance, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !wallet.IsCredit() {
		return nil, nil, ErrNotCreditWallet
	}
	adv, err := s.advance(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}
	return wallet, adv, nil
}

// SyncBillingCycles advances every credit wallet of the user. A failing
// wallet does not stop the others.
func (s *walletService) SyncBillingCycles(ctx context.Context, userID int) error {
	wallets, err := s.wallets.FindByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list wallets for billing sync: %w", err)
	}
	var errs []error
	for i := range wallets {
		if _, err := s.advance(ctx, &wallets[i]); err != nil {
			errs = append(errs, fmt.Errorf("wallet %d: %w", wallets[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *walletService) GetSummary(ctx context.Context, walletID int64, userID int) (*model.WalletSummary, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.advance(ctx, wallet); err != nil {
		return nil, err
	}
	txs, err := s.walletTransactions(ctx, wallet)
	if err != nil {
		return nil, err
	}
	summary := billing.Summarize(wallet, txs, s.now())
	return &summary, nil
}

// GetBillingHistory walks every payment ever made, including the ones earlier
// statements consumed, so settled cycles stay settled.
func (s *walletService) GetBillingHistory(ctx context.Context, walletID int64, userID int) ([]model.BillingCycle, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsCredit() {
		return nil, ErrNotCreditWallet
	}
	if wallet.BillingDate == nil {
		return []model.BillingCycle{}, nil
	}
	payments, err := s.wallets.ListPayments(ctx, walletID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}
	txs, err := s.walletTransactions(ctx, wallet)
	if err != nil {
		return nil, err
	}
	wallet.Payments = payments
	history := billing.History(wallet, txs, s.now())
	if history == nil {
		history = []model.BillingCycle{}
	}
	return history, nil
}

func (s *walletService) GetCycleDates(ctx context.Context, walletID int64, userID int) (*model.CycleDates, error) {
	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsCredit() {
		return nil, ErrNotCreditWallet
	}
	if wallet.BillingDate == nil {
		return nil, ErrInvalidBillingDay
	}
	dates := billing.ResolveCycleDates(*wallet.BillingDate, wallet.LastBillingDate, intOrZero(wallet.DueDateDuration), s.now())
	if dates == nil {
		return nil, ErrInvalidBillingDay
	}
	return dates, nil
}
