package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wallet_tracker/internal/logger"
	"wallet_tracker/internal/model"
	"wallet_tracker/internal/repository"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrForbidden           = errors.New("forbidden: user does not have permission for this action")
	ErrInvalidFileFormat   = errors.New("invalid file format. only .jpg, .png, .pdf are allowed")
	ErrFileSizeExceeded    = errors.New("file size exceeds limit")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrPaymentLinked       = errors.New("transaction belongs to a bill payment and cannot be changed directly")
	ErrReceiptNotFound     = errors.New("receipt not found for this transaction")
)

const MaxFileSize = 5 * 1024 * 1024 // 5MB

var allowedReceiptExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// BillingSyncer advances statement cycles after the ledger changes.
type BillingSyncer interface {
	SyncBillingCycles(ctx context.Context, userID int) error
}

// TransactionService defines operations for transactions
type TransactionService interface {
	CreateTransaction(ctx context.Context, userID int, req model.CreateTransactionRequest) (*model.Transaction, error)
	GetTransactionByID(ctx context.Context, transactionID int64, userID int, userRole string) (*model.Transaction, error)
	GetUserTransactions(ctx context.Context, userID int, filters model.UserTransactionFilters) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, transactionID int64, userID int, req model.UpdateTransactionRequest) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID int64, userID int, userRole string) error
	UploadReceipt(ctx context.Context, transactionID int64, userID int, file *multipart.FileHeader) (*model.Transaction, error)
	GetReceiptPath(ctx context.Context, transactionID int64, userID int, userRole string) (string, string, error) // returns path and filename

	// Admin methods
	GetAllTransactionsAdmin(ctx context.Context, filters model.AdminTransactionFilters) ([]model.Transaction, error)
	GetStatisticsAdmin(ctx context.Context, filters model.AdminTransactionFilters) (*model.AggregatedStats, error)
	ExportTransactionsCSVAdmin(ctx context.Context, filters model.AdminTransactionFilters) (*bytes.Buffer, error)
}

type transactionService struct {
	repo       repository.TransactionRepository
	wallets    repository.WalletRepository
	billing    BillingSyncer
	uploadsDir string
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(repo repository.TransactionRepository, wallets repository.WalletRepository, billing BillingSyncer, uploadsDir string) TransactionService {
	return &transactionService{repo: repo, wallets: wallets, billing: billing, uploadsDir: uploadsDir}
}

// checkWallet makes sure the target wallet exists and belongs to userID.
func (s *transactionService) checkWallet(ctx context.Context, walletID int64, userID int) error {
	wallet, err := s.wallets.FindByID(ctx, walletID)
	if err != nil {
		return fmt.Errorf("failed to find wallet: %w", err)
	}
	if wallet == nil {
		return ErrWalletNotFound
	}
	if wallet.UserID != userID {
		return ErrForbidden
	}
	return nil
}

// syncBilling runs after a committed ledger change. Its failure is logged,
// not returned: the change itself succeeded and the next sync retries.
func (s *transactionService) syncBilling(ctx context.Context, userID int) {
	if err := s.billing.SyncBillingCycles(ctx, userID); err != nil {
		logger.FromContext(ctx).Error().Err(err).Int("owner_id", userID).Msg("billing cycle sync failed")
	}
}

func (s *transactionService) CreateTransaction(ctx context.Context, userID int, req model.CreateTransactionRequest) (*model.Transaction, error) {
	if req.Amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if err := s.checkWallet(ctx, req.WalletID, userID); err != nil {
		return nil, err
	}

	transactionDate := req.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = time.Now()
	}

	now := time.Now()
	transaction := &model.Transaction{
		UserID:          userID,
		WalletID:        req.WalletID,
		Amount:          req.Amount,
		Type:            req.Type,
		Category:        strings.TrimSpace(req.Category),
		Tag:             req.Tag,
		Description:     req.Description,
		TransactionDate: transactionDate,
		IsTransfer:      req.IsTransfer || req.TransferType != nil,
		TransferType:    req.TransferType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction in repo: %w", err)
	}
	s.syncBilling(ctx, userID)
	return transaction, nil
}

// loadOwned fetches a transaction the caller may act on. Only admins reach
// other users' transactions.
func (s *transactionService) loadOwned(ctx context.Context, transactionID int64, userID int, userRole string) (*model.Transaction, error) {
	transaction, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("find transaction %d: %w", transactionID, err)
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}
	if !model.CanActAs(userID, userRole, transaction.UserID) {
		return nil, ErrForbidden
	}
	return transaction, nil
}

func (s *transactionService) GetTransactionByID(ctx context.Context, transactionID int64, userID int, userRole string) (*model.Transaction, error) {
	return s.loadOwned(ctx, transactionID, userID, userRole)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func (s *transactionService) GetUserTransactions(ctx context.Context, userID int, filters model.UserTransactionFilters) ([]model.Transaction, error) {
	// A bare start date without an end means that whole day.
	if filters.StartDate != nil && filters.EndDate == nil && isMidnight(*filters.StartDate) {
		end := endOfDay(*filters.StartDate)
		filters.EndDate = &end
	}
	if filters.EndDate != nil && isMidnight(*filters.EndDate) {
		end := endOfDay(*filters.EndDate)
		filters.EndDate = &end
	}

	transactions, err := s.repo.FindByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get user transactions from repo: %w", err)
	}
	return transactions, nil
}

// UpdateTransaction edits a transaction in place; only its author may do so.
func (s *transactionService) UpdateTransaction(ctx context.Context, transactionID int64, userID int, req model.UpdateTransactionRequest) (*model.Transaction, error) {
	tx, err := s.loadOwned(ctx, transactionID, userID, model.RoleUser)
	if err != nil {
		return nil, err
	}
	if tx.PaymentID != nil {
		return nil, ErrPaymentLinked
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if req.WalletID != nil && *req.WalletID != tx.WalletID {
		if err := s.checkWallet(ctx, *req.WalletID, userID); err != nil {
			return nil, err
		}
		tx.WalletID = *req.WalletID
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.Type != nil {
		tx.Type = *req.Type
	}
	if req.Category != nil {
		tx.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tag != nil {
		tx.Tag = req.Tag
	}
	if req.Description != nil {
		tx.Description = req.Description
	}
	if req.TransactionDate != nil {
		tx.TransactionDate = *req.TransactionDate
	}
	tx.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction %d: %w", transactionID, err)
	}
	s.syncBilling(ctx, userID)
	return tx, nil
}

// DeleteTransaction removes a transaction. Admins may delete any; billing is
// then re-synced for the owner, not the caller.
func (s *transactionService) DeleteTransaction(ctx context.Context, transactionID int64, userID int, userRole string) error {
	tx, err := s.loadOwned(ctx, transactionID, userID, userRole)
	if err != nil {
		return err
	}
	if tx.PaymentID != nil {
		return ErrPaymentLinked
	}
	if err := s.repo.Delete(ctx, transactionID); err != nil {
		return fmt.Errorf("delete transaction %d: %w", transactionID, err)
	}
	s.syncBilling(ctx, tx.UserID)
	return nil
}

func (s *transactionService) UploadReceipt(ctx context.Context, transactionID int64, userID int, fileHeader *multipart.FileHeader) (*model.Transaction, error) {
	transaction, err := s.loadOwned(ctx, transactionID, userID, model.RoleUser)
	if err != nil {
		return nil, err
	}

	if fileHeader.Size > MaxFileSize {
		return nil, ErrFileSizeExceeded
	}
	if !allowedReceiptExts[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
		return nil, ErrInvalidFileFormat
	}

	dir := filepath.Join(s.uploadsDir, "transactions", strconv.FormatInt(transactionID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	filePath := filepath.Join(dir, filepath.Base(fileHeader.Filename))
	relativeFilePath := filepath.ToSlash(filePath)

	if err := saveUpload(fileHeader, filePath); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReceiptPath(ctx, transactionID, relativeFilePath); err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("failed to update transaction with receipt path: %w", err)
	}

	transaction.ReceiptPath = &relativeFilePath
	return transaction, nil
}

func saveUpload(fileHeader *multipart.FileHeader, filePath string) error {
	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file on server: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *transactionService) GetReceiptPath(ctx context.Context, transactionID int64, userID int, userRole string) (string, string, error) {
	transaction, err := s.GetTransactionByID(ctx, transactionID, userID, userRole)
	if err != nil {
		return "", "", err
	}
	if transaction.ReceiptPath == nil || *transaction.ReceiptPath == "" {
		return "", "", ErrReceiptNotFound
	}

	fullPath := filepath.FromSlash(*transaction.ReceiptPath)
	return fullPath, filepath.Base(fullPath), nil
}

// --- Admin Methods ---

func (s *transactionService) GetAllTransactionsAdmin(ctx context.Context, filters model.AdminTransactionFilters) ([]model.Transaction, error) {
	transactions, err := s.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get all transactions for admin: %w", err)
	}
	return transactions, nil
}

func (s *transactionService) GetStatisticsAdmin(ctx context.Context, filters model.AdminTransactionFilters) (*model.AggregatedStats, error) {
	stats, err := s.repo.GetAggregatedStats(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregated stats for admin: %w", err)
	}
	return stats, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var csvHeader = []string{"ID", "UserID", "WalletID", "Amount", "Type", "Category", "Tag", "Description",
	"TransactionDate", "TransferType", "PaymentID", "CreatedAt", "ReceiptPath"}

func (s *transactionService) ExportTransactionsCSVAdmin(ctx context.Context, filters model.AdminTransactionFilters) (*bytes.Buffer, error) {
	transactions, err := s.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for CSV export: %w", err)
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, t := range transactions {
		row := []string{
			strconv.FormatInt(t.ID, 10),
			strconv.Itoa(t.UserID),
			strconv.FormatInt(t.WalletID, 10),
			t.Amount.StringFixed(2),
			t.Type,
			t.Category,
			deref(t.Tag),
			deref(t.Description),
			t.TransactionDate.Format(time.RFC3339),
			deref(t.TransferType),
			deref(t.PaymentID),
			t.CreatedAt.Format(time.RFC3339),
			deref(t.ReceiptPath),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return buffer, nil
}
