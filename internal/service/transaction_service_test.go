package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wallet_tracker/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTransactionServiceMocks() (*transactionService, *mockTransactionRepo, *mockWalletRepo, *mockSyncer) {
	txs := &mockTransactionRepo{}
	wallets := &mockWalletRepo{}
	syncer := &mockSyncer{}
	svc := NewTransactionService(txs, wallets, syncer, "uploads").(*transactionService)
	return svc, txs, wallets, syncer
}

func TestCreateTransaction_SyncsBilling(t *testing.T) {
	svc, txs, wallets, syncer := newTransactionServiceMocks()
	wallets.On("FindByID", mock.Anything, int64(7)).Return(card(7), nil)
	txs.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
	syncer.On("SyncBillingCycles", mock.Anything, owner).Return(nil)

	interest := model.TransferTypeInterest
	created, err := svc.CreateTransaction(context.Background(), owner, model.CreateTransactionRequest{
		WalletID: 7, Amount: decimal.RequireFromString("12.40"), Type: model.TransactionTypeExpense,
		Category: " Fees ", TransferType: &interest,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fees", created.Category)
	assert.True(t, created.IsTransfer, "a transfer leg implies a transfer")
	assert.False(t, created.TransactionDate.IsZero())
	syncer.AssertExpectations(t)
}

func TestCreateTransaction_SyncFailureIsNotFatal(t *testing.T) {
	svc, txs, wallets, syncer := newTransactionServiceMocks()
	wallets.On("FindByID", mock.Anything, int64(7)).Return(card(7), nil)
	txs.On("Create", mock.Anything, mock.Anything).Return(nil)
	syncer.On("SyncBillingCycles", mock.Anything, owner).Return(errors.New("lock timeout"))

	_, err := svc.CreateTransaction(context.Background(), owner, model.CreateTransactionRequest{
		WalletID: 7, Amount: decimal.NewFromInt(5), Type: model.TransactionTypeExpense, Category: "Food",
	})
	assert.NoError(t, err)
}

func TestCreateTransaction_Rejections(t *testing.T) {
	svc, txs, wallets, _ := newTransactionServiceMocks()
	foreign := card(8)
	foreign.UserID = owner + 1
	wallets.On("FindByID", mock.Anything, int64(8)).Return(foreign, nil)
	wallets.On("FindByID", mock.Anything, int64(9)).Return(nil, nil)

	ctx := context.Background()
	_, err := svc.CreateTransaction(ctx, owner, model.CreateTransactionRequest{WalletID: 7, Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = svc.CreateTransaction(ctx, owner, model.CreateTransactionRequest{WalletID: 8, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.CreateTransaction(ctx, owner, model.CreateTransactionRequest{WalletID: 9, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrWalletNotFound)
	txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateTransaction_ReassignsWallet(t *testing.T) {
	svc, txs, wallets, syncer := newTransactionServiceMocks()
	existing := expense(7, 50, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	existing.ID = 11
	txs.On("FindByID", mock.Anything, int64(11)).Return(&existing, nil)
	wallets.On("FindByID", mock.Anything, int64(3)).Return(&model.Wallet{ID: 3, UserID: owner, Type: model.WalletTypeCash}, nil)
	txs.On("Update", mock.Anything, &existing).Return(nil)
	syncer.On("SyncBillingCycles", mock.Anything, owner).Return(nil)

	updated, err := svc.UpdateTransaction(context.Background(), 11, owner, model.UpdateTransactionRequest{
		WalletID: ptr(int64(3)), Amount: ptr(decimal.NewFromInt(75)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.WalletID)
	assert.Equal(t, "75", updated.Amount.String())
	syncer.AssertExpectations(t)
}

func TestPaymentLinkedTransactionsAreReadOnly(t *testing.T) {
	svc, txs, _, _ := newTransactionServiceMocks()
	linked := expense(7, 50, time.Now())
	linked.PaymentID = ptr("p1")
	txs.On("FindByID", mock.Anything, int64(12)).Return(&linked, nil)

	_, err := svc.UpdateTransaction(context.Background(), 12, owner, model.UpdateTransactionRequest{Amount: ptr(decimal.NewFromInt(1))})
	assert.ErrorIs(t, err, ErrPaymentLinked)
	err = svc.DeleteTransaction(context.Background(), 12, owner, model.RoleUser)
	assert.ErrorIs(t, err, ErrPaymentLinked)
	txs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteTransaction_AdminSyncsOwner(t *testing.T) {
	svc, txs, _, syncer := newTransactionServiceMocks()
	existing := expense(7, 50, time.Now())
	existing.ID = 13
	txs.On("FindByID", mock.Anything, int64(13)).Return(&existing, nil)
	txs.On("Delete", mock.Anything, int64(13)).Return(nil)
	syncer.On("SyncBillingCycles", mock.Anything, owner).Return(nil)

	require.NoError(t, svc.DeleteTransaction(context.Background(), 13, 999, model.RoleAdmin))
	syncer.AssertCalled(t, "SyncBillingCycles", mock.Anything, owner)
}

func TestGetUserTransactions_SingleDayFilter(t *testing.T) {
	svc, txs, _, _ := newTransactionServiceMocks()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var got model.UserTransactionFilters
	txs.On("FindByUser", mock.Anything, owner, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(2).(model.UserTransactionFilters) }).
		Return([]model.Transaction{}, nil)

	_, err := svc.GetUserTransactions(context.Background(), owner, model.UserTransactionFilters{StartDate: &start})
	require.NoError(t, err)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC), *got.EndDate)
}

func TestGetReceiptPath(t *testing.T) {
	svc, txs, _, _ := newTransactionServiceMocks()
	withReceipt := expense(7, 50, time.Now())
	withReceipt.ReceiptPath = ptr("uploads/transactions/14/bill.pdf")
	without := expense(7, 50, time.Now())
	txs.On("FindByID", mock.Anything, int64(14)).Return(&withReceipt, nil)
	txs.On("FindByID", mock.Anything, int64(15)).Return(&without, nil)

	path, name, err := svc.GetReceiptPath(context.Background(), 14, owner, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "bill.pdf", name)
	assert.Contains(t, path, "bill.pdf")

	_, _, err = svc.GetReceiptPath(context.Background(), 15, owner, model.RoleUser)
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	_, _, err = svc.GetReceiptPath(context.Background(), 14, owner+1, model.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestExportTransactionsCSVAdmin(t *testing.T) {
	svc, txs, _, _ := newTransactionServiceMocks()
	when := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	row := expense(7, 0, when)
	row.ID = 1
	row.Amount = decimal.RequireFromString("12.5")
	row.Tag = ptr("groceries")
	row.CreatedAt = when
	txs.On("FindAll", mock.Anything, model.AdminTransactionFilters{}).Return([]model.Transaction{row}, nil)

	buf, err := svc.ExportTransactionsCSVAdmin(context.Background(), model.AdminTransactionFilters{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Equal(t, "1,5,7,12.50,expense,Food,groceries,,2024-03-01T09:30:00Z,,,2024-03-01T09:30:00Z,", lines[1])
}
