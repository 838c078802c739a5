package service

import (
	"context"

	"wallet_tracker/internal/model"

	"github.com/stretchr/testify/mock"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *mockUserRepo) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

type mockTransactionRepo struct{ mock.Mock }

func (m *mockTransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepo) FindByUser(ctx context.Context, userID int, filters model.UserTransactionFilters) ([]model.Transaction, error) {
	args := m.Called(ctx, userID, filters)
	txs, _ := args.Get(0).([]model.Transaction)
	return txs, args.Error(1)
}

func (m *mockTransactionRepo) Update(ctx context.Context, t *model.Transaction) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTransactionRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTransactionRepo) UpdateReceiptPath(ctx context.Context, id int64, receiptPath string) error {
	return m.Called(ctx, id, receiptPath).Error(0)
}

func (m *mockTransactionRepo) FindAll(ctx context.Context, filters model.AdminTransactionFilters) ([]model.Transaction, error) {
	args := m.Called(ctx, filters)
	txs, _ := args.Get(0).([]model.Transaction)
	return txs, args.Error(1)
}

func (m *mockTransactionRepo) GetAggregatedStats(ctx context.Context, filters model.AdminTransactionFilters) (*model.AggregatedStats, error) {
	args := m.Called(ctx, filters)
	stats, _ := args.Get(0).(*model.AggregatedStats)
	return stats, args.Error(1)
}

type mockWalletRepo struct{ mock.Mock }

func (m *mockWalletRepo) Create(ctx context.Context, w *model.Wallet) error {
	args := m.Called(ctx, w)
	if args.Error(0) == nil {
		w.ID = 42
	}
	return args.Error(0)
}

func (m *mockWalletRepo) FindByID(ctx context.Context, id int64) (*model.Wallet, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(*model.Wallet)
	return w, args.Error(1)
}

func (m *mockWalletRepo) FindByUser(ctx context.Context, userID int) ([]model.Wallet, error) {
	args := m.Called(ctx, userID)
	ws, _ := args.Get(0).([]model.Wallet)
	return ws, args.Error(1)
}

func (m *mockWalletRepo) Update(ctx context.Context, w *model.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWalletRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockWalletRepo) ListPayments(ctx context.Context, walletID int64, includeArchived bool) ([]model.Payment, error) {
	args := m.Called(ctx, walletID, includeArchived)
	ps, _ := args.Get(0).([]model.Payment)
	return ps, args.Error(1)
}

func (m *mockWalletRepo) RecordPayment(ctx context.Context, p *model.Payment, legs []*model.Transaction) error {
	return m.Called(ctx, p, legs).Error(0)
}

func (m *mockWalletRepo) SaveCycleAdvance(ctx context.Context, walletID int64, adv *model.CycleAdvance) error {
	return m.Called(ctx, walletID, adv).Error(0)
}

type mockSyncer struct{ mock.Mock }

func (m *mockSyncer) SyncBillingCycles(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}
