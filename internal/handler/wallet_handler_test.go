package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet_tracker/internal/middleware"
	"wallet_tracker/internal/model"
	"wallet_tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWalletService struct{ mock.Mock }

func (m *mockWalletService) CreateWallet(ctx context.Context, userID int, req model.CreateWalletRequest) (*model.Wallet, error) {
	args := m.Called(ctx, userID, req)
	w, _ := args.Get(0).(*model.Wallet)
	return w, args.Error(1)
}

func (m *mockWalletService) GetWallet(ctx context.Context, walletID int64, userID int) (*model.Wallet, error) {
	args := m.Called(ctx, walletID, userID)
	w, _ := args.Get(0).(*model.Wallet)
	return w, args.Error(1)
}

func (m *mockWalletService) ListWallets(ctx context.Context, userID int) ([]model.Wallet, error) {
	args := m.Called(ctx, userID)
	ws, _ := args.Get(0).([]model.Wallet)
	return ws, args.Error(1)
}

func (m *mockWalletService) UpdateWallet(ctx context.Context, walletID int64, userID int, req model.UpdateWalletRequest) (*model.Wallet, error) {
	args := m.Called(ctx, walletID, userID, req)
	w, _ := args.Get(0).(*model.Wallet)
	return w, args.Error(1)
}

func (m *mockWalletService) DeleteWallet(ctx context.Context, walletID int64, userID int) error {
	return m.Called(ctx, walletID, userID).Error(0)
}

func (m *mockWalletService) EditInitialDebt(ctx context.Context, walletID int64, userID int, balance decimal.Decimal) (*model.Wallet, error) {
	args := m.Called(ctx, walletID, userID, balance)
	w, _ := args.Get(0).(*model.Wallet)
	return w, args.Error(1)
}

func (m *mockWalletService) ApplyPayment(ctx context.Context, walletID int64, userID int, req model.ApplyPaymentRequest) (*model.Payment, error) {
	args := m.Called(ctx, walletID, userID, req)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *mockWalletService) AdvanceCycle(ctx context.Context, walletID int64, userID int) (*model.Wallet, *model.CycleAdvance, error) {
	args := m.Called(ctx, walletID, userID)
	w, _ := args.Get(0).(*model.Wallet)
	adv, _ := args.Get(1).(*model.CycleAdvance)
	return w, adv, args.Error(2)
}

func (m *mockWalletService) SyncBillingCycles(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockWalletService) GetSummary(ctx context.Context, walletID int64, userID int) (*model.WalletSummary, error) {
	args := m.Called(ctx, walletID, userID)
	s, _ := args.Get(0).(*model.WalletSummary)
	return s, args.Error(1)
}

func (m *mockWalletService) GetBillingHistory(ctx context.Context, walletID int64, userID int) ([]model.BillingCycle, error) {
	args := m.Called(ctx, walletID, userID)
	h, _ := args.Get(0).([]model.BillingCycle)
	return h, args.Error(1)
}

func (m *mockWalletService) GetCycleDates(ctx context.Context, walletID int64, userID int) (*model.CycleDates, error) {
	args := m.Called(ctx, walletID, userID)
	d, _ := args.Get(0).(*model.CycleDates)
	return d, args.Error(1)
}

const testUserID = 5

// asUser stands in for the JWT middleware.
func asUser(userID int, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AuthUserKey, userID)
		c.Set(middleware.AuthRoleKey, role)
		c.Next()
	}
}

func noop(c *gin.Context) { c.Next() }

func newWalletRouter(svc service.WalletService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewWalletHandler(svc).RegisterWalletRoutes(r.Group("/api/v1"), asUser(testUserID, model.RoleUser), noop)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestWalletHandler_CreateWallet(t *testing.T) {
	svc := &mockWalletService{}
	r := newWalletRouter(svc)
	svc.On("CreateWallet", mock.Anything, testUserID, mock.AnythingOfType("model.CreateWalletRequest")).
		Return(&model.Wallet{ID: 42, UserID: testUserID, Name: "Visa", Type: model.WalletTypeCredit, Payments: []model.Payment{}}, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/wallets", gin.H{
		"name": "Visa", "type": "credit", "balance": "500", "credit_limit": "5000", "billing_date": 15, "due_date_duration": 20,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var got model.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(42), got.ID)

	req := svc.Calls[0].Arguments.Get(2).(model.CreateWalletRequest)
	assert.Equal(t, "500", req.Balance.String())
	assert.Equal(t, 15, *req.BillingDate)
}

func TestWalletHandler_CreateWallet_BindingErrors(t *testing.T) {
	svc := &mockWalletService{}
	r := newWalletRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/v1/wallets", gin.H{"name": "Visa", "type": "credit", "billing_date": 40})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/wallets", gin.H{"name": "Visa", "type": "debit"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateWallet", mock.Anything, mock.Anything, mock.Anything)
}

func TestWalletHandler_InvalidID(t *testing.T) {
	r := newWalletRouter(&mockWalletService{})
	w := doJSON(r, http.MethodGet, "/api/v1/wallets/abc/summary", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid wallet ID", decodeError(t, w))
}

func TestWalletHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrWalletNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not a card", service.ErrNotCreditWallet, http.StatusBadRequest},
		{"wrapped", fmt.Errorf("source wallet: %w", service.ErrWalletNotFound), http.StatusNotFound},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockWalletService{}
			r := newWalletRouter(svc)
			svc.On("ApplyPayment", mock.Anything, int64(7), testUserID, mock.Anything).Return(nil, tc.err)

			w := doJSON(r, http.MethodPost, "/api/v1/wallets/7/payments", gin.H{"amount": "600"})
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "Failed to apply payment", decodeError(t, w))
			}
		})
	}
}

func TestWalletHandler_ApplyPayment(t *testing.T) {
	svc := &mockWalletService{}
	r := newWalletRouter(svc)
	cycle := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	svc.On("ApplyPayment", mock.Anything, int64(7), testUserID, mock.MatchedBy(func(req model.ApplyPaymentRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(600)) && req.BillingCycleDate != nil && req.BillingCycleDate.Equal(cycle)
	})).Return(&model.Payment{ID: "p1", WalletID: 7, Amount: decimal.NewFromInt(600)}, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/wallets/7/payments", gin.H{
		"amount": 600, "billing_cycle_date": "2024-02-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"p1"`)
}

func TestWalletHandler_AdvanceCycle(t *testing.T) {
	svc := &mockWalletService{}
	r := newWalletRouter(svc)
	svc.On("AdvanceCycle", mock.Anything, int64(7), testUserID).Return(&model.Wallet{ID: 7}, nil, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/wallets/7/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Advanced bool `json:"advanced"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Advanced)
}

func TestWalletHandler_GetSummary(t *testing.T) {
	svc := &mockWalletService{}
	r := newWalletRouter(svc)
	svc.On("GetSummary", mock.Anything, int64(7), testUserID).Return(&model.WalletSummary{
		WalletID: 7, Type: model.WalletTypeCredit,
		CreditUsed: decimal.NewFromInt(1200), UnpaidBillAmount: decimal.NewFromInt(400), UnbilledAmount: decimal.NewFromInt(800),
	}, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/wallets/7/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unbilled_amount":"800"`)
}

func TestWalletHandler_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewWalletHandler(&mockWalletService{}).RegisterWalletRoutes(r.Group("/api/v1"), noop, noop)

	w := doJSON(r, http.MethodGet, "/api/v1/wallets", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
