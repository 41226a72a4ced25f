package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"shoppit/internal/domain/model"
	"shoppit/internal/gateway"
	repo "shoppit/internal/repository"
	"shoppit/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type TransactionRepoMock struct{ mock.Mock }

func (m *TransactionRepoMock) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	args := m.Called(ctx, t)
	tx, _ := args.Get(0).(model.Transaction)
	return tx, args.Error(1)
}

func (m *TransactionRepoMock) FindByRef(ctx context.Context, ref string) (model.Transaction, error) {
	args := m.Called(ctx, ref)
	tx, _ := args.Get(0).(model.Transaction)
	return tx, args.Error(1)
}

func (m *TransactionRepoMock) FindPendingByCartID(ctx context.Context, cartID int64) (model.Transaction, error) {
	args := m.Called(ctx, cartID)
	tx, _ := args.Get(0).(model.Transaction)
	return tx, args.Error(1)
}

func (m *TransactionRepoMock) UpdateAmount(ctx context.Context, ref string, amount decimal.Decimal, currency string) error {
	args := m.Called(ctx, ref, amount, currency)
	return args.Error(0)
}

func (m *TransactionRepoMock) MarkCompleted(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// WithinTxをそのまま実行し、渡したrepoモックを見せるTxManager
type TxManagerStub struct {
	carts *CartRepoMock
	items *CartItemRepoMock
	txs   *TransactionRepoMock
}

func (s *TxManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(s)
}

func (s *TxManagerStub) Carts() repo.CartRepository            { return s.carts }
func (s *TxManagerStub) CartItems() repo.CartItemRepository    { return s.items }
func (s *TxManagerStub) Transactions() repo.TransactionRepository { return s.txs }

// Verifyの結果を差し替えられる偽ゲートウェイ
type fakeGateway struct {
	name      string
	currency  string
	required  []string
	tolerance decimal.Decimal
	verified  gateway.VerifiedPayment
	verifyErr error
}

func (g *fakeGateway) Name() string                      { return g.name }
func (g *fakeGateway) Currency() string                  { return g.currency }
func (g *fakeGateway) RequiredCallbackParams() []string  { return g.required }
func (g *fakeGateway) AmountTolerance() decimal.Decimal  { return g.tolerance }

func (g *fakeGateway) Initiate(ctx context.Context, tx model.Transaction, cart model.Cart, user model.User) (gateway.InitiateResult, error) {
	panic("not used in settlement tests")
}

func (g *fakeGateway) Verify(ctx context.Context, params gateway.CallbackParams) (gateway.VerifiedPayment, error) {
	return g.verified, g.verifyErr
}

func newFlwFake(verified gateway.VerifiedPayment) *fakeGateway {
	return &fakeGateway{
		name:      "flutterwave",
		currency:  "NGN",
		required:  []string{"status", "tx_ref", "transaction_id"},
		tolerance: decimal.Zero,
		verified:  verified,
	}
}

func newPayPalFake(verified gateway.VerifiedPayment) *fakeGateway {
	return &fakeGateway{
		name:      "paypal",
		currency:  "USD",
		required:  []string{"paymentId", "PayerID", "tx_ref"},
		tolerance: decimal.RequireFromString("0.01"),
		verified:  verified,
	}
}

func newSettlementUC(gw *fakeGateway, txRepo *TransactionRepoMock, cartRepo *CartRepoMock) *usecase.SettlementUsecase {
	tm := &TxManagerStub{carts: cartRepo, items: new(CartItemRepoMock), txs: txRepo}
	return usecase.NewSettlementUsecase(tm, txRepo, map[string]gateway.Gateway{gw.name: gw})
}

func assertCallbackFailure(t *testing.T, err error, wantStatus int, wantMessage string) {
	t.Helper()
	status, out, ok := usecase.AsCallbackFailure(err)
	if assert.True(t, ok, "expected callback failure, got %v", err) {
		assert.Equal(t, wantStatus, status)
		assert.Equal(t, wantMessage, out.Message)
	}
}

// =====================
// HandleCallback
// =====================

func TestSettlement_SuccessfulCallbackCompletesAndPaysAtomically(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{ID: 1, Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)
	txRepo.On("MarkCompleted", mock.Anything, "ref-1").Return(nil)
	cartRepo.On("MarkPaid", mock.Anything, int64(5), (*int64)(nil)).Return(nil)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true, Amount: price("29.00"), Currency: "NGN"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	out, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Payment Successful", out.Message)
	assert.Equal(t, "You have successfully made payment", out.SubMessage)
	txRepo.AssertCalled(t, "MarkCompleted", mock.Anything, "ref-1")
	cartRepo.AssertCalled(t, "MarkPaid", mock.Anything, int64(5), (*int64)(nil))
}

func TestSettlement_AuthedCallbackBindsCartOwner(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)
	txRepo.On("MarkCompleted", mock.Anything, "ref-1").Return(nil)

	userID := int64(42)
	cartRepo.On("MarkPaid", mock.Anything, int64(5), &userID).Return(nil)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true, Amount: price("29.00"), Currency: "NGN"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, &userID)

	assert.NoError(t, err)
	cartRepo.AssertCalled(t, "MarkPaid", mock.Anything, int64(5), &userID)
}

func TestSettlement_MissingParamsNoStateChange(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	//transaction_id欠落
	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status": "successful",
		"tx_ref": "ref-1",
	}, nil)

	assertCallbackFailure(t, err, http.StatusBadRequest, "Missing Parameters")
	txRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlement_CancelledStatusRejectedBeforeLedgerLookup(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "cancelled",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assertCallbackFailure(t, err, http.StatusBadRequest, "Payment was not successful")
	txRepo.AssertNotCalled(t, "FindByRef", mock.Anything, mock.Anything)
}

func TestSettlement_UnknownRefIs404(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	txRepo.On("FindByRef", mock.Anything, "forged-ref").Return(model.Transaction{}, repo.ErrNotFound)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "forged-ref",
		"transaction_id": "12345",
	}, nil)

	assertCallbackFailure(t, err, http.StatusNotFound, "Transaction Not Found")
	cartRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlement_AmountMismatchLeavesTransactionPending(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)

	//プロバイダ報告額が台帳と食い違う
	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true, Amount: price("28.50"), Currency: "NGN"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assertCallbackFailure(t, err, http.StatusBadRequest, "Payment Verification Failed")
	//pendingのまま、completedにもfailedにもしない
	txRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlement_ZeroToleranceRejectsOneCentDiff(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true, Amount: price("28.99"), Currency: "NGN"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assertCallbackFailure(t, err, http.StatusBadRequest, "Payment Verification Failed")
}

func TestSettlement_OneCentToleranceAcceptsOneCentDiff(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "USD", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)
	txRepo.On("MarkCompleted", mock.Anything, "ref-1").Return(nil)
	cartRepo.On("MarkPaid", mock.Anything, int64(5), (*int64)(nil)).Return(nil)

	//28.99 vs 29.00 は許容差0.01以内
	gw := newPayPalFake(gateway.VerifiedPayment{Succeeded: true, Amount: price("28.99"), Currency: "USD"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	out, err := uc.HandleCallback(context.Background(), "paypal", gateway.CallbackParams{
		"paymentId": "PAY-1",
		"PayerID":   "PAYER-1",
		"tx_ref":    "ref-1",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Payment Successful", out.Message)
}

func TestSettlement_CurrencyMismatchRejected(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: true, Amount: price("29.00"), Currency: "USD"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assertCallbackFailure(t, err, http.StatusBadRequest, "Payment Verification Failed")
	txRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
}

func TestSettlement_ProviderReportsFailureNoStateChange(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)

	gw := newFlwFake(gateway.VerifiedPayment{Succeeded: false, Reason: "Payment was not successful"})
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assertCallbackFailure(t, err, http.StatusBadRequest, "Payment Verification Failed")
	txRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
}

func TestSettlement_VerifyNetworkErrorIs500(t *testing.T) {
	txRepo := new(TransactionRepoMock)
	cartRepo := new(CartRepoMock)

	ledger := model.Transaction{Ref: "ref-1", CartID: 5, Amount: price("29.00"), Currency: "NGN", Status: model.TransactionPending}
	txRepo.On("FindByRef", mock.Anything, "ref-1").Return(ledger, nil)

	gw := newFlwFake(gateway.VerifiedPayment{})
	gw.verifyErr = &gateway.Error{Provider: "flutterwave", Message: "connection refused"}
	uc := newSettlementUC(gw, txRepo, cartRepo)

	_, err := uc.HandleCallback(context.Background(), "flutterwave", gateway.CallbackParams{
		"status":         "successful",
		"tx_ref":         "ref-1",
		"transaction_id": "12345",
	}, nil)

	assertHTTPStatus(t, err, http.StatusInternalServerError)
	txRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
}
