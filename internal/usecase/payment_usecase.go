package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
	"shoppit/internal/gateway"
	repo "shoppit/internal/repository"
)

// UUID等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// PaymentUsecase は決済開始（台帳のpending作成＋プロバイダ呼び出し）。
// 確定はSettlementUsecaseが行う。
type PaymentUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	txRepo       repo.TransactionRepository
	userRepo     repo.UserRepository
	gateways     map[string]gateway.Gateway
	idGen        IDGenerator
}

func NewPaymentUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	txRepo repo.TransactionRepository,
	userRepo repo.UserRepository,
	gateways map[string]gateway.Gateway,
	idGen IDGenerator,
) *PaymentUsecase {
	return &PaymentUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		txRepo:       txRepo,
		userRepo:     userRepo,
		gateways:     gateways,
		idGen:        idGen,
	}
}

type InitiatePaymentOutput struct {
	Ref         string                 `json:"tx_ref"`
	PaymentID   string                 `json:"payment_id,omitempty"`
	RedirectURL string                 `json:"link,omitempty"`
	Raw         map[string]interface{} `json:"-"`
}

// InitiatePayment はカート合計+税でpending取引を起こし、プロバイダへ委譲する。
// 同一カートのpending行は再利用する（refは維持、金額は再計算）。
func (u *PaymentUsecase) InitiatePayment(ctx context.Context, userID int64, cartCode string, gatewayName string) (InitiatePaymentOutput, error) {
	if userID <= 0 {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(cartCode) == "" {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusBadRequest, "cart_code is required")
	}

	gw, ok := u.gateways[gatewayName]
	if !ok {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusBadRequest, "unknown gateway")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return InitiatePaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart, err := u.cartRepo.FindUnpaidByCode(ctx, strings.TrimSpace(cartCode))
	if err == repo.ErrNotFound {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusNotFound, "Cart not found")
	}
	if err != nil {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	amount, err := u.cartTotal(ctx, cart.ID)
	if err != nil {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	totalAmount := amount.Add(model.TaxAmount)
	currency := gw.Currency()

	//pending行があれば再利用（初期化のたびに行を増やさない）
	tx, err := u.txRepo.FindPendingByCartID(ctx, cart.ID)
	switch {
	case err == nil:
		if err := u.txRepo.UpdateAmount(ctx, tx.Ref, totalAmount, currency); err != nil {
			return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		tx.Amount = totalAmount
		tx.Currency = currency
	case err == repo.ErrNotFound:
		tx, err = u.txRepo.Create(ctx, model.Transaction{
			Ref:      u.idGen.NewID(),
			CartID:   cart.ID,
			Amount:   totalAmount,
			Currency: currency,
			Status:   model.TransactionPending,
			UserID:   userID,
		})
		if err != nil {
			return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	default:
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//プロバイダ呼び出し。失敗しても取引はpendingのまま（再初期化できる）。
	result, err := gw.Initiate(ctx, tx, cart, *user)
	if err != nil {
		return InitiatePaymentOutput{}, gatewayHTTPError(err)
	}

	return InitiatePaymentOutput{
		Ref:         tx.Ref,
		PaymentID:   result.PaymentID,
		RedirectURL: result.RedirectURL,
		Raw:         result.Raw,
	}, nil
}

// Σ(quantity × price)
func (u *PaymentUsecase) cartTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	return total, nil
}

// ゲートウェイのエラーをHTTPへ変換。
// プロバイダ/ネットワーク障害は500でプロバイダの生メッセージを載せる。
func gatewayHTTPError(err error) error {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return NewHTTPError(http.StatusInternalServerError, gerr.Message)
	}

	var perr *gateway.ProtocolError
	if errors.As(err, &perr) {
		return NewHTTPError(http.StatusInternalServerError, perr.Message)
	}

	return NewHTTPError(http.StatusInternalServerError, "payment failed")
}
