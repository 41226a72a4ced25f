package usecase

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"shoppit/internal/gateway"
	repo "shoppit/internal/repository"
)

// コールバック応答（原文のmessage/SubMessage形式）
type CallbackOutput struct {
	Message    string `json:"message"`
	SubMessage string `json:"sub_message"`
}

// SettlementUsecase はコールバック検証と台帳・カートの状態遷移を結ぶ。
// 検証が全て通る前に状態は一切変更しない。
type SettlementUsecase struct {
	tm       repo.TransactionManager
	txRepo   repo.TransactionRepository
	gateways map[string]gateway.Gateway
}

func NewSettlementUsecase(
	tm repo.TransactionManager,
	txRepo repo.TransactionRepository,
	gateways map[string]gateway.Gateway,
) *SettlementUsecase {
	return &SettlementUsecase{
		tm:       tm,
		txRepo:   txRepo,
		gateways: gateways,
	}
}

// 検証不一致は400で返すがHTTPErrorにはしない（本文が必要なため）
type callbackFailure struct {
	Status int
	Out    CallbackOutput
}

func (f *callbackFailure) Error() string { return f.Out.Message }

// AsCallbackFailure はハンドラで失敗本文を取り出すためのヘルパ。
func AsCallbackFailure(err error) (int, CallbackOutput, bool) {
	if f, ok := err.(*callbackFailure); ok {
		return f.Status, f.Out, true
	}
	return 0, CallbackOutput{}, false
}

// HandleCallback はプロバイダからのコールバックを照合する。
//  1. 必須パラメータの存在チェック（欠落は400、状態変更なし）
//  2. プロバイダの表層statusが不成立なら400、状態変更なし
//  3. refで台帳を引く（未知のrefは404、偽造ガード）
//  4. アダプタのVerify（プロバイダへのリモート照会を含む）
//  5. status・金額（許容差以内）・通貨の全一致で初めて
//  6. 取引completed＋カートpaidを単一トランザクションで確定。
//     認証済みならカートの所有者も束縛する（ゲスト購入の事後クレーム）。
//  7. 不一致は400、取引はpendingのまま（再送で後から成立し得る）
func (u *SettlementUsecase) HandleCallback(ctx context.Context, gatewayName string, params gateway.CallbackParams, authedUserID *int64) (CallbackOutput, error) {
	gw, ok := u.gateways[gatewayName]
	if !ok {
		return CallbackOutput{}, NewHTTPError(http.StatusBadRequest, "unknown gateway")
	}

	//1. 必須パラメータ
	for _, name := range gw.RequiredCallbackParams() {
		if params[name] == "" {
			return CallbackOutput{}, &callbackFailure{
				Status: http.StatusBadRequest,
				Out: CallbackOutput{
					Message:    "Missing Parameters",
					SubMessage: "Required payment information is missing",
				},
			}
		}
	}

	//2. 表層status（flutterwaveのみ。paypalはstatusパラメータを持たない）
	if status, present := params["status"]; present && status != "successful" {
		return CallbackOutput{}, &callbackFailure{
			Status: http.StatusBadRequest,
			Out: CallbackOutput{
				Message:    "Payment was not successful",
				SubMessage: "Your payment was cancelled or failed",
			},
		}
	}

	//3. 台帳を引く（未知のrefは状態を一切触らない）
	tx, err := u.txRepo.FindByRef(ctx, params["tx_ref"])
	if err == repo.ErrNotFound {
		return CallbackOutput{}, &callbackFailure{
			Status: http.StatusNotFound,
			Out: CallbackOutput{
				Message:    "Transaction Not Found",
				SubMessage: "The transaction reference is invalid",
			},
		}
	}
	if err != nil {
		return CallbackOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//4. プロバイダ照会
	verified, err := gw.Verify(ctx, params)
	if err != nil {
		return CallbackOutput{}, gatewayHTTPError(err)
	}

	//5. status → 金額（許容差以内）→ 通貨の順で照合
	if !verified.Succeeded {
		return CallbackOutput{}, &callbackFailure{
			Status: http.StatusBadRequest,
			Out: CallbackOutput{
				Message:    "Payment Verification Failed",
				SubMessage: verified.Reason,
			},
		}
	}
	if !amountMatches(verified.Amount, tx.Amount, gw.AmountTolerance()) ||
		verified.Currency != tx.Currency {
		//pendingのまま残す（failedにはしない）
		return CallbackOutput{}, &callbackFailure{
			Status: http.StatusBadRequest,
			Out: CallbackOutput{
				Message:    "Payment Verification Failed",
				SubMessage: "Payment details do not match",
			},
		}
	}

	//6. completed+paidは単一トランザクションで。片方だけの適用はさせない。
	err = u.tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Transactions().MarkCompleted(ctx, tx.Ref); err != nil {
			return err
		}
		return r.Carts().MarkPaid(ctx, tx.CartID, authedUserID)
	})
	if err != nil {
		return CallbackOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CallbackOutput{
		Message:    "Payment Successful",
		SubMessage: "You have successfully made payment",
	}, nil
}

// |provider - ledger| <= tolerance
func amountMatches(provider, ledger, tolerance decimal.Decimal) bool {
	return provider.Sub(ledger).Abs().LessThanOrEqual(tolerance)
}
