package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
)

// Error はプロバイダ呼び出しの失敗（ネットワーク・プロバイダ側エラー）。
// Messageにはプロバイダの生のメッセージを入れる。
type Error struct {
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ProtocolError はプロバイダ応答が期待した形でない場合
// （approval URL欠落、金額フィールド欠落など）。
type ProtocolError struct {
	Provider string
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// InitiateResult は決済開始の結果。
// RawはプロバイダのJSONをそのまま返す用途（flutterwave）。
type InitiateResult struct {
	RedirectURL string                 `json:"link,omitempty"`
	PaymentID   string                 `json:"payment_id,omitempty"`
	Ref         string                 `json:"tx_ref,omitempty"`
	Raw         map[string]interface{} `json:"-"`
}

// VerifiedPayment はプロバイダが報告した決済結果。
// Succeeded=falseのときReasonにユーザー向けの理由を入れる。
type VerifiedPayment struct {
	Succeeded bool
	Reason    string
	Amount    decimal.Decimal
	Currency  string
}

// コールバックのクエリパラメータ
type CallbackParams map[string]string

// Gateway は決済プロバイダごとのアダプタ。
// VerifyはプロバイダへのGET/実行を含むが、台帳の状態は一切変更しない。
type Gateway interface {
	Name() string
	//このプロバイダで請求する通貨コード
	Currency() string
	//コールバックに必須のパラメータ名
	RequiredCallbackParams() []string
	Initiate(ctx context.Context, tx model.Transaction, cart model.Cart, user model.User) (InitiateResult, error)
	Verify(ctx context.Context, params CallbackParams) (VerifiedPayment, error)
	//台帳金額との照合に許す絶対差（flutterwave=0、paypal=0.01）
	AmountTolerance() decimal.Decimal
}

// プロバイダ呼び出し用のHTTPクライアント（タイムアウト必須）
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
