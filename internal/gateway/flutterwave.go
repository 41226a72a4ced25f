package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
)

const flutterwaveDefaultBaseURL = "https://api.flutterwave.com/v3"

type FlutterwaveConfig struct {
	SecretKey string
	//テストではhttptestのURLに差し替える
	BaseURL string
	//決済完了後にブラウザを戻すURL
	RedirectURL string
}

// Flutterwave はアダプタA。
// ブラウザをプロバイダへリダイレクトし、status/tx_ref/transaction_id付きで戻ってくる。
type Flutterwave struct {
	cfg    FlutterwaveConfig
	client *http.Client
}

func NewFlutterwave(cfg FlutterwaveConfig, client *http.Client) *Flutterwave {
	if cfg.BaseURL == "" {
		cfg.BaseURL = flutterwaveDefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Flutterwave{cfg: cfg, client: client}
}

func (f *Flutterwave) Name() string { return "flutterwave" }

func (f *Flutterwave) Currency() string { return "NGN" }

func (f *Flutterwave) RequiredCallbackParams() []string {
	return []string{"status", "tx_ref", "transaction_id"}
}

func (f *Flutterwave) AmountTolerance() decimal.Decimal { return decimal.Zero }

type flutterwaveCustomer struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phonenumber"`
}

type flutterwaveInitiateRequest struct {
	TxRef         string              `json:"tx_ref"`
	Amount        string              `json:"amount"`
	Currency      string              `json:"currency"`
	RedirectURL   string              `json:"redirect_url"`
	Customer      flutterwaveCustomer `json:"customer"`
	Customization map[string]string   `json:"customization"`
}

// Initiate は/v3/paymentsへPOSTし、プロバイダ応答をそのまま返す。
func (f *Flutterwave) Initiate(ctx context.Context, tx model.Transaction, cart model.Cart, user model.User) (InitiateResult, error) {
	payload := flutterwaveInitiateRequest{
		TxRef:       tx.Ref,
		Amount:      tx.Amount.StringFixed(2),
		Currency:    tx.Currency,
		RedirectURL: f.cfg.RedirectURL,
		Customer: flutterwaveCustomer{
			Email:       user.Email,
			Name:        user.Username,
			PhoneNumber: user.Phone,
		},
		Customization: map[string]string{"title": "Shoppit Payment"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return InitiateResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return InitiateResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return InitiateResult{}, &Error{Provider: f.Name(), Message: "payment initiation failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return InitiateResult{}, &Error{Provider: f.Name(), Message: "reading provider response failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return InitiateResult{}, &Error{
			Provider: f.Name(),
			Message:  fmt.Sprintf("provider returned %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return InitiateResult{}, &ProtocolError{Provider: f.Name(), Message: "provider response is not JSON"}
	}

	return InitiateResult{Ref: tx.Ref, Raw: parsed}, nil
}

type flutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Status   string   `json:"status"`
		Amount   *float64 `json:"amount"`
		Currency string   `json:"currency"`
	} `json:"data"`
}

// Verify は/v3/transactions/{id}/verifyへサーバ間GET。
// 台帳の状態は読みも書きもしない。
func (f *Flutterwave) Verify(ctx context.Context, params CallbackParams) (VerifiedPayment, error) {
	transactionID := params["transaction_id"]
	if transactionID == "" {
		return VerifiedPayment{}, &ProtocolError{Provider: f.Name(), Message: "transaction_id missing"}
	}

	url := fmt.Sprintf("%s/transactions/%s/verify", f.cfg.BaseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return VerifiedPayment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.SecretKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return VerifiedPayment{}, &Error{Provider: f.Name(), Message: "verification request failed", Err: err}
	}
	defer resp.Body.Close()

	var parsed flutterwaveVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return VerifiedPayment{}, &ProtocolError{Provider: f.Name(), Message: "verification response is not JSON"}
	}

	//プロバイダ側の検証が通らなかった（決済不成立ではなく照会失敗）
	if parsed.Status != "success" {
		return VerifiedPayment{
			Succeeded: false,
			Reason:    "Failed to verify your transaction with Flutterwave",
		}, nil
	}

	if parsed.Data == nil || parsed.Data.Amount == nil || parsed.Data.Currency == "" {
		return VerifiedPayment{}, &ProtocolError{Provider: f.Name(), Message: "amount or currency missing in verification response"}
	}

	out := VerifiedPayment{
		Succeeded: parsed.Data.Status == "successful",
		Amount:    decimal.NewFromFloat(*parsed.Data.Amount),
		Currency:  parsed.Data.Currency,
	}
	if !out.Succeeded {
		out.Reason = "Payment was not successful"
	}
	return out, nil
}
