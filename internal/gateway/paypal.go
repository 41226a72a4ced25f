package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
)

const (
	paypalSandboxBaseURL = "https://api.sandbox.paypal.com"
	paypalLiveBaseURL    = "https://api.paypal.com"
)

type PayPalConfig struct {
	// "sandbox" か "live"
	Mode         string
	ClientID     string
	ClientSecret string
	//テストではhttptestのURLに差し替える
	BaseURL string
	//コールバック/キャンセルのリダイレクト先のベースURL
	ReturnBase string
}

// PayPal はアダプタB（承認コード型）。
// approval URLへ誘導し、戻ってきたpayer idでexecuteする。
type PayPal struct {
	cfg    PayPalConfig
	client *http.Client
}

func NewPayPal(cfg PayPalConfig, client *http.Client) *PayPal {
	if cfg.BaseURL == "" {
		if cfg.Mode == "live" {
			cfg.BaseURL = paypalLiveBaseURL
		} else {
			cfg.BaseURL = paypalSandboxBaseURL
		}
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &PayPal{cfg: cfg, client: client}
}

func (p *PayPal) Name() string { return "paypal" }

func (p *PayPal) Currency() string { return "USD" }

func (p *PayPal) RequiredCallbackParams() []string {
	return []string{"paymentId", "PayerID", "tx_ref"}
}

// プロバイダは浮動小数の丸め誤差を返すことがある
func (p *PayPal) AmountTolerance() decimal.Decimal { return decimal.NewFromFloat(0.01) }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// client_credentialsでアクセストークンを取る
func (p *PayPal) token(ctx context.Context) (string, error) {
	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &Error{Provider: p.Name(), Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &Error{Provider: p.Name(), Message: fmt.Sprintf("token request returned %d: %s", resp.StatusCode, string(raw))}
	}

	var parsed paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ProtocolError{Provider: p.Name(), Message: "token response is not JSON"}
	}
	if parsed.AccessToken == "" {
		return "", &ProtocolError{Provider: p.Name(), Message: "access_token missing"}
	}
	return parsed.AccessToken, nil
}

type paypalAmount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type paypalItem struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type paypalTransaction struct {
	ItemList struct {
		Items []paypalItem `json:"items"`
	} `json:"item_list"`
	Amount      paypalAmount `json:"amount"`
	Description string       `json:"description"`
	Custom      string       `json:"custom"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalPayment struct {
	ID           string              `json:"id"`
	State        string              `json:"state"`
	Links        []paypalLink        `json:"links"`
	Transactions []paypalTransaction `json:"transactions"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *PayPal) doJSON(ctx context.Context, method string, url string, token string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, &Error{Provider: p.Name(), Message: "provider request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Provider: p.Name(), Message: "reading provider response failed", Err: err}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, &ProtocolError{Provider: p.Name(), Message: "provider response is not JSON"}
		}
	}
	return resp.StatusCode, nil
}

// Initiate はpaymentオブジェクトを作り、approval URLを返す。
// 明細はカート合計と税を別itemとして積む。
func (p *PayPal) Initiate(ctx context.Context, tx model.Transaction, cart model.Cart, user model.User) (InitiateResult, error) {
	token, err := p.token(ctx)
	if err != nil {
		return InitiateResult{}, err
	}

	tax := model.TaxAmount
	subtotal := tx.Amount.Sub(tax)

	payment := map[string]interface{}{
		"intent": "sale",
		"payer":  map[string]string{"payment_method": "paypal"},
		"redirect_urls": map[string]string{
			"return_url": fmt.Sprintf("%s/paypal-callback?tx_ref=%s", p.cfg.ReturnBase, tx.Ref),
			"cancel_url": fmt.Sprintf("%s/payment-page?status=cancelled&tx_ref=%s", p.cfg.ReturnBase, tx.Ref),
		},
		"transactions": []map[string]interface{}{{
			"item_list": map[string]interface{}{
				"items": []paypalItem{
					{
						Name:     "Order " + cart.CartCode,
						SKU:      cart.CartCode,
						Price:    subtotal.StringFixed(2),
						Currency: tx.Currency,
						Quantity: 1,
					},
					{
						Name:     "Tax",
						SKU:      "TAX",
						Price:    tax.StringFixed(2),
						Currency: tx.Currency,
						Quantity: 1,
					},
				},
			},
			"amount": paypalAmount{
				Total:    tx.Amount.StringFixed(2),
				Currency: tx.Currency,
			},
			"description": "Payment for Shoppit Order " + cart.CartCode,
			"custom":      tx.Ref,
		}},
	}

	var created paypalPayment
	status, err := p.doJSON(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/payments/payment", token, payment, &created)
	if err != nil {
		return InitiateResult{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		msg := fmt.Sprintf("payment creation returned %d", status)
		if created.Error != nil {
			msg = created.Error.Message
		}
		return InitiateResult{}, &Error{Provider: p.Name(), Message: msg}
	}

	approvalURL := ""
	for _, link := range created.Links {
		if link.Rel == "approval_url" {
			approvalURL = link.Href
			break
		}
	}
	if approvalURL == "" {
		return InitiateResult{}, &ProtocolError{Provider: p.Name(), Message: "approval URL not found"}
	}

	return InitiateResult{
		RedirectURL: approvalURL,
		PaymentID:   created.ID,
		Ref:         tx.Ref,
	}, nil
}

// Verify はpaymentを照会してpayer idでexecuteし、
// プロバイダが報告したstate/amount/currencyを返す。
func (p *PayPal) Verify(ctx context.Context, params CallbackParams) (VerifiedPayment, error) {
	paymentID := params["paymentId"]
	payerID := params["PayerID"]
	if paymentID == "" || payerID == "" {
		return VerifiedPayment{}, &ProtocolError{Provider: p.Name(), Message: "paymentId or PayerID missing"}
	}

	token, err := p.token(ctx)
	if err != nil {
		return VerifiedPayment{}, err
	}

	//paymentの存在確認
	var found paypalPayment
	status, err := p.doJSON(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/payments/payment/"+paymentID, token, nil, &found)
	if err != nil {
		return VerifiedPayment{}, err
	}
	if status == http.StatusNotFound {
		return VerifiedPayment{}, &Error{Provider: p.Name(), Message: "payment not found"}
	}
	if status != http.StatusOK {
		return VerifiedPayment{}, &Error{Provider: p.Name(), Message: fmt.Sprintf("payment lookup returned %d", status)}
	}

	//executeで決済を確定する
	executeBody := map[string]string{"payer_id": payerID}
	var executed paypalPayment
	status, err = p.doJSON(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/payments/payment/"+paymentID+"/execute", token, executeBody, &executed)
	if err != nil {
		return VerifiedPayment{}, err
	}
	if status != http.StatusOK {
		reason := "Unable to complete payment"
		if executed.Error != nil && executed.Error.Message != "" {
			reason = executed.Error.Message
		}
		return VerifiedPayment{Succeeded: false, Reason: reason}, nil
	}

	if len(executed.Transactions) == 0 {
		return VerifiedPayment{}, &ProtocolError{Provider: p.Name(), Message: "transactions missing in execute response"}
	}

	amountStr := executed.Transactions[0].Amount.Total
	currency := executed.Transactions[0].Amount.Currency
	if amountStr == "" || currency == "" {
		return VerifiedPayment{}, &ProtocolError{Provider: p.Name(), Message: "amount or currency missing in execute response"}
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return VerifiedPayment{}, &ProtocolError{Provider: p.Name(), Message: "amount is not numeric"}
	}

	out := VerifiedPayment{
		Succeeded: executed.State == "approved",
		Amount:    amount,
		Currency:  currency,
	}
	if !out.Succeeded {
		out.Reason = "Payment was not approved"
	}
	return out, nil
}
