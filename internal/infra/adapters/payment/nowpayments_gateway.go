package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/ports/adapter"
	"content-subscription-platform/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*NowPaymentsGateway)(nil)

const (
	productionBaseURL = "https://api.nowpayments.io/v1"
	sandboxBaseURL    = "https://api-sandbox.nowpayments.io/v1"
)

// NowPaymentsGateway implements adapter.PaymentGateway against the NOWPayments
// REST API. It holds credentials only; every call is one outbound request.
type NowPaymentsGateway struct {
	apiKey    string
	ipnSecret []byte
	baseURL   string
	client    *http.Client
}

func NewNowPaymentsGateway(apiKey, ipnSecret string, sandbox bool) (*NowPaymentsGateway, error) {
	if apiKey == "" {
		return nil, errors.New("nowpayments api key empty")
	}
	if ipnSecret == "" {
		return nil, errors.New("nowpayments ipn secret empty")
	}
	base := productionBaseURL
	if sandbox {
		base = sandboxBaseURL
	}
	return &NowPaymentsGateway{
		apiKey:    apiKey,
		ipnSecret: []byte(ipnSecret),
		baseURL:   base,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *NowPaymentsGateway) Name() string { return "nowpayments" }

// CreatePayment opens an invoice with NOWPayments and returns the gateway's
// payment id plus the hosted checkout URL.
func (g *NowPaymentsGateway) CreatePayment(ctx context.Context, orderID, description string, amount float64, currency, callbackURL string) (adapter.CreatedPayment, error) {
	payload := map[string]any{
		"price_amount":      amount,
		"price_currency":    currency,
		"order_id":          orderID,
		"order_description": description,
		"ipn_callback_url":  callbackURL,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/invoice", bytes.NewReader(b))
	if err != nil {
		return adapter.CreatedPayment{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncGatewayRequest("create", "unavailable")
		return adapter.CreatedPayment{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if err := classifyStatus("create", resp); err != nil {
		return adapter.CreatedPayment{}, err
	}

	var out struct {
		PaymentID     json.Number `json:"payment_id"`
		ID            json.Number `json:"id"`
		PayAddress    string      `json:"pay_address"`
		PayCurrency   string      `json:"pay_currency"`
		PayAmount     float64     `json:"pay_amount"`
		InvoiceURL    string      `json:"invoice_url"`
		PaymentStatus string      `json:"payment_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.CreatedPayment{}, fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
	}
	id := out.PaymentID.String()
	if id == "" {
		id = out.ID.String()
	}
	if id == "" {
		return adapter.CreatedPayment{}, fmt.Errorf("%w: response carried no payment id", domain.ErrGatewayRejected)
	}
	status := out.PaymentStatus
	if status == "" {
		status = "waiting"
	}
	metrics.IncGatewayRequest("create", "ok")
	return adapter.CreatedPayment{
		PaymentID:   id,
		PayAddress:  out.PayAddress,
		PayCurrency: out.PayCurrency,
		PayAmount:   out.PayAmount,
		PaymentURL:  out.InvoiceURL,
		Status:      status,
	}, nil
}

// FetchStatus pulls the current payment state by gateway id.
func (g *NowPaymentsGateway) FetchStatus(ctx context.Context, paymentID string) (adapter.StatusReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payment/"+paymentID, nil)
	if err != nil {
		return adapter.StatusReport{}, err
	}
	req.Header.Set("x-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncGatewayRequest("status", "unavailable")
		return adapter.StatusReport{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if err := classifyStatus("status", resp); err != nil {
		return adapter.StatusReport{}, err
	}

	var out struct {
		PaymentStatus string  `json:"payment_status"`
		ActuallyPaid  float64 `json:"actually_paid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.StatusReport{}, fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
	}
	metrics.IncGatewayRequest("status", "ok")
	return adapter.StatusReport{Status: out.PaymentStatus, ActuallyPaid: out.ActuallyPaid}, nil
}

// VerifyCallback checks the IPN signature against this gateway's shared secret.
func (g *NowPaymentsGateway) VerifyCallback(signature string, rawBody []byte) bool {
	return VerifySignature(signature, rawBody, g.ipnSecret)
}

// VerifySignature recomputes the HMAC-SHA512 of the exact raw callback body
// and compares it to the supplied hex signature in constant time.
func VerifySignature(signature string, rawBody, secret []byte) bool {
	if signature == "" || len(secret) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// classifyStatus maps gateway HTTP failures onto the domain taxonomy:
// 5xx is transient, 4xx means our request was bad.
func classifyStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		metrics.IncGatewayRequest(op, "unavailable")
		return fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	default:
		metrics.IncGatewayRequest(op, "rejected")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: http %d: %s", domain.ErrGatewayRejected, resp.StatusCode, bytes.TrimSpace(body))
	}
}
