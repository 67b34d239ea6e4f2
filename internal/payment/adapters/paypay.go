package adapters

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

const paypayDefaultBaseURL = "https://api.paypay.ne.jp"

type PayPayFactory struct{}

func (PayPayFactory) Provider() string { return "paypay" }

func (PayPayFactory) NewAdapter(config domain.AdapterConfig) (domain.Adapter, error) {
	apiKey := stringConfig(config.Config, "api_key")
	apiSecret := stringConfig(config.Config, "api_secret")
	if apiKey == "" || apiSecret == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := stringConfig(config.Config, "base_url")
	if baseURL == "" {
		baseURL = paypayDefaultBaseURL
	}
	return &paypayAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		merchantID: stringConfig(config.Config, "merchant_id"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     httpClient(config.Config),
	}, nil
}

type paypayAdapter struct {
	apiKey     string
	apiSecret  string
	merchantID string
	baseURL    string
	client     *http.Client
}

type paypayPayment struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
	Amount    struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

func (a *paypayAdapter) headers() map[string]string {
	return map[string]string{
		"X-API-KEY":             a.apiKey,
		"X-ASSUME-MERCHANT":     a.merchantID,
	}
}

func (a *paypayAdapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	body := map[string]any{
		"merchantPaymentId": uuid.NewString(),
		"amount": map[string]any{
			"amount":   req.Amount,
			"currency": req.Currency,
		},
		"orderDescription": req.Description,
		"metadata":         map[string]any{"session_token": req.SessionToken},
	}
	var out struct {
		Data paypayPayment `json:"data"`
	}
	if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v2/payments", a.headers(), body, &out); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.Data.PaymentID,
		Status:           paypayStatus(out.Data.Status),
		Amount:           out.Data.Amount.Amount,
		Currency:         strings.ToUpper(out.Data.Amount.Currency),
	}, nil
}

func (a *paypayAdapter) ConfirmCharge(ctx context.Context, providerChargeID string) (*domain.Charge, error) {
	var out struct {
		Data paypayPayment `json:"data"`
	}
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v2/payments/"+providerChargeID+"/capture", a.headers(), map[string]any{}, &out)
	if err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.Data.PaymentID,
		Status:           paypayStatus(out.Data.Status),
		Amount:           out.Data.Amount.Amount,
		Currency:         strings.ToUpper(out.Data.Amount.Currency),
	}, nil
}

func (a *paypayAdapter) CancelCharge(ctx context.Context, providerChargeID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/v2/payments/"+providerChargeID, nil)
	if err != nil {
		return err
	}
	for key, value := range a.headers() {
		req.Header.Set(key, value)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return domain.ErrChargeFailed
	}
	return nil
}

func (a *paypayAdapter) GetStatus(ctx context.Context, providerChargeID string) (string, error) {
	var out struct {
		Data paypayPayment `json:"data"`
	}
	err := doJSON(ctx, a.client, http.MethodGet, a.baseURL+"/v2/payments/"+providerChargeID, a.headers(), nil, &out)
	if err != nil {
		return "", err
	}
	return paypayStatus(out.Data.Status), nil
}

func (a *paypayAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	header := headers.Get("X-PayPay-Signature")
	if header == "" {
		return domain.ErrInvalidSignature
	}
	signature, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	if !verifyHMAC(a.apiSecret, payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *paypayAdapter) Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var event struct {
		NotificationID string `json:"notification_id"`
		State          string `json:"state"`
		PaymentID      string `json:"paymentId"`
		Amount         int64  `json:"amount"`
		CreatedAt      string `json:"createdAt"`
	}
	if err := unmarshalEvent(payload, &event); err != nil {
		return nil, err
	}

	var eventType string
	switch event.State {
	case "COMPLETED":
		eventType = domain.EventTypePaymentSucceeded
	case "FAILED", "EXPIRED":
		eventType = domain.EventTypePaymentFailed
	case "REFUNDED":
		eventType = domain.EventTypeRefunded
	default:
		return nil, domain.ErrEventIgnored
	}

	return &domain.PaymentEvent{
		ProviderEventID: event.NotificationID,
		Type:            eventType,
		ChargeID:        event.PaymentID,
		Amount:          event.Amount,
		Currency:        domain.CurrencyJPY,
		OccurredAt:      parseEventTime(event.CreatedAt),
	}, nil
}

func paypayStatus(status string) string {
	switch status {
	case "COMPLETED":
		return domain.ChargeStatusSucceeded
	case "CREATED", "AUTHORIZED":
		return domain.ChargeStatusPending
	case "CANCELED", "EXPIRED":
		return domain.ChargeStatusCanceled
	case "REFUNDED":
		return domain.ChargeStatusRefunded
	default:
		return domain.ChargeStatusFailed
	}
}
