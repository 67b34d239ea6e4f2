package adapters

import (
	"context"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

const rakutenpayDefaultBaseURL = "https://api.pay.rakuten.co.jp"

type RakutenPayFactory struct{}

func (RakutenPayFactory) Provider() string { return "rakutenpay" }

func (RakutenPayFactory) NewAdapter(config domain.AdapterConfig) (domain.Adapter, error) {
	serviceSecret := stringConfig(config.Config, "service_secret")
	licenseKey := stringConfig(config.Config, "license_key")
	if serviceSecret == "" || licenseKey == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := stringConfig(config.Config, "base_url")
	if baseURL == "" {
		baseURL = rakutenpayDefaultBaseURL
	}
	return &rakutenpayAdapter{
		serviceSecret: serviceSecret,
		licenseKey:    licenseKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        httpClient(config.Config),
	}, nil
}

type rakutenpayAdapter struct {
	serviceSecret string
	licenseKey    string
	baseURL       string
	client        *http.Client
}

type rakutenpayCharge struct {
	ChargeID string `json:"chargeId"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (a *rakutenpayAdapter) headers() map[string]string {
	return map[string]string{
		"X-Service-Secret": a.serviceSecret,
		"X-License-Key":    a.licenseKey,
	}
}

func (a *rakutenpayAdapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	body := map[string]any{
		"orderId":  uuid.NewString(),
		"amount":   req.Amount,
		"currency": req.Currency,
		"remarks":  req.Description,
		"metadata": map[string]any{"session_token": req.SessionToken},
	}
	var out rakutenpayCharge
	if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v1/charges", a.headers(), body, &out); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.ChargeID,
		Status:           rakutenpayStatus(out.Status),
		Amount:           out.Amount,
		Currency:         strings.ToUpper(out.Currency),
	}, nil
}

func (a *rakutenpayAdapter) ConfirmCharge(ctx context.Context, providerChargeID string) (*domain.Charge, error) {
	var out rakutenpayCharge
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v1/charges/"+providerChargeID+"/capture", a.headers(), map[string]any{}, &out)
	if err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.ChargeID,
		Status:           rakutenpayStatus(out.Status),
		Amount:           out.Amount,
		Currency:         strings.ToUpper(out.Currency),
	}, nil
}

func (a *rakutenpayAdapter) CancelCharge(ctx context.Context, providerChargeID string) error {
	return doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v1/charges/"+providerChargeID+"/cancel", a.headers(), map[string]any{}, nil)
}

func (a *rakutenpayAdapter) GetStatus(ctx context.Context, providerChargeID string) (string, error) {
	var out rakutenpayCharge
	err := doJSON(ctx, a.client, http.MethodGet, a.baseURL+"/v1/charges/"+providerChargeID, a.headers(), nil, &out)
	if err != nil {
		return "", err
	}
	return rakutenpayStatus(out.Status), nil
}

func (a *rakutenpayAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	header := headers.Get("X-Rakuten-Signature")
	if header == "" {
		return domain.ErrInvalidSignature
	}
	signature, err := hex.DecodeString(header)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	if !verifyHMAC(a.serviceSecret, payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *rakutenpayAdapter) Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var event struct {
		EventID    string           `json:"eventId"`
		EventType  string           `json:"eventType"`
		OccurredAt string           `json:"occurredAt"`
		Charge     rakutenpayCharge `json:"charge"`
	}
	if err := unmarshalEvent(payload, &event); err != nil {
		return nil, err
	}

	var eventType string
	switch event.EventType {
	case "charge.captured":
		eventType = domain.EventTypePaymentSucceeded
	case "charge.failed":
		eventType = domain.EventTypePaymentFailed
	case "charge.refunded":
		eventType = domain.EventTypeRefunded
	default:
		return nil, domain.ErrEventIgnored
	}

	currency := strings.ToUpper(event.Charge.Currency)
	if currency == "" {
		currency = domain.CurrencyJPY
	}
	return &domain.PaymentEvent{
		ProviderEventID: event.EventID,
		Type:            eventType,
		ChargeID:        event.Charge.ChargeID,
		Amount:          event.Charge.Amount,
		Currency:        currency,
		OccurredAt:      parseEventTime(event.OccurredAt),
	}, nil
}

func rakutenpayStatus(status string) string {
	switch status {
	case "captured":
		return domain.ChargeStatusSucceeded
	case "authorized", "pending":
		return domain.ChargeStatusPending
	case "canceled":
		return domain.ChargeStatusCanceled
	case "refunded":
		return domain.ChargeStatusRefunded
	default:
		return domain.ChargeStatusFailed
	}
}
