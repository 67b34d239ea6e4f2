package adapters

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

const squareDefaultBaseURL = "https://connect.squareup.com"

type SquareFactory struct{}

func (SquareFactory) Provider() string { return "square" }

func (SquareFactory) NewAdapter(config domain.AdapterConfig) (domain.Adapter, error) {
	accessToken := stringConfig(config.Config, "access_token")
	if accessToken == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := stringConfig(config.Config, "base_url")
	if baseURL == "" {
		baseURL = squareDefaultBaseURL
	}
	return &squareAdapter{
		accessToken:  accessToken,
		locationID:   stringConfig(config.Config, "location_id"),
		signatureKey: stringConfig(config.Config, "webhook_signature_key"),
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       httpClient(config.Config),
	}, nil
}

type squareAdapter struct {
	accessToken  string
	locationID   string
	signatureKey string
	baseURL      string
	client       *http.Client
}

type squarePayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountMoney struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"amount_money"`
}

func (a *squareAdapter) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.accessToken}
}

func (a *squareAdapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	body := map[string]any{
		"idempotency_key": uuid.NewString(),
		"amount_money": map[string]any{
			"amount":   req.Amount,
			"currency": req.Currency,
		},
		"location_id": a.locationID,
		"note":        req.Description,
		"reference_id": req.SessionToken,
	}
	var out struct {
		Payment squarePayment `json:"payment"`
	}
	if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v2/payments", a.headers(), body, &out); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.Payment.ID,
		Status:           squareStatus(out.Payment.Status),
		Amount:           out.Payment.AmountMoney.Amount,
		Currency:         strings.ToUpper(out.Payment.AmountMoney.Currency),
	}, nil
}

func (a *squareAdapter) ConfirmCharge(ctx context.Context, providerChargeID string) (*domain.Charge, error) {
	var out struct {
		Payment squarePayment `json:"payment"`
	}
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v2/payments/"+providerChargeID+"/complete", a.headers(), map[string]any{}, &out)
	if err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.Payment.ID,
		Status:           squareStatus(out.Payment.Status),
		Amount:           out.Payment.AmountMoney.Amount,
		Currency:         strings.ToUpper(out.Payment.AmountMoney.Currency),
	}, nil
}

func (a *squareAdapter) CancelCharge(ctx context.Context, providerChargeID string) error {
	return doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/v2/payments/"+providerChargeID+"/cancel", a.headers(), map[string]any{}, nil)
}

func (a *squareAdapter) GetStatus(ctx context.Context, providerChargeID string) (string, error) {
	var out struct {
		Payment squarePayment `json:"payment"`
	}
	err := doJSON(ctx, a.client, http.MethodGet, a.baseURL+"/v2/payments/"+providerChargeID, a.headers(), nil, &out)
	if err != nil {
		return "", err
	}
	return squareStatus(out.Payment.Status), nil
}

func (a *squareAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.signatureKey == "" {
		return domain.ErrInvalidConfig
	}
	header := headers.Get("X-Square-HmacSha256-Signature")
	if header == "" {
		return domain.ErrInvalidSignature
	}
	signature, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	if !verifyHMAC(a.signatureKey, payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *squareAdapter) Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var event struct {
		EventID   string `json:"event_id"`
		Type      string `json:"type"`
		CreatedAt string `json:"created_at"`
		Data      struct {
			Object struct {
				Payment squarePayment `json:"payment"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := unmarshalEvent(payload, &event); err != nil {
		return nil, err
	}
	if event.Type != "payment.updated" {
		return nil, domain.ErrEventIgnored
	}

	payment := event.Data.Object.Payment
	var eventType string
	switch payment.Status {
	case "COMPLETED":
		eventType = domain.EventTypePaymentSucceeded
	case "FAILED", "CANCELED":
		eventType = domain.EventTypePaymentFailed
	default:
		return nil, domain.ErrEventIgnored
	}

	return &domain.PaymentEvent{
		ProviderEventID: event.EventID,
		Type:            eventType,
		ChargeID:        payment.ID,
		Amount:          payment.AmountMoney.Amount,
		Currency:        strings.ToUpper(payment.AmountMoney.Currency),
		OccurredAt:      parseEventTime(event.CreatedAt),
	}, nil
}

func squareStatus(status string) string {
	switch status {
	case "COMPLETED":
		return domain.ChargeStatusSucceeded
	case "APPROVED", "PENDING":
		return domain.ChargeStatusPending
	case "CANCELED":
		return domain.ChargeStatusCanceled
	default:
		return domain.ChargeStatusFailed
	}
}
