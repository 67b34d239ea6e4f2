package adapters

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

const stripeDefaultBaseURL = "https://api.stripe.com/v1"

type StripeFactory struct{}

func (StripeFactory) Provider() string { return "stripe" }

func (StripeFactory) NewAdapter(config domain.AdapterConfig) (domain.Adapter, error) {
	secretKey := stringConfig(config.Config, "secret_key")
	if secretKey == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := stringConfig(config.Config, "base_url")
	if baseURL == "" {
		baseURL = stripeDefaultBaseURL
	}
	return &stripeAdapter{
		secretKey:     secretKey,
		webhookSecret: stringConfig(config.Config, "webhook_secret"),
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        httpClient(config.Config),
	}, nil
}

type stripeAdapter struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

type stripeIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Stripe's API is form encoded, not JSON.
func (a *stripeAdapter) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+a.secretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return domain.ErrChargeFailed
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *stripeAdapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("description", req.Description)
	form.Set("metadata[session_token]", req.SessionToken)
	form.Set("confirm", "true")

	var intent stripeIntent
	if err := a.postForm(ctx, "/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: intent.ID,
		Status:           stripeStatus(intent.Status),
		Amount:           intent.Amount,
		Currency:         strings.ToUpper(intent.Currency),
	}, nil
}

func (a *stripeAdapter) ConfirmCharge(ctx context.Context, providerChargeID string) (*domain.Charge, error) {
	var intent stripeIntent
	if err := a.postForm(ctx, "/payment_intents/"+providerChargeID+"/confirm", url.Values{}, &intent); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: intent.ID,
		Status:           stripeStatus(intent.Status),
		Amount:           intent.Amount,
		Currency:         strings.ToUpper(intent.Currency),
	}, nil
}

func (a *stripeAdapter) CancelCharge(ctx context.Context, providerChargeID string) error {
	return a.postForm(ctx, "/payment_intents/"+providerChargeID+"/cancel", url.Values{}, nil)
}

func (a *stripeAdapter) GetStatus(ctx context.Context, providerChargeID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/payment_intents/"+providerChargeID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", domain.ErrChargeFailed
	}
	var intent stripeIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return "", err
	}
	return stripeStatus(intent.Status), nil
}

// Verify checks the Stripe-Signature header: t=<unix>,v1=<hmac hex> over
// "<t>.<payload>" with the webhook secret.
func (a *stripeAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return domain.ErrInvalidConfig
	}
	header := headers.Get("Stripe-Signature")
	if header == "" {
		return domain.ErrInvalidSignature
	}

	var timestamp string
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			decoded, err := hex.DecodeString(value)
			if err == nil {
				signatures = append(signatures, decoded)
			}
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return domain.ErrInvalidSignature
	}

	signed := append([]byte(timestamp+"."), payload...)
	for _, signature := range signatures {
		if verifyHMAC(a.webhookSecret, signed, signature) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func (a *stripeAdapter) Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var event struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object stripeIntent `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	var eventType string
	switch event.Type {
	case "payment_intent.succeeded":
		eventType = domain.EventTypePaymentSucceeded
	case "payment_intent.payment_failed":
		eventType = domain.EventTypePaymentFailed
	case "charge.refunded":
		eventType = domain.EventTypeRefunded
	default:
		return nil, domain.ErrEventIgnored
	}

	occurredAt := time.Unix(event.Created, 0).UTC()
	return &domain.PaymentEvent{
		ProviderEventID: event.ID,
		Type:            eventType,
		ChargeID:        event.Data.Object.ID,
		Amount:          event.Data.Object.Amount,
		Currency:        strings.ToUpper(event.Data.Object.Currency),
		OccurredAt:      occurredAt,
	}, nil
}

func stripeStatus(status string) string {
	switch status {
	case "succeeded":
		return domain.ChargeStatusSucceeded
	case "canceled":
		return domain.ChargeStatusCanceled
	case "requires_payment_method", "requires_confirmation", "requires_action", "processing":
		return domain.ChargeStatusPending
	default:
		return domain.ChargeStatusFailed
	}
}
