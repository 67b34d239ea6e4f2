package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

const linepayDefaultBaseURL = "https://api-pay.line.me"

type LinePayFactory struct{}

func (LinePayFactory) Provider() string { return "linepay" }

func (LinePayFactory) NewAdapter(config domain.AdapterConfig) (domain.Adapter, error) {
	channelID := stringConfig(config.Config, "channel_id")
	channelSecret := stringConfig(config.Config, "channel_secret")
	if channelID == "" || channelSecret == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := stringConfig(config.Config, "base_url")
	if baseURL == "" {
		baseURL = linepayDefaultBaseURL
	}
	return &linepayAdapter{
		channelID:     channelID,
		channelSecret: channelSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        httpClient(config.Config),
	}, nil
}

type linepayAdapter struct {
	channelID     string
	channelSecret string
	baseURL       string
	client        *http.Client
}

type linepayResponse struct {
	ReturnCode string `json:"returnCode"`
	Info       struct {
		TransactionID json.Number `json:"transactionId"`
		PayStatus     string      `json:"payStatus"`
	} `json:"info"`
}

// LINE Pay signs requests with HMAC over channel secret + path + body + nonce.
func (a *linepayAdapter) signedHeaders(path string, body []byte) map[string]string {
	nonce := uuid.NewString()
	message := a.channelSecret + path + string(body) + nonce
	signature := base64.StdEncoding.EncodeToString(hmacSHA256(a.channelSecret, []byte(message)))
	return map[string]string{
		"X-LINE-ChannelId":     a.channelID,
		"X-LINE-Authorization-Nonce": nonce,
		"X-LINE-Authorization": signature,
	}
}

func (a *linepayAdapter) post(ctx context.Context, path string, body map[string]any, out *linepayResponse) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+path, a.signedHeaders(path, encoded), body, out); err != nil {
		return err
	}
	if out != nil && out.ReturnCode != "0000" {
		return domain.ErrChargeFailed
	}
	return nil
}

func (a *linepayAdapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	body := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"orderId":  req.SessionToken,
		"packages": []map[string]any{{
			"id":     "parking",
			"amount": req.Amount,
			"name":   req.Description,
		}},
	}
	var out linepayResponse
	if err := a.post(ctx, "/v3/payments/request", body, &out); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: out.Info.TransactionID.String(),
		Status:           linepayStatus(out.Info.PayStatus),
		Amount:           req.Amount,
		Currency:         strings.ToUpper(req.Currency),
	}, nil
}

func (a *linepayAdapter) ConfirmCharge(ctx context.Context, providerChargeID string) (*domain.Charge, error) {
	path := "/v3/payments/" + providerChargeID + "/confirm"
	body := map[string]any{"currency": domain.CurrencyJPY}
	var out linepayResponse
	if err := a.post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &domain.Charge{
		ProviderChargeID: providerChargeID,
		Status:           domain.ChargeStatusSucceeded,
		Currency:         domain.CurrencyJPY,
	}, nil
}

func (a *linepayAdapter) CancelCharge(ctx context.Context, providerChargeID string) error {
	var out linepayResponse
	return a.post(ctx, "/v3/payments/"+providerChargeID+"/refund", map[string]any{}, &out)
}

func (a *linepayAdapter) GetStatus(ctx context.Context, providerChargeID string) (string, error) {
	path := "/v3/payments/requests/" + providerChargeID + "/check"
	var out linepayResponse
	if err := doJSON(ctx, a.client, http.MethodGet, a.baseURL+path, a.signedHeaders(path, nil), nil, &out); err != nil {
		return "", err
	}
	return linepayStatus(out.Info.PayStatus), nil
}

func (a *linepayAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	header := headers.Get("X-LINE-Signature")
	if header == "" {
		return domain.ErrInvalidSignature
	}
	signature, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	if !verifyHMAC(a.channelSecret, payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *linepayAdapter) Parse(ctx context.Context, payload []byte) (*domain.PaymentEvent, error) {
	var event struct {
		NotificationID string      `json:"notificationId"`
		TransactionID  json.Number `json:"transactionId"`
		PayStatus      string      `json:"payStatus"`
		Amount         int64       `json:"amount"`
		Timestamp      string      `json:"timestamp"`
	}
	if err := unmarshalEvent(payload, &event); err != nil {
		return nil, err
	}

	var eventType string
	switch event.PayStatus {
	case "CAPTURE", "COMPLETE":
		eventType = domain.EventTypePaymentSucceeded
	case "FAIL", "EXPIRE":
		eventType = domain.EventTypePaymentFailed
	case "REFUND":
		eventType = domain.EventTypeRefunded
	default:
		return nil, domain.ErrEventIgnored
	}

	return &domain.PaymentEvent{
		ProviderEventID: event.NotificationID,
		Type:            eventType,
		ChargeID:        event.TransactionID.String(),
		Amount:          event.Amount,
		Currency:        domain.CurrencyJPY,
		OccurredAt:      parseEventTime(event.Timestamp),
	}, nil
}

func linepayStatus(status string) string {
	switch status {
	case "CAPTURE", "COMPLETE":
		return domain.ChargeStatusSucceeded
	case "AUTHORIZATION", "RESERVED":
		return domain.ChargeStatusPending
	case "VOIDED_AUTHORIZATION", "EXPIRED":
		return domain.ChargeStatusCanceled
	case "REFUND":
		return domain.ChargeStatusRefunded
	default:
		return domain.ChargeStatusFailed
	}
}
