package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditservice "github.com/openlotlabs/torii/internal/audit/service"
	"github.com/openlotlabs/torii/internal/config"
	"github.com/openlotlabs/torii/internal/events"
	"github.com/openlotlabs/torii/internal/payment/adapters"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
)

// methodProviders orders the providers tried for each electronic method.
var methodProviders = map[string][]string{
	paymentdomain.MethodCard: {"stripe", "square"},
	paymentdomain.MethodQR:   {"paypay", "linepay", "rakutenpay"},
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	AuditSvc *auditservice.Service
	Repo     paymentdomain.Repository
	Outbox   *events.Outbox
	Cfg      config.Config
	Adapters *adapters.Registry
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	auditSvc *auditservice.Service
	repo     paymentdomain.Repository
	outbox   *events.Outbox
	adapters *adapters.Registry
	encKey   []byte
}

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

type providerConfigRow struct {
	LotID    snowflake.ID
	Provider string
	Config   datatypes.JSON
}

func NewService(p Params) paymentdomain.Service {
	secret := strings.TrimSpace(p.Cfg.PaymentProviderConfigSecret)
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
		outbox:   p.Outbox,
		adapters: p.Adapters,
		encKey:   key,
	}
}

func (s *Service) ChargeTx(ctx context.Context, tx *gorm.DB, params paymentdomain.ChargeParams) (*paymentdomain.PaymentRecord, error) {
	if params.Amount < 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if params.SessionID == 0 || params.LotID == 0 {
		return nil, paymentdomain.ErrInvalidEvent
	}

	existing, err := s.repo.FindRecordBySession(ctx, tx, params.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, paymentdomain.ErrDuplicateCharge
	}

	now := time.Now().UTC()
	record := &paymentdomain.PaymentRecord{
		ID:              s.genID.Generate(),
		SessionID:       params.SessionID,
		LotID:           params.LotID,
		Amount:          params.Amount,
		DurationMinutes: params.DurationMinutes,
		Method:          params.Method,
		Status:          paymentdomain.ChargeStatusSucceeded,
		Currency:        paymentdomain.CurrencyJPY,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Cash and zero-amount settlements never touch a provider.
	if params.Method != paymentdomain.MethodCash && params.Amount > 0 {
		charge, provider, err := s.createProviderCharge(ctx, params)
		if err != nil {
			return nil, err
		}
		record.Provider = provider
		record.ProviderChargeID = charge.ProviderChargeID
		record.Status = charge.Status
	}

	if err := s.repo.InsertRecord(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := s.outbox.PublishTx(ctx, tx, events.Event{
		LotID: params.LotID,
		Type:  events.EventPaymentRecorded,
		Payload: map[string]any{
			"payment_id": record.ID.String(),
			"session_id": params.SessionID.String(),
			"amount":     record.Amount,
			"method":     record.Method,
			"provider":   record.Provider,
			"status":     record.Status,
		},
		DedupeKey: "payment:" + record.ID.String(),
	}); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *Service) createProviderCharge(ctx context.Context, params paymentdomain.ChargeParams) (*paymentdomain.Charge, string, error) {
	candidates, ok := methodProviders[params.Method]
	if !ok {
		return nil, "", paymentdomain.ErrInvalidMethod
	}

	configs, err := s.lotConfigs(ctx, params.LotID, candidates)
	if err != nil {
		return nil, "", err
	}
	if len(configs) == 0 {
		return nil, "", paymentdomain.ErrProviderNotFound
	}

	var lastErr error
	for _, cfg := range configs {
		decrypted, err := s.decryptConfig(cfg.Config)
		if err != nil {
			lastErr = err
			continue
		}
		adapter, err := s.adapters.NewAdapter(cfg.Provider, paymentdomain.AdapterConfig{
			LotID:    cfg.LotID,
			Provider: cfg.Provider,
			Config:   decrypted,
		})
		if err != nil {
			lastErr = err
			continue
		}

		charge, err := adapter.CreateCharge(ctx, paymentdomain.ChargeRequest{
			SessionToken: params.SessionToken,
			Amount:       params.Amount,
			Currency:     paymentdomain.CurrencyJPY,
			Description:  fmt.Sprintf("Parking fee, %d minutes", params.DurationMinutes),
		})
		if err != nil {
			s.log.Warn("provider charge failed",
				zap.String("provider", cfg.Provider),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if charge.Status == paymentdomain.ChargeStatusPending {
			confirmed, err := adapter.ConfirmCharge(ctx, charge.ProviderChargeID)
			if err != nil {
				_ = adapter.CancelCharge(ctx, charge.ProviderChargeID)
				lastErr = err
				continue
			}
			charge = confirmed
		}
		if charge.Status != paymentdomain.ChargeStatusSucceeded && charge.Status != paymentdomain.ChargeStatusPending {
			lastErr = paymentdomain.ErrChargeFailed
			continue
		}
		return charge, cfg.Provider, nil
	}

	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", paymentdomain.ErrChargeFailed
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	configs, err := s.listActiveConfigs(ctx, provider)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return paymentdomain.ErrProviderNotFound
	}

	event, err := s.matchAdapter(ctx, provider, payload, headers, configs)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}
	if event == nil {
		return paymentdomain.ErrInvalidSignature
	}

	now := time.Now().UTC()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		LotID:           event.LotID,
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		ChargeID:        event.ChargeID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.processEvent(ctx, stored, event); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, now)
}

func (s *Service) processEvent(ctx context.Context, stored *paymentdomain.EventRecord, event *paymentdomain.PaymentEvent) error {
	if stored == nil || event == nil {
		return paymentdomain.ErrInvalidEvent
	}

	var status string
	var action string
	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded:
		status = paymentdomain.ChargeStatusSucceeded
		action = "payment.succeeded"
	case paymentdomain.EventTypeRefunded:
		status = paymentdomain.ChargeStatusRefunded
		action = "payment.refunded"
	case paymentdomain.EventTypePaymentFailed:
		status = paymentdomain.ChargeStatusFailed
		action = "payment.failed"
	default:
		return paymentdomain.ErrInvalidEvent
	}

	if event.ChargeID != "" {
		record, err := s.repo.FindRecordByCharge(ctx, s.db, stored.Provider, event.ChargeID)
		if err != nil {
			return err
		}
		if record != nil {
			if err := s.repo.UpdateRecordStatus(ctx, s.db, record.ID, status); err != nil {
				return err
			}
		}
	}

	return s.writeAuditLog(ctx, action, stored, event)
}

func (s *Service) writeAuditLog(ctx context.Context, action string, stored *paymentdomain.EventRecord, event *paymentdomain.PaymentEvent) error {
	if s.auditSvc == nil {
		return nil
	}
	metadata := map[string]any{
		"provider":          stored.Provider,
		"provider_event_id": stored.ProviderEventID,
		"charge_id":         event.ChargeID,
		"amount":            event.Amount,
		"currency":          strings.ToUpper(strings.TrimSpace(event.Currency)),
		"event_type":        stored.EventType,
		"payment_event_id":  stored.ID.String(),
		"occurred_at":       event.OccurredAt.UTC().Format(time.RFC3339),
		"received_at":       stored.ReceivedAt.UTC().Format(time.RFC3339),
	}

	targetID := stored.ID.String()
	lotID := stored.LotID
	return s.auditSvc.AuditLog(ctx, &lotID, "", nil, action, "payment_event", &targetID, metadata)
}

func (s *Service) listActiveConfigs(ctx context.Context, provider string) ([]providerConfigRow, error) {
	var rows []providerConfigRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT lot_id, provider, config
		 FROM payment_provider_configs
		 WHERE provider = ? AND is_active = TRUE`,
		provider,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) lotConfigs(ctx context.Context, lotID snowflake.ID, providers []string) ([]providerConfigRow, error) {
	var rows []providerConfigRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT lot_id, provider, config
		 FROM payment_provider_configs
		 WHERE lot_id = ? AND provider IN ? AND is_active = TRUE`,
		lotID,
		providers,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ordered := make([]providerConfigRow, 0, len(rows))
	for _, provider := range providers {
		for _, row := range rows {
			if row.Provider == provider {
				ordered = append(ordered, row)
			}
		}
	}
	return ordered, nil
}

func (s *Service) matchAdapter(
	ctx context.Context,
	provider string,
	payload []byte,
	headers http.Header,
	configs []providerConfigRow,
) (*paymentdomain.PaymentEvent, error) {
	var configErr error
	for _, cfg := range configs {
		decrypted, err := s.decryptConfig(cfg.Config)
		if err != nil {
			configErr = err
			continue
		}

		adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
			LotID:    cfg.LotID,
			Provider: provider,
			Config:   decrypted,
		})
		if err != nil {
			configErr = err
			continue
		}

		if err := adapter.Verify(ctx, payload, headers); err != nil {
			if errors.Is(err, paymentdomain.ErrInvalidSignature) {
				continue
			}
			return nil, err
		}

		event, err := adapter.Parse(ctx, payload)
		if err != nil {
			return nil, err
		}
		event.Provider = provider
		event.LotID = cfg.LotID
		if err := validateEvent(event); err != nil {
			return nil, err
		}
		return event, nil
	}

	if configErr != nil {
		return nil, configErr
	}
	return nil, paymentdomain.ErrInvalidSignature
}

func validateEvent(event *paymentdomain.PaymentEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	event.Type = strings.TrimSpace(event.Type)
	if event.Type == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if event.LotID == 0 {
		return paymentdomain.ErrInvalidEvent
	}
	currency := strings.TrimSpace(event.Currency)
	if currency == "" {
		return paymentdomain.ErrInvalidCurrency
	}
	event.Currency = strings.ToUpper(currency)
	if event.OccurredAt.IsZero() {
		return paymentdomain.ErrInvalidEvent
	}
	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded, paymentdomain.EventTypeRefunded:
		if event.Amount <= 0 {
			return paymentdomain.ErrInvalidAmount
		}
	case paymentdomain.EventTypePaymentFailed:
	default:
		return paymentdomain.ErrInvalidEvent
	}
	return nil
}

// decryptConfig opens an AES-GCM sealed config. A plain JSON object is
// accepted when no encryption secret is configured, which keeps local
// and demo setups working without key management.
func (s *Service) decryptConfig(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, paymentdomain.ErrInvalidConfig
	}

	var payload encryptedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if payload.Version == 0 {
		if len(s.encKey) != 0 {
			return nil, paymentdomain.ErrInvalidConfig
		}
		var plain map[string]any
		if err := json.Unmarshal(raw, &plain); err != nil {
			return nil, paymentdomain.ErrInvalidConfig
		}
		return plain, nil
	}
	if payload.Version != 1 {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if len(s.encKey) == 0 {
		return nil, paymentdomain.ErrEncryptionKeyMissing
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return nil, paymentdomain.ErrInvalidConfig
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, paymentdomain.ErrInvalidConfig
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, paymentdomain.ErrInvalidConfig
	}

	var decoded map[string]any
	if err := json.Unmarshal(plain, &decoded); err != nil {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return decoded, nil
}
