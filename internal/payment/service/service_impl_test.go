package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openlotlabs/torii/internal/events"
	"github.com/openlotlabs/torii/internal/migration"
	"github.com/openlotlabs/torii/internal/payment/adapters"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
	"github.com/openlotlabs/torii/internal/payment/repository"
)

type fakeAdapter struct {
	chargeStatus string
	verifyErr    error
	event        *paymentdomain.PaymentEvent
	created      int
}

func (a *fakeAdapter) CreateCharge(ctx context.Context, req paymentdomain.ChargeRequest) (*paymentdomain.Charge, error) {
	a.created++
	return &paymentdomain.Charge{
		ProviderChargeID: fmt.Sprintf("ch_%d", a.created),
		Status:           a.chargeStatus,
		Amount:           req.Amount,
		Currency:         req.Currency,
	}, nil
}

func (a *fakeAdapter) ConfirmCharge(ctx context.Context, providerChargeID string) (*paymentdomain.Charge, error) {
	return &paymentdomain.Charge{
		ProviderChargeID: providerChargeID,
		Status:           paymentdomain.ChargeStatusSucceeded,
	}, nil
}

func (a *fakeAdapter) CancelCharge(ctx context.Context, providerChargeID string) error { return nil }

func (a *fakeAdapter) GetStatus(ctx context.Context, providerChargeID string) (string, error) {
	return a.chargeStatus, nil
}

func (a *fakeAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return a.verifyErr
}

func (a *fakeAdapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	if a.event == nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	copied := *a.event
	return &copied, nil
}

type fakeFactory struct {
	provider string
	adapter  *fakeAdapter
}

func (f *fakeFactory) Provider() string { return f.provider }

func (f *fakeFactory) NewAdapter(config paymentdomain.AdapterConfig) (paymentdomain.Adapter, error) {
	return f.adapter, nil
}

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func newPaymentTestService(t *testing.T, db *gorm.DB, registry *adapters.Registry) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	return &Service{
		db:       db,
		log:      zap.NewNop(),
		genID:    node,
		repo:     repository.Provide(),
		outbox:   events.NewOutbox(db, node),
		adapters: registry,
	}
}

func insertProviderConfig(t *testing.T, db *gorm.DB, lotID snowflake.ID, provider string) {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	cfg := paymentdomain.ProviderConfig{
		ID:       node.Generate(),
		LotID:    lotID,
		Provider: provider,
		Config:   datatypes.JSON(`{"secret_key":"sk_test"}`),
		IsActive: true,
	}
	if err := db.Create(&cfg).Error; err != nil {
		t.Fatalf("create provider config: %v", err)
	}
}

func TestChargeTxCashSettlesImmediately(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc := newPaymentTestService(t, db, adapters.NewRegistry())

	record, err := svc.ChargeTx(context.Background(), db, paymentdomain.ChargeParams{
		LotID:           100,
		SessionID:       200,
		SessionToken:    "tok-cash",
		Amount:          900,
		DurationMinutes: 180,
		Method:          paymentdomain.MethodCash,
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if record.Status != paymentdomain.ChargeStatusSucceeded {
		t.Fatalf("expected succeeded, got %q", record.Status)
	}
	if record.Provider != "" {
		t.Fatalf("cash must not touch a provider, got %q", record.Provider)
	}
}

func TestChargeTxZeroAmountSkipsProvider(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc := newPaymentTestService(t, db, adapters.NewRegistry())

	record, err := svc.ChargeTx(context.Background(), db, paymentdomain.ChargeParams{
		LotID:        100,
		SessionID:    201,
		SessionToken: "tok-zero",
		Amount:       0,
		Method:       paymentdomain.MethodCard,
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if record.Status != paymentdomain.ChargeStatusSucceeded {
		t.Fatalf("expected succeeded, got %q", record.Status)
	}
}

func TestChargeTxRejectsSecondCharge(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc := newPaymentTestService(t, db, adapters.NewRegistry())

	params := paymentdomain.ChargeParams{
		LotID:        100,
		SessionID:    202,
		SessionToken: "tok-dup",
		Amount:       300,
		Method:       paymentdomain.MethodCash,
	}
	if _, err := svc.ChargeTx(context.Background(), db, params); err != nil {
		t.Fatalf("first charge: %v", err)
	}
	_, err := svc.ChargeTx(context.Background(), db, params)
	if !errors.Is(err, paymentdomain.ErrDuplicateCharge) {
		t.Fatalf("expected ErrDuplicateCharge, got %v", err)
	}
}

func TestChargeTxUsesConfiguredProvider(t *testing.T) {
	db := setupPaymentTestDB(t)
	adapter := &fakeAdapter{chargeStatus: paymentdomain.ChargeStatusSucceeded}
	registry := adapters.NewRegistry(&fakeFactory{provider: "stripe", adapter: adapter})
	svc := newPaymentTestService(t, db, registry)

	insertProviderConfig(t, db, 100, "stripe")

	record, err := svc.ChargeTx(context.Background(), db, paymentdomain.ChargeParams{
		LotID:           100,
		SessionID:       203,
		SessionToken:    "tok-card",
		Amount:          600,
		DurationMinutes: 120,
		Method:          paymentdomain.MethodCard,
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if record.Provider != "stripe" {
		t.Fatalf("expected stripe, got %q", record.Provider)
	}
	if record.ProviderChargeID == "" {
		t.Fatal("expected a provider charge id")
	}
	if adapter.created != 1 {
		t.Fatalf("expected one provider call, got %d", adapter.created)
	}
}

func TestChargeTxNoProviderConfigured(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc := newPaymentTestService(t, db, adapters.NewRegistry())

	_, err := svc.ChargeTx(context.Background(), db, paymentdomain.ChargeParams{
		LotID:        100,
		SessionID:    204,
		SessionToken: "tok-none",
		Amount:       300,
		Method:       paymentdomain.MethodCard,
	})
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestIngestWebhookProcessesOnce(t *testing.T) {
	db := setupPaymentTestDB(t)
	adapter := &fakeAdapter{
		chargeStatus: paymentdomain.ChargeStatusSucceeded,
		event: &paymentdomain.PaymentEvent{
			ProviderEventID: "evt_1",
			Type:            paymentdomain.EventTypePaymentSucceeded,
			ChargeID:        "ch_1",
			Amount:          600,
			Currency:        "jpy",
			OccurredAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}
	registry := adapters.NewRegistry(&fakeFactory{provider: "stripe", adapter: adapter})
	svc := newPaymentTestService(t, db, registry)

	insertProviderConfig(t, db, 100, "stripe")

	record := paymentdomain.PaymentRecord{
		ID:               svc.genID.Generate(),
		SessionID:        205,
		LotID:            100,
		Amount:           600,
		DurationMinutes:  120,
		Method:           paymentdomain.MethodCard,
		Provider:         "stripe",
		ProviderChargeID: "ch_1",
		Status:           paymentdomain.ChargeStatusPending,
		Currency:         paymentdomain.CurrencyJPY,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create record: %v", err)
	}

	payload, _ := json.Marshal(map[string]any{"id": "evt_1"})
	if err := svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var updated paymentdomain.PaymentRecord
	if err := db.First(&updated, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if updated.Status != paymentdomain.ChargeStatusSucceeded {
		t.Fatalf("expected succeeded, got %q", updated.Status)
	}

	err := svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{})
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}
}

func TestIngestWebhookRejectsBadSignature(t *testing.T) {
	db := setupPaymentTestDB(t)
	adapter := &fakeAdapter{verifyErr: paymentdomain.ErrInvalidSignature}
	registry := adapters.NewRegistry(&fakeFactory{provider: "stripe", adapter: adapter})
	svc := newPaymentTestService(t, db, registry)

	insertProviderConfig(t, db, 100, "stripe")

	err := svc.IngestWebhook(context.Background(), "stripe", []byte(`{}`), http.Header{})
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestIngestWebhookUnknownProvider(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc := newPaymentTestService(t, db, adapters.NewRegistry())

	err := svc.IngestWebhook(context.Background(), "unknown", []byte(`{}`), http.Header{})
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestDecryptConfigPlaintextWithoutKey(t *testing.T) {
	svc := &Service{}
	decoded, err := svc.decryptConfig(datatypes.JSON(`{"secret_key":"sk_test"}`))
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if decoded["secret_key"] != "sk_test" {
		t.Fatalf("unexpected config: %+v", decoded)
	}
}

func TestDecryptConfigPlaintextRefusedWithKey(t *testing.T) {
	svc := &Service{encKey: make([]byte, 32)}
	_, err := svc.decryptConfig(datatypes.JSON(`{"secret_key":"sk_test"}`))
	if !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
