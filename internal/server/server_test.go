package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openlotlabs/torii/internal/auth"
	"github.com/openlotlabs/torii/internal/config"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

type stubSessionService struct {
	checkInResult *sessiondomain.CheckInResult
	checkInErr    error
	completeErr   error
	quoteResult   *sessiondomain.QuoteResult
	quoteErr      error
}

func (s *stubSessionService) CheckIn(ctx context.Context, qrCode string) (*sessiondomain.CheckInResult, error) {
	return s.checkInResult, s.checkInErr
}

func (s *stubSessionService) Quote(ctx context.Context, token string) (*sessiondomain.QuoteResult, error) {
	return s.quoteResult, s.quoteErr
}

func (s *stubSessionService) Complete(ctx context.Context, token string, method string) (*sessiondomain.CheckoutResult, error) {
	return nil, s.completeErr
}

func (s *stubSessionService) Settlement(ctx context.Context, token string) (*sessiondomain.SettlementDetail, error) {
	return nil, sessiondomain.ErrSessionNotFound
}

type stubLotService struct {
	lot *lotdomain.ParkingLot
}

func (s *stubLotService) Create(ctx context.Context, req lotdomain.CreateLotRequest) (*lotdomain.ParkingLot, error) {
	return s.lot, nil
}

func (s *stubLotService) Get(ctx context.Context, id snowflake.ID) (*lotdomain.ParkingLot, error) {
	if s.lot == nil || s.lot.ID != id {
		return nil, lotdomain.ErrLotNotFound
	}
	return s.lot, nil
}

func (s *stubLotService) List(ctx context.Context, ownerID snowflake.ID) ([]lotdomain.ParkingLot, error) {
	return []lotdomain.ParkingLot{*s.lot}, nil
}

func (s *stubLotService) Spaces(ctx context.Context, lotID snowflake.ID) ([]lotdomain.ParkingSpace, error) {
	return []lotdomain.ParkingSpace{}, nil
}

func (s *stubLotService) UpdatePricing(ctx context.Context, lotID snowflake.ID, req lotdomain.UpdatePricingRequest) (*lotdomain.ParkingLot, error) {
	return s.lot, nil
}

// newOperatorTestServer registers the per-lot operator routes behind a
// middleware that injects the given principal.
func newOperatorTestServer(t *testing.T, lots lotdomain.Service, principal auth.Principal) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	srv := &Server{
		cfg:    config.Config{Environment: "test"},
		log:    zap.NewNop(),
		engine: engine,
		lotSvc: lots,
	}
	api := engine.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set(contextPrincipalKey, principal)
		c.Next()
	})
	api.GET("/lots/:id", srv.GetLot)
	api.GET("/lots/:id/spaces", srv.ListLotSpaces)
	api.PUT("/lots/:id/pricing", srv.UpdateLotPricing)
	return srv
}

func newTestServer(t *testing.T, sessions sessiondomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	srv := &Server{
		cfg:        config.Config{Environment: "test"},
		log:        zap.NewNop(),
		engine:     engine,
		sessionSvc: sessions,
	}
	srv.RegisterAPIRoutes()
	return srv
}

func performRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	srv.engine.ServeHTTP(recorder, req)
	return recorder
}

func TestCheckInHandlerReturnsToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &stubSessionService{
		checkInResult: &sessiondomain.CheckInResult{
			Session: &sessiondomain.ParkingSession{
				SessionToken: "tok-1",
				Status:       sessiondomain.StatusActive,
				EntryTime:    now,
			},
			SpaceNumber: 3,
			LotName:     "Demo Lot",
		},
	})

	resp := performRequest(srv, http.MethodPost, "/api/spaces/qr-1/checkin", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["session_token"] != "tok-1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["space_number"] != float64(3) {
		t.Fatalf("unexpected space number: %v", body["space_number"])
	}
}

func TestCheckInHandlerOccupiedConflict(t *testing.T) {
	srv := newTestServer(t, &stubSessionService{checkInErr: sessiondomain.ErrSpaceOccupied})

	resp := performRequest(srv, http.MethodPost, "/api/spaces/qr-1/checkin", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestCheckInHandlerUnknownSpace(t *testing.T) {
	srv := newTestServer(t, &stubSessionService{checkInErr: sessiondomain.ErrSpaceNotFound})

	resp := performRequest(srv, http.MethodPost, "/api/spaces/qr-x/checkin", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestQuoteHandler(t *testing.T) {
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &stubSessionService{
		quoteResult: &sessiondomain.QuoteResult{
			SessionToken:    "tok-1",
			EntryTime:       now.Add(-90 * time.Minute),
			QuotedAt:        now,
			DurationMinutes: 90,
			Amount:          600,
			Currency:        "JPY",
		},
	})

	resp := performRequest(srv, http.MethodGet, "/api/sessions/tok-1/quote", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["amount"] != float64(600) {
		t.Fatalf("unexpected amount: %v", body["amount"])
	}
}

func TestCheckoutHandlerInvalidBody(t *testing.T) {
	srv := newTestServer(t, &stubSessionService{})

	resp := performRequest(srv, http.MethodPost, "/api/sessions/tok-1/checkout", "{not json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCheckoutHandlerDoubleCheckout(t *testing.T) {
	srv := newTestServer(t, &stubSessionService{completeErr: sessiondomain.ErrSessionCompleted})

	resp := performRequest(srv, http.MethodPost, "/api/sessions/tok-1/checkout", `{"method":"cash"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCheckoutHandlerChargeFailed(t *testing.T) {
	srv := newTestServer(t, &stubSessionService{completeErr: paymentdomain.ErrChargeFailed})

	resp := performRequest(srv, http.MethodPost, "/api/sessions/tok-1/checkout", `{"method":"card"}`)
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.Code)
	}
}

func TestLotRoutesRefuseForeignOwner(t *testing.T) {
	lot := &lotdomain.ParkingLot{ID: snowflake.ID(1001), OwnerID: snowflake.ID(111)}
	srv := newOperatorTestServer(t, &stubLotService{lot: lot}, auth.Principal{
		ActorType: auth.ActorTypeAPIKey,
		ActorID:   "key_other",
		OwnerID:   snowflake.ID(222),
	})

	path := "/api/lots/" + lot.ID.String()
	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, path, ""},
		{http.MethodGet, path + "/spaces", ""},
		{http.MethodPut, path + "/pricing", `{"max_daily_amount":0}`},
	} {
		resp := performRequest(srv, tc.method, tc.path, tc.body)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestLotRoutesAllowOwnerAndDemo(t *testing.T) {
	lot := &lotdomain.ParkingLot{ID: snowflake.ID(1001), OwnerID: snowflake.ID(111)}
	path := "/api/lots/" + lot.ID.String()

	owner := newOperatorTestServer(t, &stubLotService{lot: lot}, auth.Principal{
		ActorType: auth.ActorTypeAPIKey,
		ActorID:   "key_owner",
		OwnerID:   lot.OwnerID,
	})
	if resp := performRequest(owner, http.MethodGet, path, ""); resp.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", resp.Code)
	}

	// The demo principal carries no owner scope.
	demo := newOperatorTestServer(t, &stubLotService{lot: lot}, auth.Principal{
		ActorType: auth.ActorTypeDemo,
		ActorID:   "demo-admin",
	})
	if resp := performRequest(demo, http.MethodGet, path, ""); resp.Code != http.StatusOK {
		t.Fatalf("demo: expected 200, got %d", resp.Code)
	}
}

func TestHandlerNilServiceUnavailable(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := performRequest(srv, http.MethodPost, "/api/spaces/qr-1/checkin", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStatusForValidationError(t *testing.T) {
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	AbortWithError(ctx, newValidationError("method", "invalid_method", "invalid method"))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "invalid_method") {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}
