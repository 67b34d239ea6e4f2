package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

type checkoutRequest struct {
	Method string `json:"method"`
}

// CheckoutSession godoc
// @Summary      Checkout Session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        token  path  string           true  "session token"
// @Param        body   body  checkoutRequest  true  "payment method"
// @Success      200  {object}  map[string]interface{}
// @Router       /sessions/{token}/checkout [post]
func (s *Server) CheckoutSession(c *gin.Context) {
	if s.sessionSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	token, err := sessionToken(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = paymentdomain.MethodCash
	}

	result, err := s.sessionSvc.Complete(c.Request.Context(), token, method)
	if err != nil {
		s.recordCheckout(method, err)
		AbortWithError(c, err)
		return
	}

	if s.checkout != nil {
		s.checkout.IncCheckout(method, "success")
		s.checkout.ObserveCheckout(method, time.Duration(result.DurationMinutes)*time.Minute, result.Amount)
	}

	resp := gin.H{
		"session_token":    result.Session.SessionToken,
		"status":           result.Session.Status,
		"entry_time":       result.Session.EntryTime,
		"exit_time":        result.Session.ExitTime,
		"duration_minutes": result.DurationMinutes,
		"amount":           result.Amount,
	}
	if result.Payment != nil {
		resp["payment_status"] = result.Payment.Status
		resp["provider"] = result.Payment.Provider
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recordCheckout(method string, err error) {
	if s.checkout == nil {
		return
	}
	switch {
	case errors.Is(err, sessiondomain.ErrSessionCompleted),
		errors.Is(err, paymentdomain.ErrDuplicateCharge):
		s.checkout.IncCheckout(method, "conflict")
	default:
		s.checkout.IncCheckout(method, "failed")
	}
}
