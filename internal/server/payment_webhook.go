package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
)

const maxWebhookBody = 1 << 20

// PaymentWebhook godoc
// @Summary      Ingest Payment Webhook
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        provider  path  string  true  "payment provider"
// @Success      200  {object}  map[string]interface{}
// @Router       /webhooks/payments/{provider} [post]
func (s *Server) PaymentWebhook(c *gin.Context) {
	if s.paymentSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if provider == "" {
		AbortWithError(c, newValidationError("provider", "required", "provider is required"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, paymentdomain.ErrEventIgnored):
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	default:
		AbortWithError(c, err)
	}
}
