package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

func sessionToken(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return "", newValidationError("token", "required", "session token is required")
	}
	return token, nil
}

// GetSession godoc
// @Summary      Get Session
// @Tags         sessions
// @Produce      json
// @Param        token  path  string  true  "session token"
// @Success      200  {object}  map[string]interface{}
// @Router       /sessions/{token} [get]
func (s *Server) GetSession(c *gin.Context) {
	if s.sessionSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	token, err := sessionToken(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quote, err := s.sessionSvc.Quote(c.Request.Context(), token)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"session_token":    quote.SessionToken,
			"status":           sessiondomain.StatusActive,
			"entry_time":       quote.EntryTime,
			"duration_minutes": quote.DurationMinutes,
			"amount":           quote.Amount,
			"currency":         quote.Currency,
		})
		return
	}
	if !errors.Is(err, sessiondomain.ErrSessionCompleted) {
		AbortWithError(c, err)
		return
	}

	detail, err := s.sessionSvc.Settlement(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"session_token": detail.Session.SessionToken,
		"status":        detail.Session.Status,
		"entry_time":    detail.Session.EntryTime,
		"exit_time":     detail.Session.ExitTime,
		"space_number":  detail.SpaceNumber,
		"lot_name":      detail.LotName,
	}
	if detail.Payment != nil {
		resp["amount"] = detail.Payment.Amount
		resp["duration_minutes"] = detail.Payment.DurationMinutes
		resp["method"] = detail.Payment.Method
		resp["payment_status"] = detail.Payment.Status
	}
	c.JSON(http.StatusOK, resp)
}

// QuoteSession godoc
// @Summary      Quote Session
// @Tags         sessions
// @Produce      json
// @Param        token  path  string  true  "session token"
// @Success      200  {object}  map[string]interface{}
// @Router       /sessions/{token}/quote [get]
func (s *Server) QuoteSession(c *gin.Context) {
	if s.sessionSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	token, err := sessionToken(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quote, err := s.sessionSvc.Quote(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_token":    quote.SessionToken,
		"entry_time":       quote.EntryTime,
		"quoted_at":        quote.QuotedAt,
		"duration_minutes": quote.DurationMinutes,
		"amount":           quote.Amount,
		"currency":         quote.Currency,
	})
}
