package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CheckIn godoc
// @Summary      Check in by QR token
// @Tags         sessions
// @Param        qr  path  string  true  "space QR token"
// @Success      200  {object}  map[string]interface{}
// @Router       /spaces/{qr}/checkin [post]
func (s *Server) CheckIn(c *gin.Context) {
	if s.sessionSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	qr := strings.TrimSpace(c.Param("qr"))
	if qr == "" {
		AbortWithError(c, newValidationError("qr", "required", "qr code is required"))
		return
	}

	result, err := s.sessionSvc.CheckIn(c.Request.Context(), qr)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_token": result.Session.SessionToken,
		"space_number":  result.SpaceNumber,
		"lot_name":      result.LotName,
		"entry_time":    result.Session.EntryTime,
	})
}
