package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openlotlabs/torii/internal/receipt/render"
)

// SessionReceipt godoc
// @Summary      Session Receipt
// @Tags         sessions
// @Produce      html
// @Param        token  path  string  true  "session token"
// @Success      200  {string}  string
// @Router       /sessions/{token}/receipt [get]
func (s *Server) SessionReceipt(c *gin.Context) {
	if s.sessionSvc == nil || s.renderer == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	token, err := sessionToken(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	detail, err := s.sessionSvc.Settlement(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var exitTime time.Time
	if detail.Session.ExitTime != nil {
		exitTime = *detail.Session.ExitTime
	}

	input := render.RenderInput{
		Lot: render.LotView{
			Name:    detail.LotName,
			Address: detail.LotAddress,
		},
		Session: render.SessionView{
			Token:       detail.Session.SessionToken,
			SpaceNumber: detail.SpaceNumber,
			EntryTime:   detail.Session.EntryTime,
			ExitTime:    exitTime,
			Location:    s.cfg.Location(),
		},
	}
	if detail.Payment != nil {
		input.Payment = render.PaymentView{
			Amount:          detail.Payment.Amount,
			DurationMinutes: detail.Payment.DurationMinutes,
			Method:          detail.Payment.Method,
			Provider:        detail.Payment.Provider,
			Status:          detail.Payment.Status,
			Currency:        detail.Payment.Currency,
		}
	}

	html, err := s.renderer.RenderHTML(input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
