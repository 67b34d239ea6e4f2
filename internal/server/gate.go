package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	gatedomain "github.com/openlotlabs/torii/internal/gate/domain"
	"github.com/openlotlabs/torii/pkg/db/pagination"
)

type gateEventRequest struct {
	LotID      string         `json:"lot_id"`
	Plate      string         `json:"plate"`
	Direction  string         `json:"direction"`
	ObservedAt *time.Time     `json:"observed_at"`
	Metadata   map[string]any `json:"metadata"`
}

// IngestGateEvent godoc
// @Summary      Ingest Gate Event
// @Tags         gate
// @Accept       json
// @Produce      json
// @Param        body  body  gateEventRequest  true  "plate observation"
// @Success      200  {object}  map[string]interface{}
// @Router       /gate/events [post]
func (s *Server) IngestGateEvent(c *gin.Context) {
	if s.gateSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req gateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lotID, err := snowflake.ParseString(strings.TrimSpace(req.LotID))
	if err != nil {
		AbortWithError(c, newValidationError("lot_id", "invalid_lot_id", "invalid lot id"))
		return
	}

	ingest := gatedomain.IngestRequest{
		LotID:     lotID,
		Plate:     req.Plate,
		Direction: strings.ToLower(strings.TrimSpace(req.Direction)),
		Metadata:  req.Metadata,
	}
	if req.ObservedAt != nil {
		ingest.ObservedAt = req.ObservedAt.UTC()
	}

	event, err := s.gateSvc.Ingest(c.Request.Context(), ingest)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              event.ID,
		"lot_id":          event.LotID,
		"plate":           event.Plate,
		"direction":       event.Direction,
		"observed_at":     event.ObservedAt,
		"paired_event_id": event.PairedEventID,
	})
}

// ListGateEvents godoc
// @Summary      List Gate Events
// @Tags         gate
// @Produce      json
// @Param        id  path  string  true  "lot id"
// @Param        page       query  int  false  "page number"
// @Param        page_size  query  int  false  "rows per page"
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots/{id}/gate-events [get]
func (s *Server) ListGateEvents(c *gin.Context) {
	if s.gateSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	lot, err := s.authorizeLot(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Request
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := gatedomain.ListFilter{
		LotID:     lot.ID,
		Plate:     strings.TrimSpace(c.Query("plate")),
		Direction: strings.ToLower(strings.TrimSpace(c.Query("direction"))),
		Page:      page,
	}

	events, info, err := s.gateSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events, "page": info})
}
