package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
)

type createLotRequest struct {
	OwnerID    string `json:"owner_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	SpaceCount int    `json:"space_count"`
}

func lotIDParam(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param("id"))
	if raw == "" {
		return 0, newValidationError("id", "missing_id", "lot id is required")
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError("id", "invalid_id", "invalid lot id")
	}
	return id, nil
}

// CreateLot godoc
// @Summary      Create Lot
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        body  body  createLotRequest  true  "lot"
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots [post]
func (s *Server) CreateLot(c *gin.Context) {
	if s.lotSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	principal, ok := s.principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := principal.OwnerID
	if ownerID == 0 && strings.TrimSpace(req.OwnerID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
		if err != nil {
			AbortWithError(c, newValidationError("owner_id", "invalid_owner_id", "invalid owner id"))
			return
		}
		ownerID = parsed
	}

	lot, err := s.lotSvc.Create(c.Request.Context(), lotdomain.CreateLotRequest{
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(req.Name),
		Address:    strings.TrimSpace(req.Address),
		SpaceCount: req.SpaceCount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lot})
}

// ListLots godoc
// @Summary      List Lots
// @Tags         lots
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots [get]
func (s *Server) ListLots(c *gin.Context) {
	if s.lotSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	principal, ok := s.principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	lots, err := s.lotSvc.List(c.Request.Context(), principal.OwnerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lots})
}

// GetLot godoc
// @Summary      Get Lot
// @Tags         lots
// @Produce      json
// @Param        id  path  string  true  "lot id"
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots/{id} [get]
func (s *Server) GetLot(c *gin.Context) {
	lot, err := s.authorizeLot(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lot})
}

// ListLotSpaces godoc
// @Summary      List Lot Spaces
// @Tags         lots
// @Produce      json
// @Param        id  path  string  true  "lot id"
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots/{id}/spaces [get]
func (s *Server) ListLotSpaces(c *gin.Context) {
	lot, err := s.authorizeLot(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	spaces, err := s.lotSvc.Spaces(c.Request.Context(), lot.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": spaces})
}

// UpdateLotPricing godoc
// @Summary      Update Lot Pricing
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "lot id"
// @Param        body  body  lotdomain.UpdatePricingRequest  true  "pricing"
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots/{id}/pricing [put]
func (s *Server) UpdateLotPricing(c *gin.Context) {
	owned, err := s.authorizeLot(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req lotdomain.UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lot, err := s.lotSvc.UpdatePricing(c.Request.Context(), owned.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lot})
}
