package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	lotIDs, err := s.loadLotIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteLotData(ctx, lotIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	ownerIDs, err := s.loadOwnerIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteOwnerData(ctx, ownerIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) loadLotIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var lotIDs []int64
	if err := s.db.WithContext(ctx).
		Table("parking_lots").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&lotIDs).Error; err != nil {
		return nil, err
	}
	return lotIDs, nil
}

func (s *Server) deleteLotData(ctx context.Context, lotIDs []int64) error {
	if len(lotIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM audit_logs WHERE lot_id IN ?`,
		`DELETE FROM outbox_events WHERE lot_id IN ?`,
		`DELETE FROM lot_occupancy_snapshots WHERE lot_id IN ?`,
		`DELETE FROM gate_events WHERE lot_id IN ?`,
		`DELETE FROM payment_provider_configs WHERE lot_id IN ?`,
		`DELETE FROM payment_events WHERE lot_id IN ?`,
		`DELETE FROM payment_records WHERE lot_id IN ?`,
		`DELETE FROM parking_sessions WHERE lot_id IN ?`,
		`DELETE FROM max_pricing_periods WHERE lot_id IN ?`,
		`DELETE FROM parking_spaces WHERE lot_id IN ?`,
		`DELETE FROM parking_lots WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, lotIDs).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) loadOwnerIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var ownerIDs []int64
	if err := s.db.WithContext(ctx).
		Table("owners").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&ownerIDs).Error; err != nil {
		return nil, err
	}
	return ownerIDs, nil
}

func (s *Server) deleteOwnerData(ctx context.Context, ownerIDs []int64) error {
	if len(ownerIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM api_keys WHERE owner_id IN ?`,
		`DELETE FROM owners WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, ownerIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
