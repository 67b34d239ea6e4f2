package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
)

type revenuePoint struct {
	Day     string `gorm:"column:day" json:"day"`
	Amount  int64  `gorm:"column:amount" json:"amount"`
	Settled int64  `gorm:"column:settled" json:"settled"`
}

type occupancyView struct {
	TotalSpaces    int64     `gorm:"column:total_spaces" json:"total_spaces"`
	OccupiedSpaces int64     `gorm:"column:occupied_spaces" json:"occupied_spaces"`
	ActiveSessions int64     `gorm:"column:active_sessions" json:"active_sessions"`
	CapturedAt     time.Time `gorm:"column:captured_at" json:"captured_at"`
}

// GetLotOverview godoc
// @Summary      Lot Revenue Overview
// @Tags         lots
// @Produce      json
// @Param        id     path   string  true   "lot id"
// @Param        start  query  string  false  "RFC3339 start"
// @Param        end    query  string  false  "RFC3339 end"
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /lots/{id}/overview [get]
func (s *Server) GetLotOverview(c *gin.Context) {
	lot, err := s.authorizeLot(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id := lot.ID

	start, end, err := parseOverviewRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	series, err := s.loadRevenueSeries(c.Request.Context(), id, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var totalRevenue, settledSessions int64
	for _, point := range series {
		totalRevenue += point.Amount
		settledSessions += point.Settled
	}

	resp := gin.H{
		"lot_id":           id,
		"start":            start,
		"end":              end,
		"total_revenue":    totalRevenue,
		"settled_sessions": settledSessions,
		"series":           series,
	}

	if occ, err := s.loadOccupancy(c.Request.Context(), id); err == nil && occ != nil {
		resp["occupancy"] = occ
	}

	c.JSON(http.StatusOK, resp)
}

func parseOverviewRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, newValidationError("start", "invalid_time", "invalid start time")
		}
		start = parsed.UTC()
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, newValidationError("end", "invalid_time", "invalid end time")
		}
		end = parsed.UTC()
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, newValidationError("range", "invalid_range", "start must be before end")
	}
	return start, end, nil
}

func (s *Server) loadRevenueSeries(ctx context.Context, lotID snowflake.ID, start, end time.Time) ([]revenuePoint, error) {
	var series []revenuePoint
	err := s.db.WithContext(ctx).Raw(
		`SELECT DATE(created_at) AS day,
		        COALESCE(SUM(amount), 0) AS amount,
		        COUNT(*) AS settled
		 FROM payment_records
		 WHERE lot_id = ?
		   AND status IN (?, ?)
		   AND created_at >= ?
		   AND created_at < ?
		 GROUP BY DATE(created_at)
		 ORDER BY day ASC`,
		lotID,
		paymentdomain.ChargeStatusSucceeded,
		paymentdomain.ChargeStatusPending,
		start,
		end,
	).Scan(&series).Error
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (s *Server) loadOccupancy(ctx context.Context, lotID snowflake.ID) (*occupancyView, error) {
	var view occupancyView
	result := s.db.WithContext(ctx).Raw(
		`SELECT total_spaces, occupied_spaces, active_sessions, captured_at
		 FROM lot_occupancy_snapshots
		 WHERE lot_id = ?
		 LIMIT 1`,
		lotID,
	).Scan(&view)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &view, nil
}
