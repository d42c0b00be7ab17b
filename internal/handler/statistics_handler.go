package handler

import (
	"net/http"
	"time"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetSpendStatistics)
	}
}

// GetSpendStatistics returns the procurement spend dashboard for a time range
// @Summary      Get spend statistics
// @Description  Issued order spend, open requisition count, exception count, and top vendor/material rankings bounded by time
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetSpendStatistics(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	stats, err := h.statisticsService.GetSpendStatistics(c.Request.Context(), middleware.OrgID(c), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
