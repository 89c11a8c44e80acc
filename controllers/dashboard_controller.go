package controller

import (
	"log"

	"nurtureflow/models"
	"nurtureflow/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type tierCount struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}

type routeCount struct {
	Route string `json:"route"`
	Count int64  `json:"count"`
}

// GetDashboardStats returns the pipeline rollup: lead counts per tier and
// status, touchpoint delivery and engagement rates, and routing outcomes
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var totalLeads int64
	if err := dc.DB.Model(&models.Lead{}).Where("user_id = ?", user.ID).Count(&totalLeads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", err)
	}

	var activeLeads int64
	dc.DB.Model(&models.Lead{}).
		Where("user_id = ? AND status = ?", user.ID, models.LeadStatusActive).
		Count(&activeLeads)

	var convertedLeads int64
	dc.DB.Model(&models.Lead{}).
		Where("user_id = ? AND status = ?", user.ID, models.LeadStatusConverted).
		Count(&convertedLeads)

	var tiers []tierCount
	if err := dc.DB.Model(&models.Lead{}).
		Select("readiness_tier AS tier, COUNT(*) AS count").
		Where("user_id = ? AND readiness_tier <> ''", user.ID).
		Group("readiness_tier").
		Scan(&tiers).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate tiers", err)
	}

	var routes []routeCount
	if err := dc.DB.Model(&models.Lead{}).
		Select("route, COUNT(*) AS count").
		Where("user_id = ? AND route <> ''", user.ID).
		Group("route").
		Scan(&routes).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate routes", err)
	}

	// Touchpoint rollups over the user's interaction history
	var stats struct {
		Sent      int64
		Delivered int64
		Opened    int64
		Clicked   int64
		Responded int64
	}
	if err := dc.DB.Model(&models.Interaction{}).
		Joins("JOIN leads ON leads.id = interactions.lead_id").
		Where("leads.user_id = ?", user.ID).
		Select(`COUNT(*) AS sent,
			COUNT(*) FILTER (WHERE delivered) AS delivered,
			COUNT(*) FILTER (WHERE opened) AS opened,
			COUNT(*) FILTER (WHERE clicked) AS clicked,
			COUNT(*) FILTER (WHERE responded) AS responded`).
		Scan(&stats).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate touchpoints", err)
	}

	var pendingAlerts int64
	dc.DB.Model(&models.SalesAlert{}).
		Where("user_id = ? AND acknowledged = false", user.ID).
		Count(&pendingAlerts)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"leads": fiber.Map{
			"total":     totalLeads,
			"active":    activeLeads,
			"converted": convertedLeads,
			"by_tier":   tiers,
			"by_route":  routes,
		},
		"touchpoints": fiber.Map{
			"sent":          stats.Sent,
			"delivered":     stats.Delivered,
			"opened":        stats.Opened,
			"clicked":       stats.Clicked,
			"responded":     stats.Responded,
			"delivery_rate": rate(stats.Delivered, stats.Sent),
			"open_rate":     rate(stats.Opened, stats.Delivered),
			"click_rate":    rate(stats.Clicked, stats.Delivered),
			"reply_rate":    rate(stats.Responded, stats.Delivered),
		},
		"pending_alerts": pendingAlerts,
	}))
}

func rate(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
