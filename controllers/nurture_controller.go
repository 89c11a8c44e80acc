package controller

import (
	"errors"
	"log"
	"time"

	"nurtureflow/models"
	"nurtureflow/nurture"
	"nurtureflow/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NurtureController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Engine *nurture.Executor
	Hub    *AlertHub
}

func NewNurtureController(db *gorm.DB, logger *log.Logger, engine *nurture.Executor, hub *AlertHub) *NurtureController {
	return &NurtureController{
		DB:     db,
		Logger: logger,
		Engine: engine,
		Hub:    hub,
	}
}

// GetSequences lists the available sequence definitions
func (nc *NurtureController) GetSequences(c *fiber.Ctx) error {
	lib := nc.Engine.Scheduler.Library

	sequences := make([]nurture.SequenceDefinition, 0)
	for _, name := range lib.Names() {
		def, err := lib.Get(name)
		if err != nil {
			continue
		}
		sequences = append(sequences, def)
	}

	return c.JSON(utils.SuccessResponse(sequences))
}

// Enroll assigns a sequence to a lead and schedules its first touchpoint
func (nc *NurtureController) Enroll(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input struct {
		Sequence string `json:"sequence" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var lead models.Lead
	if err := nc.DB.Preload("CustomFields").Preload("Interactions").
		Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if err := nc.Engine.Enroll(&lead, input.Sequence); err != nil {
		if errors.Is(err, nurture.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", err)
		}
		if errors.Is(err, nurture.ErrInvalidState) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Lead cannot be enrolled", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enroll lead", err)
	}

	if err := nc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save lead", err)
	}

	nc.Logger.Printf("Enrolled lead %s in sequence %s", lead.UUID, input.Sequence)
	return c.JSON(utils.SuccessResponse(lead))
}

// PreviewSchedule returns the dated, personalized touchpoints a sequence
// would produce for the lead without enrolling it
func (nc *NurtureController) PreviewSchedule(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")
	sequence := c.Query("sequence")

	if sequence == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sequence name is required", nil)
	}

	var lead models.Lead
	if err := nc.DB.Preload("CustomFields").
		Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	records, err := nc.Engine.Scheduler.Schedule(sequence, &lead, time.Now())
	if err != nil {
		if errors.Is(err, nurture.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build schedule", err)
	}

	return c.JSON(utils.SuccessResponse(records))
}

// GetReadiness returns the lead's score, tier and scoring annotations
func (nc *NurtureController) GetReadiness(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := nc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	readiness := nc.Engine.Scorer.Score(&lead)
	return c.JSON(utils.SuccessResponse(readiness))
}

// ProcessDue fires every due touchpoint for the user's active leads.
// The nurture worker does this on a schedule; this endpoint is the manual
// trigger.
func (nc *NurtureController) ProcessDue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var leads []*models.Lead
	if err := nc.DB.Preload("CustomFields").Preload("Interactions").
		Where("user_id = ? AND status = ? AND next_touch_at <= ?", user.ID, models.LeadStatusActive, time.Now()).
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch due leads", err)
	}

	results := nc.Engine.ProcessDue(leads)

	for _, lead := range leads {
		if err := nc.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(lead).Error; err != nil {
			nc.Logger.Printf("Failed to save lead %s after processing: %v", lead.UUID, err)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"processed": len(results),
		"results":   results,
	}))
}

// RecordEngagement applies an engagement event to a fired touchpoint.
// Tracking pixels and webhooks land on the public endpoints; this is the
// authenticated variant for manually logged engagement (e.g. a social reply).
func (nc *NurtureController) RecordEngagement(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input struct {
		StepIndex int    `json:"step_index" validate:"min=0"`
		Kind      string `json:"kind" validate:"required,oneof=opened clicked responded social"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var lead models.Lead
	if err := nc.DB.Preload("Interactions").
		Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	alert, err := nc.Engine.RecordEngagement(&lead, input.StepIndex, nurture.EngagementKind(input.Kind))
	if err != nil {
		if errors.Is(err, nurture.ErrInvalidState) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Engagement cannot be recorded", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record engagement", err)
	}

	if err := nc.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save lead", err)
	}

	if alert != nil {
		if err := nc.DB.Create(alert).Error; err != nil {
			nc.Logger.Printf("Failed to save sales alert for lead %s: %v", lead.UUID, err)
		}
		nc.Hub.Broadcast(alert)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"lead":  lead,
		"alert": alert,
	}))
}

// Unsubscribe marks the lead unsubscribed. Terminal; history is kept.
func (nc *NurtureController) Unsubscribe(c *fiber.Ctx) error {
	return nc.complete(c, models.LeadStatusUnsubscribed)
}

// Convert marks the lead converted. Terminal; history is kept.
func (nc *NurtureController) Convert(c *fiber.Ctx) error {
	return nc.complete(c, models.LeadStatusConverted)
}

func (nc *NurtureController) complete(c *fiber.Ctx, status string) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := nc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if err := nc.Engine.Complete(&lead, status); err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead is already in a terminal state", err)
	}

	if err := nc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save lead", err)
	}

	nc.Logger.Printf("Lead %s marked %s", lead.UUID, status)
	return c.JSON(utils.SuccessResponse(lead))
}

// GetAlerts returns the user's sales alerts, newest first
func (nc *NurtureController) GetAlerts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	unackedOnly := c.Query("unacknowledged") == "true"

	query := nc.DB.Where("user_id = ?", user.ID)
	if unackedOnly {
		query = query.Where("acknowledged = false")
	}

	var alerts []models.SalesAlert
	if err := query.Order("created_at DESC").Limit(100).Find(&alerts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch alerts", err)
	}

	return c.JSON(utils.SuccessResponse(alerts))
}

// AcknowledgeAlert marks a sales alert as handled
func (nc *NurtureController) AcknowledgeAlert(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	alertID := c.Params("id")

	result := nc.DB.Model(&models.SalesAlert{}).
		Where("id = ? AND user_id = ?", alertID, user.ID).
		Update("acknowledged", true)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to acknowledge alert", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Alert not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Alert acknowledged",
	}))
}
