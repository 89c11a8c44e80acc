package controller

import (
	"log"
	"time"

	"nurtureflow/models"
	"nurtureflow/nurture"
	"nurtureflow/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// transparent 1x1 GIF served for open tracking
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type TrackingController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Engine *nurture.Executor
	Hub    *AlertHub
}

func NewTrackingController(db *gorm.DB, logger *log.Logger, engine *nurture.Executor, hub *AlertHub) *TrackingController {
	return &TrackingController{
		DB:     db,
		Logger: logger,
		Engine: engine,
		Hub:    hub,
	}
}

// HandleOpenTracking serves the tracking pixel and records the open.
// Always returns the pixel, even on bad tokens, so broken requests don't
// leak which message IDs exist.
func (tc *TrackingController) HandleOpenTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	if utils.VerifyTrackingToken(messageID, token) {
		if err := tc.recordEngagement(messageID, nurture.EngagementOpened); err != nil {
			tc.Logger.Printf("Failed to record open for message %s: %v", messageID, err)
		}
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return c.Send(trackingPixel)
}

// HandleClickTracking records the click and redirects to the original URL
func (tc *TrackingController) HandleClickTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")
	targetURL := c.Query("url")

	if targetURL == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Missing redirect URL", nil)
	}

	if utils.VerifyTrackingToken(messageID, token) {
		if err := tc.recordEngagement(messageID, nurture.EngagementClicked); err != nil {
			tc.Logger.Printf("Failed to record click for message %s: %v", messageID, err)
		}
	}

	return c.Redirect(targetURL, fiber.StatusFound)
}

// HandleReplyWebhook records an inbound reply reported by an external
// mail provider. The reply scanner worker feeds the same path for IMAP
// mailboxes.
func (tc *TrackingController) HandleReplyWebhook(c *fiber.Ctx) error {
	var input struct {
		MessageID string `json:"message_id" validate:"required"`
		Token     string `json:"token" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if !utils.VerifyTrackingToken(input.MessageID, input.Token) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid tracking token", nil)
	}

	if err := tc.recordEngagement(input.MessageID, nurture.EngagementResponded); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Reply recorded",
	}))
}

// recordEngagement resolves the message ID to its lead and applies the
// engagement event through the nurture engine
func (tc *TrackingController) recordEngagement(messageID string, kind nurture.EngagementKind) error {
	var interaction models.Interaction
	if err := tc.DB.Where("message_id = ?", messageID).First(&interaction).Error; err != nil {
		return err
	}

	var lead models.Lead
	if err := tc.DB.Preload("Interactions").First(&lead, interaction.LeadID).Error; err != nil {
		return err
	}

	alert, err := tc.Engine.RecordEngagement(&lead, interaction.StepIndex, kind)
	if err != nil {
		return err
	}

	if err := tc.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(&lead).Error; err != nil {
		return err
	}

	if alert != nil {
		if err := tc.DB.Create(alert).Error; err != nil {
			tc.Logger.Printf("Failed to save sales alert for lead %s: %v", lead.UUID, err)
		}
		tc.Hub.Broadcast(alert)
		tc.Logger.Printf("Lead %s crossed into hot tier at %s", lead.UUID, time.Now().Format(time.RFC3339))
	}

	return nil
}
