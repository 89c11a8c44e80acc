package controller

import (
	"encoding/csv"
	"log"
	"strconv"
	"strings"
	"time"

	"nurtureflow/models"
	"nurtureflow/nurture"
	"nurtureflow/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Scorer *nurture.Scorer
}

func NewLeadController(db *gorm.DB, logger *log.Logger, scorer *nurture.Scorer) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
		Scorer: scorer,
	}
}

type leadInput struct {
	Email             string            `json:"email" validate:"required,email"`
	FirstName         string            `json:"first_name" validate:"omitempty,max=100"`
	LastName          string            `json:"last_name" validate:"omitempty,max=100"`
	Phone             string            `json:"phone" validate:"omitempty,e164"`
	Company           string            `json:"company" validate:"omitempty,max=200"`
	Niche             string            `json:"niche" validate:"omitempty,max=100"`
	Budget            *float64          `json:"budget" validate:"omitempty,min=0"`
	Timeline          *string           `json:"timeline" validate:"omitempty,oneof=immediate within_3_months within_6_months someday"`
	Urgency           *string           `json:"urgency" validate:"omitempty,oneof=critical important nice_to_have"`
	DecisionAuthority *string           `json:"decision_authority" validate:"omitempty,oneof=sole primary influencer"`
	EngagementLevel   *string           `json:"engagement_level" validate:"omitempty,oneof=high medium"`
	CustomFields      map[string]string `json:"custom_fields"`
}

// CreateLead creates a new lead, validates its attributes and scores it
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	// Validate input
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	// Check if lead already exists
	var existingLead models.Lead
	if err := lc.DB.Where("email = ? AND user_id = ?", input.Email, user.ID).First(&existingLead).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead with this email already exists", nil)
	}

	lead := models.Lead{
		UserID:            user.ID,
		UUID:              uuid.New().String(),
		Email:             strings.ToLower(input.Email),
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Phone:             input.Phone,
		Company:           input.Company,
		Niche:             input.Niche,
		Budget:            input.Budget,
		Timeline:          input.Timeline,
		Urgency:           input.Urgency,
		DecisionAuthority: input.DecisionAuthority,
		EngagementLevel:   input.EngagementLevel,
		Status:            models.LeadStatusNew,
		CustomFields:      convertCustomFields(input.CustomFields),
	}

	// Score at intake so the tier is available immediately
	lc.Scorer.Apply(&lead)

	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// Helper function to convert custom fields
func convertCustomFields(fields map[string]string) []models.LeadCustomField {
	var result []models.LeadCustomField
	for name, value := range fields {
		result = append(result, models.LeadCustomField{
			Name:  name,
			Value: value,
		})
	}
	return result
}

// GetLeads returns paginated list of leads with filters
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	// Pagination
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	// Filters
	email := c.Query("email")
	company := c.Query("company")
	status := c.Query("status")
	tier := c.Query("tier")
	sequence := c.Query("sequence")

	query := lc.DB.Where("user_id = ?", user.ID)

	if email != "" {
		query = query.Where("email LIKE ?", "%"+email+"%")
	}
	if company != "" {
		query = query.Where("company LIKE ?", "%"+company+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if tier != "" {
		query = query.Where("readiness_tier = ?", tier)
	}
	if sequence != "" {
		query = query.Where("sequence_name = ?", sequence)
	}

	var leads []models.Lead
	if err := query.Order("readiness_score DESC").Offset(offset).Limit(limit).Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	var total int64
	query.Model(&models.Lead{}).Count(&total)

	return c.JSON(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetLead returns a single lead by ID with its interaction history
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.Preload("CustomFields").Preload("Interactions").
		Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// UpdateLead updates lead details and re-scores when attributes change
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input struct {
		Email             string            `json:"email" validate:"omitempty,email"`
		FirstName         string            `json:"first_name" validate:"omitempty,max=100"`
		LastName          string            `json:"last_name" validate:"omitempty,max=100"`
		Phone             string            `json:"phone" validate:"omitempty,e164"`
		Company           string            `json:"company" validate:"omitempty,max=200"`
		Niche             string            `json:"niche" validate:"omitempty,max=100"`
		Budget            *float64          `json:"budget" validate:"omitempty,min=0"`
		Timeline          *string           `json:"timeline" validate:"omitempty,oneof=immediate within_3_months within_6_months someday"`
		Urgency           *string           `json:"urgency" validate:"omitempty,oneof=critical important nice_to_have"`
		DecisionAuthority *string           `json:"decision_authority" validate:"omitempty,oneof=sole primary influencer"`
		EngagementLevel   *string           `json:"engagement_level" validate:"omitempty,oneof=high medium"`
		CustomFields      map[string]string `json:"custom_fields"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	// Validate input
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	// Check if email is being updated to an existing one
	if input.Email != "" && input.Email != lead.Email {
		var existingLead models.Lead
		if err := lc.DB.Where("email = ? AND user_id = ?", input.Email, user.ID).First(&existingLead).Error; err == nil {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Lead with this email already exists", nil)
		}
		lead.Email = strings.ToLower(input.Email)
	}

	// Update fields
	if input.FirstName != "" {
		lead.FirstName = input.FirstName
	}
	if input.LastName != "" {
		lead.LastName = input.LastName
	}
	if input.Phone != "" {
		lead.Phone = input.Phone
	}
	if input.Company != "" {
		lead.Company = input.Company
	}
	if input.Niche != "" {
		lead.Niche = input.Niche
	}
	if input.Budget != nil {
		lead.Budget = input.Budget
	}
	if input.Timeline != nil {
		lead.Timeline = input.Timeline
	}
	if input.Urgency != nil {
		lead.Urgency = input.Urgency
	}
	if input.DecisionAuthority != nil {
		lead.DecisionAuthority = input.DecisionAuthority
	}
	if input.EngagementLevel != nil {
		lead.EngagementLevel = input.EngagementLevel
	}
	if input.CustomFields != nil {
		lead.CustomFields = convertCustomFields(input.CustomFields)
	}

	// Re-score against the updated attribute bag
	lc.Scorer.Apply(&lead)

	if err := lc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// DeleteLead deletes a lead and its interaction history
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	tx := lc.DB.Begin()

	// Delete interactions and custom fields first
	if err := tx.Where("lead_id = ?", leadID).Delete(&models.Interaction{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead interactions", err)
	}
	if err := tx.Where("lead_id = ?", leadID).Delete(&models.LeadCustomField{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead custom fields", err)
	}

	// Delete lead
	result := tx.Where("id = ? AND user_id = ?", leadID, user.ID).Delete(&models.Lead{})
	if result.Error != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", result.Error)
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}

	tx.Commit()

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Lead deleted successfully",
	}))
}

// ImportLeads imports leads from CSV file
func (lc *LeadController) ImportLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File upload error", err)
	}

	// Check file size (max 5MB)
	if file.Size > 5<<20 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File too large (max 5MB)", nil)
	}

	// Open the file
	src, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to open file", err)
	}
	defer src.Close()

	// Parse CSV
	reader := csv.NewReader(src)
	records, err := reader.ReadAll()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse CSV file", err)
	}

	if len(records) < 2 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV file must have at least a header and one row", nil)
	}

	header := records[0]
	rows := records[1:]

	knownColumns := map[string]bool{
		"email": true, "first_name": true, "last_name": true, "phone": true,
		"company": true, "niche": true, "budget": true, "timeline": true,
		"urgency": true, "decision_authority": true, "engagement_level": true,
	}

	// Process leads in batches
	batchSize := 100
	var leads []models.Lead
	imported := 0
	skipped := 0

	for _, row := range rows {
		if len(row) != len(header) {
			skipped++
			continue // Skip malformed rows
		}

		leadData := make(map[string]string)
		for i, col := range header {
			leadData[col] = strings.TrimSpace(row[i])
		}

		email, ok := leadData["email"]
		if !ok || email == "" {
			skipped++
			continue // Skip rows without email
		}
		if err := checkmail.ValidateFormat(email); err != nil {
			skipped++
			continue
		}

		// Check if lead already exists
		var existingLead models.Lead
		if err := lc.DB.Where("email = ? AND user_id = ?", email, user.ID).First(&existingLead).Error; err != gorm.ErrRecordNotFound {
			skipped++
			continue
		}

		lead := models.Lead{
			UserID:    user.ID,
			UUID:      uuid.New().String(),
			Email:     strings.ToLower(email),
			FirstName: leadData["first_name"],
			LastName:  leadData["last_name"],
			Phone:     leadData["phone"],
			Company:   leadData["company"],
			Niche:     leadData["niche"],
			Status:    models.LeadStatusNew,
		}

		if budget, err := strconv.ParseFloat(leadData["budget"], 64); err == nil && budget >= 0 {
			lead.Budget = &budget
		}
		lead.Timeline = optionalAttr(leadData["timeline"],
			models.TimelineImmediate, models.TimelineWithin3Months, models.TimelineWithin6Months, models.TimelineSomeday)
		lead.Urgency = optionalAttr(leadData["urgency"],
			models.UrgencyCritical, models.UrgencyImportant, models.UrgencyNiceToHave)
		lead.DecisionAuthority = optionalAttr(leadData["decision_authority"],
			models.AuthoritySole, models.AuthorityPrimary, models.AuthorityInfluencer)
		lead.EngagementLevel = optionalAttr(leadData["engagement_level"],
			models.EngagementHigh, models.EngagementMedium)

		// Unknown columns become custom fields
		for col, value := range leadData {
			if !knownColumns[col] && value != "" {
				lead.CustomFields = append(lead.CustomFields, models.LeadCustomField{
					Name:  col,
					Value: value,
				})
			}
		}

		lc.Scorer.Apply(&lead)
		leads = append(leads, lead)

		// Process batch when size is reached
		if len(leads) >= batchSize {
			if err := lc.DB.Create(&leads).Error; err != nil {
				lc.Logger.Printf("Failed to import batch of leads: %v", err)
			} else {
				imported += len(leads)
			}
			leads = nil
		}
	}

	// Process remaining leads
	if len(leads) > 0 {
		if err := lc.DB.Create(&leads).Error; err != nil {
			lc.Logger.Printf("Failed to import final batch of leads: %v", err)
		} else {
			imported += len(leads)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message":    "Leads imported successfully",
		"total_rows": len(rows),
		"imported":   imported,
		"skipped":    skipped,
	}))
}

// optionalAttr returns a pointer to value when it is one of the allowed
// attribute values, nil otherwise. Unknown values are treated as absent.
func optionalAttr(value string, allowed ...string) *string {
	for _, a := range allowed {
		if value == a {
			return &value
		}
	}
	return nil
}

// ExportLeads exports leads to CSV
func (lc *LeadController) ExportLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var leads []models.Lead
	if err := lc.DB.Where("user_id = ?", user.ID).Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=leads_export_"+time.Now().Format("20060102")+".csv")

	writer := csv.NewWriter(c)
	defer writer.Flush()

	// Write header
	header := []string{"email", "first_name", "last_name", "phone", "company", "niche", "readiness_score", "readiness_tier", "status", "sequence", "route"}
	if err := writer.Write(header); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate CSV", err)
	}

	// Write data
	for _, lead := range leads {
		record := []string{
			lead.Email,
			lead.FirstName,
			lead.LastName,
			lead.Phone,
			lead.Company,
			lead.Niche,
			strconv.Itoa(lead.ReadinessScore),
			lead.ReadinessTier,
			lead.Status,
			lead.SequenceName,
			lead.Route,
		}
		if err := writer.Write(record); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate CSV", err)
		}
	}

	return nil
}
