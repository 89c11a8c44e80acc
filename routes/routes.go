package routes

import (
	"log"
	"os"

	controller "nurtureflow/controllers"
	"nurtureflow/middleware"
	"nurtureflow/nurture"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	// Log initialization
	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, engine *nurture.Executor, hub *controller.AlertHub) {
	// Initialize controllers with their respective loggers
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags), engine.Scorer)
	nurtureController := controller.NewNurtureController(db, log.New(os.Stdout, "NURTURE: ", log.LstdFlags), engine, hub)
	trackingController := controller.NewTrackingController(db, log.New(os.Stdout, "TRACK: ", log.LstdFlags), engine, hub)
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Lead routes. The static import/export paths must be registered before
	// the :id wildcard or the wildcard swallows them.
	lead := api.Group("/leads")
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Post("/import", leadController.ImportLeads)
	lead.Get("/export", leadController.ExportLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Put("/:id", leadController.UpdateLead)
	lead.Delete("/:id", leadController.DeleteLead)

	// Nurture routes
	api.Get("/sequences", nurtureController.GetSequences)
	api.Post("/nurture/process-due", nurtureController.ProcessDue)

	nurtureLead := api.Group("/leads/:id")
	nurtureLead.Post("/enroll", nurtureController.Enroll)
	nurtureLead.Get("/schedule-preview", nurtureController.PreviewSchedule)
	nurtureLead.Get("/readiness", nurtureController.GetReadiness)
	nurtureLead.Post("/engagement", nurtureController.RecordEngagement)
	nurtureLead.Post("/unsubscribe", nurtureController.Unsubscribe)
	nurtureLead.Post("/convert", nurtureController.Convert)

	// Sales alert routes
	alerts := api.Group("/alerts")
	alerts.Get("/", nurtureController.GetAlerts)
	alerts.Post("/:id/acknowledge", nurtureController.AcknowledgeAlert)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)

	// WebSocket route for live sales alerts
	app.Get("/api/v1/alerts/ws", middleware.Protected(), websocket.New(func(c *websocket.Conn) {
		hub.HandleAlertsWS(c)
	}))

	// Public tracking endpoints, rate limited per caller
	track := app.Group("/track", middleware.TrackRateLimiter())
	track.Get("/open/:messageID/:token", trackingController.HandleOpenTracking)
	track.Get("/click/:messageID/:token", trackingController.HandleClickTracking)
	track.Post("/reply", trackingController.HandleReplyWebhook)

	// 404 fallback
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}
