package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"nurtureflow/config"
	controller "nurtureflow/controllers"
	"nurtureflow/middleware"
	"nurtureflow/nurture"
	"nurtureflow/routes"
	"nurtureflow/utils"
	"nurtureflow/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "NURTURE: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Build the nurture engine
	scorer := nurture.NewScorer()
	scheduler := nurture.NewScheduler(nurture.DefaultLibrary(), nil)
	engine := nurture.NewExecutor(scorer, scheduler, buildDeliverer())

	hub := controller.NewAlertHub()

	// Initialize and start the nurture worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nurtureWorker := worker.NewNurtureWorker(config.DB, engine, logger)
	go nurtureWorker.Start(ctx)

	// Reply scanning is opt-in; it needs an IMAP mailbox
	if config.AppConfig.IMAP.Enabled {
		replyWorker := worker.NewReplyWorker(config.DB, engine, log.New(os.Stdout, "REPLY: ", log.LstdFlags), config.AppConfig.IMAP, hub.Broadcast)
		go replyWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupAuthRoutes(app, config.DB)
	routes.SetupAPIRoutes(app, config.DB, engine, hub)

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// buildDeliverer wires the configured delivery mode. SMTP mode sends real
// email for the email channel and simulates the rest; simulate mode is the
// default and touches no external systems.
func buildDeliverer() nurture.Deliverer {
	simulator := nurture.NewSimulator(nil)

	if config.AppConfig.DeliveryMode != "smtp" {
		return simulator
	}

	smtpLogger := logrus.New()
	smtpLogger.SetFormatter(&logrus.JSONFormatter{})

	return &nurture.ChannelRouter{
		PerChannel: map[nurture.Channel]nurture.Deliverer{
			nurture.ChannelEmail: utils.NewSMTPDeliverer(config.AppConfig.SMTP, config.AppConfig.BaseURL, smtpLogger),
		},
		Default: simulator,
	}
}
