package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medtracker/internal/config"
	"medtracker/internal/database"
	"medtracker/internal/handlers"
	"medtracker/internal/jobs"
	"medtracker/internal/logging"
	"medtracker/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting MedTracker Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Timezone: %s, Tick: %v)", cfg.Port, cfg.Timezone, cfg.TickInterval)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("❌ Invalid REMINDER_TIMEZONE %q: %v", cfg.Timezone, err)
	}

	// Initialize MongoDB
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoDB.Initialize(initCtx); err != nil {
		cancelInit()
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}
	cancelInit()

	// Initialize Redis (optional - inbound webhook dedupe)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (inbound dedupe disabled)", err)
			redisService = nil
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - inbound dedupe disabled")
	}

	// Initialize services
	metrics := services.InitMetrics()
	medicationStore := services.NewMedicationStore(mongoDB)
	reminderLogStore := services.NewReminderLogStore(mongoDB, loc)
	confirmationStore := services.NewConfirmationStore(mongoDB)
	twilioSender := services.NewTwilioSender(cfg)
	reminderService := services.NewReminderService(medicationStore, reminderLogStore, twilioSender, metrics, loc, cfg.NotifyTimeout)
	matcher := services.NewResponseMatcher(reminderLogStore, confirmationStore, metrics, cfg.ResponseLookback)
	adherenceService := services.NewAdherenceService(medicationStore, reminderLogStore, confirmationStore, loc)
	log.Println("✅ Services initialized")

	// Start the reminder tick
	scheduler, err := jobs.NewScheduler(loc)
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := scheduler.Register("reminder-check", jobs.NewReminderCheck(reminderService, cfg.TickInterval)); err != nil {
		log.Fatalf("❌ Failed to register reminder check job: %v", err)
	}
	scheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "MedTracker API",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(limiter.New(limiter.Config{
		Max:        200,
		Expiration: time.Minute,
	}))

	prometheus := fiberprometheus.New("medtracker")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Handlers
	medicationHandler := handlers.NewMedicationHandler(medicationStore, adherenceService, matcher, loc)
	webhookHandler := handlers.NewWebhookHandler(matcher, redisService)
	healthHandler := handlers.NewHealthHandler(mongoDB, scheduler)

	// Routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "MedTracker API is running"})
	})
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")

	medications := api.Group("/medications")
	medications.Post("/", medicationHandler.Create)
	medications.Get("/", medicationHandler.List)
	medications.Delete("/:id", medicationHandler.Delete)
	medications.Post("/medication-response", medicationHandler.HandleResponse)
	medications.Get("/medication-adherence/:patient_name", medicationHandler.Adherence)
	medications.Get("/medication-confirmations/:patient_name", medicationHandler.Confirmations)
	medications.Get("/medication-status/:patient_name", medicationHandler.TodayStatus)

	twilio := api.Group("/twilio")
	twilio.Post("/twilio-webhook", webhookHandler.HandleSMS)
	twilio.Post("/whatsapp-webhook", webhookHandler.HandleWhatsApp)
	twilio.Post("/test-medication-response", webhookHandler.TestResponse)

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()
	log.Printf("✅ MedTracker listening on port %s", cfg.Port)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	if err := scheduler.Stop(); err != nil {
		log.Printf("⚠️ Scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}
	if redisService != nil {
		redisService.Close()
	}
	log.Println("✅ Server stopped")
}
