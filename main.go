package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jeshanrai/orderbot-backend/database"
	"github.com/jeshanrai/orderbot-backend/internal/jobs"
	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/routes"
	"github.com/jeshanrai/orderbot-backend/internal/services"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store
	useMemory := os.Getenv("USE_MEMORY_STORE") == "true"
	if useMemory {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		memStore := storage.NewMemoryStore()
		store = memStore
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.SessionRecord{},
			&models.MenuItem{},
			&models.Order{},
			&models.OrderItem{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Session store driver: memory (default), postgres, or redis
	sessionDriver := os.Getenv("SESSION_STORE")
	if sessionDriver == "" {
		if useMemory {
			sessionDriver = storage.SessionStoreMemory
		} else {
			sessionDriver = storage.SessionStorePostgres
		}
	}
	var redisClient *redis.Client
	if sessionDriver == storage.SessionStoreRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	}
	var sessions storage.SessionStore
	if useMemory && sessionDriver == storage.SessionStoreMemory {
		// Reuse the single memory store so sessions and orders share state.
		sessions = store.(*storage.MemoryStore)
	} else {
		var err error
		sessions, err = storage.NewSessionStore(sessionDriver, database.DB, redisClient)
		if err != nil {
			log.Fatal("Failed to initialize session store:", err)
		}
	}
	log.Printf("✅ Session store: %s", sessionDriver)

	// Seed the menu on first boot
	seedMenu(store)

	// Initialize the reply channel
	var renderer services.Renderer
	twilioRenderer, err := services.NewTwilioRenderer()
	if err != nil {
		log.Printf("⚠️  Twilio not configured, replies will only be logged: %v", err)
		renderer = services.NewLogRenderer()
	} else {
		log.Println("✅ Twilio renderer initialized")
		renderer = twilioRenderer
	}

	// Intent classification
	classifier, err := services.NewOpenAIClassifier()
	if err != nil {
		log.Fatal("Failed to initialize classifier:", err)
	}
	var classifyTimeout time.Duration
	if raw := os.Getenv("CLASSIFIER_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			classifyTimeout = time.Duration(secs) * time.Second
		}
	}
	engine := services.NewIntentEngine(classifier, classifyTimeout)

	// Domain services
	catalog := services.NewStoreCatalog(store)
	orders := services.NewStoreOrders(store)
	payments := services.NewPaymentService(store, sessions, renderer)

	dispatcher, err := services.NewDispatcher(catalog, orders, payments)
	if err != nil {
		log.Fatal("Failed to initialize dispatcher:", err)
	}
	orchestrator := services.NewOrchestrator(sessions, engine, dispatcher, renderer)

	// Start the abandoned-cart reminder job
	reminderJob := jobs.NewCartReminderJob(sessions, renderer)
	reminderJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "OrderBot Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, store, orchestrator, payments)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		reminderJob.Stop()
		if err := sessions.Close(); err != nil {
			log.Printf("⚠️  Session store close: %v", err)
		}
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 OrderBot Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType(useMemory))
	log.Printf("🗂  Sessions: %s", sessionDriver)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func storageType(useMemory bool) string {
	if useMemory {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

// seedMenu loads a starter menu when the catalog is empty.
func seedMenu(store storage.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := store.CountMenuItems(ctx)
	if err != nil {
		log.Printf("⚠️  Menu count check failed, skipping seed: %v", err)
		return
	}
	if count > 0 {
		return
	}

	log.Println("🌱 Seeding starter menu...")
	items := []*models.MenuItem{
		{ID: "momo-steam", Name: "Steam Momo", Category: "Momo", Description: "Classic steamed chicken dumplings", Price: decimal.NewFromInt(180), Available: true, Tags: "popular,chicken"},
		{ID: "momo-fried", Name: "Fried Momo", Category: "Momo", Description: "Crispy fried chicken dumplings", Price: decimal.NewFromInt(220), Available: true, Tags: "popular,chicken,fried"},
		{ID: "momo-jhol", Name: "Jhol Momo", Category: "Momo", Description: "Steamed momo in spicy sesame broth", Price: decimal.NewFromInt(240), Available: true, Tags: "spicy,chicken"},
		{ID: "chowmein-chicken", Name: "Chicken Chowmein", Category: "Noodles", Description: "Stir-fried noodles with chicken", Price: decimal.NewFromInt(200), Available: true, Tags: "chicken"},
		{ID: "chowmein-veg", Name: "Veg Chowmein", Category: "Noodles", Description: "Stir-fried noodles with vegetables", Price: decimal.NewFromInt(160), Available: true, Tags: "veg,vegetarian"},
		{ID: "thukpa", Name: "Thukpa", Category: "Noodles", Description: "Himalayan noodle soup", Price: decimal.NewFromInt(190), Available: true, Tags: "soup,spicy"},
		{ID: "coke", Name: "Coke", Category: "Drinks", Description: "Coca-Cola 500ml", Price: decimal.NewFromInt(80), Available: true, Tags: "cold"},
		{ID: "lassi", Name: "Lassi", Category: "Drinks", Description: "Sweet yogurt drink", Price: decimal.NewFromInt(120), Available: true, Tags: "cold,sweet"},
		{ID: "beer-local", Name: "Gorkha Beer", Category: "Drinks", Description: "Local lager 650ml", Price: decimal.NewFromInt(450), Available: true, AgeRestricted: true, Tags: "cold,alcohol"},
	}
	for _, item := range items {
		if err := store.UpsertMenuItem(ctx, item); err != nil {
			log.Printf("⚠️  Failed to seed %s: %v", item.ID, err)
		}
	}
	log.Printf("✅ Seeded %d menu items", len(items))
}
