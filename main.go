package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"biblio/internal/config"
	"biblio/internal/gbooks"
	"biblio/internal/handlers"
	"biblio/internal/middleware"
	"biblio/internal/models"
	"biblio/internal/repositories"
	"biblio/internal/services"
	"biblio/pkg/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Database ---
	// TranslateError maps driver-level unique violations onto
	// gorm.ErrDuplicatedKey, which the repositories rely on.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnLifetime)

	if err := db.SetupJoinTable(&models.User{}, "Books", &models.LibraryEntry{}); err != nil {
		log.Fatalf("Failed to set up join table: %v", err)
	}
	if err := db.SetupJoinTable(&models.Book{}, "Users", &models.LibraryEntry{}); err != nil {
		log.Fatalf("Failed to set up join table: %v", err)
	}
	err = db.AutoMigrate(&models.User{}, &models.Book{}, &models.APIKey{}, &models.LibraryEntry{})
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ ---
	mqClient, err := events.NewClient(events.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
	}
	defer mqClient.Close()

	go func() {
		log.Println("Starting RabbitMQ consumer for library events...")
		err := mqClient.Consume(func(msg amqp.Delivery) error {
			log.Printf("Received %s event (Tag: %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
			return nil
		})
		if err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}()

	// --- Services ---
	uowFactory := repositories.NewGORMUnitOfWorkFactory(db)
	passwordService := services.NewPasswordService()
	jwtService := services.NewJWTService(uowFactory, passwordService, cfg.JWTSecret, cfg.JWTAccessExpire, cfg.JWTRefreshExpire)
	apiKeyService := services.NewAPIKeyService(uowFactory, cfg.APIKeyLength)
	usersService := services.NewUsersService(uowFactory, passwordService, mqClient)

	catalog := gbooks.NewGoogleBooksClient(cfg.GBooksBaseURL)
	booksService := services.NewBooksService(uowFactory, catalog)
	libraryService := services.NewLibraryService(uowFactory, catalog, mqClient)

	// --- Handlers ---
	jwtHandler := handlers.NewJWTHandler(jwtService)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService)
	usersHandler := handlers.NewUsersHandler(usersService)
	booksHandler := handlers.NewBooksHandler(booksService, libraryService)

	// --- Fiber app ---
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")

	// Token issuance is public.
	jwtHandler.RegisterRoutes(apiV1)

	// Provider search is public and cached for 3 seconds per distinct
	// parameter set.
	searchGroup := apiV1.Group("", cache.New(cache.Config{
		Expiration: 3 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.OriginalURL()
		},
	}))
	booksHandler.RegisterSearchRoute(searchGroup)

	// Key and user management require a bearer JWT.
	jwtProtected := apiV1.Group("", middleware.JWTRequired(jwtService))
	apiKeyHandler.RegisterRoutes(jwtProtected)
	usersHandler.RegisterRoutes(jwtProtected)

	// The library surface authenticates with an API key.
	apiKeyProtected := apiV1.Group("", middleware.APIKeyRequired(apiKeyService))
	booksHandler.RegisterRoutes(apiKeyProtected)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
