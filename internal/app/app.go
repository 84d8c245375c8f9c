package app

import (
	"errors"
	"fmt"
	"time"

	"cvanalyzer_backend/internal/ai"
	"cvanalyzer_backend/internal/auth"
	"cvanalyzer_backend/internal/config"
	"cvanalyzer_backend/internal/handlers"
	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/middleware"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/payments"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/routes"
	"cvanalyzer_backend/internal/services"
	"cvanalyzer_backend/internal/storage"
	"cvanalyzer_backend/internal/validator"
	"cvanalyzer_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	// .env is optional; real deployments use actual environment variables.
	_ = godotenv.Load()

	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := Migrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter, serviceContainer := SetupRouter(cfg, gormDB)

	worker := workers.NewMaintenanceWorker(
		gormDB,
		repositories.NewResumeRepository(),
		repositories.NewUserRepository(),
		serviceContainer.CreditService,
	)
	if err := worker.Start(); err != nil {
		logger.Fatal("Failed to start maintenance worker", "error", err)
	}
	defer worker.Stop()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// Migrate applies the schema. GORM auto-migration matches how small the
// schema is; a migration tool would be overkill for seven tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Profile{},
		&models.CreditTransaction{},
		&models.BillingPlan{},
		&models.Resume{},
		&models.ParsedResume{},
	)
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *services.ServiceContainer) {
	storageInstance, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		UseSSL:     cfg.Storage.UseSSL,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	extractor := ai.NewClient(ai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})

	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	ginRouter, serviceContainer, _ := SetupRouterWith(gormDB, extractor, gateway, storageInstance)
	return ginRouter, serviceContainer
}

// SetupRouterWith wires the router against explicit external dependencies.
// Tests use it to substitute the AI service, the payment gateway, or storage.
func SetupRouterWith(
	gormDB *gorm.DB,
	extractor ai.Extractor,
	gateway payments.Gateway,
	storageInstance storage.Storage,
) (*gin.Engine, *services.ServiceContainer, *handlers.AppHandlers) {
	serviceContainer := services.NewServiceContainer(extractor, gateway, storageInstance)
	appHandlers := initializeHandlers(serviceContainer, storageInstance)

	ginRouter := initializeGinRouter(gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter, serviceContainer, appHandlers
}

func initializeHandlers(container *services.ServiceContainer, storageInstance storage.Storage) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	resumeRepo := repositories.NewResumeRepository()

	return &handlers.AppHandlers{
		AuthHandler:     handlers.NewAuthHandler(baseHandler, container.AuthService),
		ResumeHandler:   handlers.NewResumeHandler(baseHandler, container.ResumeService),
		CreditHandler:   handlers.NewCreditHandler(baseHandler, container.CreditService),
		PlanHandler:     handlers.NewPlanHandler(baseHandler, container.PlanService),
		CheckoutHandler: handlers.NewCheckoutHandler(baseHandler, container.CheckoutService),
		UserHandler:     handlers.NewUserHandler(baseHandler, container.UserService),
		FileHandler:     handlers.NewFileHandler(baseHandler, storageInstance, resumeRepo),
	}
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

// seedFirstAdmin creates the bootstrap super admin from FIRST_ADMIN_EMAIL and
// FIRST_ADMIN_PASSWORD. Without it a fresh deployment has no way to reach the
// back office.
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		result := tx.Where("email = ?", adminEmail).First(&existing)
		if result.Error == nil {
			logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for admin user: %w", result.Error)
		}

		logger.Warn("No admin user found. Creating first super admin...", "email", adminEmail)

		hash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		admin := &models.User{
			Email:        adminEmail,
			PasswordHash: hash,
			Role:         models.UserRoleSuperAdmin,
			Status:       models.UserStatusActive,
		}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		profile := &models.Profile{
			UserID:           admin.ID,
			Credits:          models.UnlimitedCredits,
			SubscriptionTier: models.SubscriptionTierPremium,
		}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create admin profile: %w", err)
		}

		logger.Info("First super admin created", "email", adminEmail)
		return nil
	})
}
