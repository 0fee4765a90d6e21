package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/config"
	"github.com/thetankguide/featuretank/internal/handler"
	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/repository"
	"github.com/thetankguide/featuretank/internal/service"
	"github.com/thetankguide/featuretank/pkg/database"
	"github.com/thetankguide/featuretank/pkg/email"
	zaplogger "github.com/thetankguide/featuretank/pkg/logger"
	"github.com/thetankguide/featuretank/pkg/payment"
	"github.com/thetankguide/featuretank/pkg/utils"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.LoadConfig()

	zl, err := zaplogger.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if envErr != nil {
		zl.Info("no .env file loaded, using process environment")
	}

	if missing := cfg.MissingSecrets(); len(missing) > 0 {
		if cfg.IsProduction() {
			zl.Fatal("required secrets are not set", zap.Strings("missing", missing))
		}
		for _, key := range missing {
			zl.Warn("required secret is not set", zap.String("key", key))
		}
	}

	db, err := database.NewDatabase(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}

	// Repositories
	submissionRepo := repository.NewSubmissionRepository(db, zl)
	userRepo := repository.NewUserRepository(db)
	purchaseRepo := repository.NewCreditPurchaseRepository(db)

	// Email service
	emailService, err := email.NewEmailService(email.Config{
		APIKey:      cfg.Email.ResendAPIKey,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	}, zl)
	if err != nil {
		zl.Fatal("email", zap.Error(err))
	}
	notifications := service.NewNotifications(emailService, zl)

	// Stripe service
	stripeService := payment.NewStripeService(payment.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		Prices: payment.PriceCatalog{
			Editing:     cfg.Stripe.PriceEditing,
			Tank:        cfg.Stripe.PriceAdditionalTank,
			ExtraPhotos: cfg.Stripe.PriceExtraPhotos,
		},
		Currency:   cfg.Stripe.Currency,
		SuccessURL: cfg.SuccessURL(),
		CancelURL:  cfg.CancelURL(),
	})
	verifier := payment.NewSignatureVerifier(cfg.Stripe.WebhookSecret)

	validator := utils.NewValidator()

	// Services
	submissionService := service.NewSubmissionService(submissionRepo, userRepo, stripeService, notifications, validator, zl)
	lifecycleService := service.NewLifecycleService(submissionRepo, verifier, stripeService, notifications, zl)
	adminService := service.NewAdminService(cfg.Admin.PasswordHash, submissionRepo, purchaseRepo, userRepo, zl)

	// Router
	app := fiber.New(fiber.Config{
		AppName:      "featuretank",
		ErrorHandler: errorHandler(zl),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Stripe-Signature",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(logger.New())

	handler.SetupRoutes(app, handler.Handlers{
		Submission: handler.NewSubmissionHandler(submissionService, zl),
		Webhook:    handler.NewWebhookHandler(lifecycleService, zl),
		Admin:      handler.NewAdminHandler(adminService, lifecycleService, validator, cfg.Admin.CookieSecure, zl),
		Health:     handler.NewHealthHandler(submissionRepo, zl),
	}, adminService)

	go func() {
		zl.Info("listening", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
	notifications.Wait()
	zl.Info("stopped")
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and recovered panics, in the same JSON shape the handlers use.
func errorHandler(zl *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			zl.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(models.ErrorResponse(msg))
	}
}
