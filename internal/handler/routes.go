package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/thetankguide/featuretank/internal/middleware"
)

type Handlers struct {
	Submission *SubmissionHandler
	Webhook    *WebhookHandler
	Admin      *AdminHandler
	Health     *HealthHandler
}

// IntakeRateLimit bounds intake requests per client IP per minute.
const IntakeRateLimit = 20

func SetupRoutes(app *fiber.App, h Handlers, sessions middleware.SessionValidator) {
	intakeLimiter := limiter.New(limiter.Config{
		Max:        IntakeRateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	})

	app.Get("/health", h.Health.Check)

	app.Post("/submissions", intakeLimiter, h.Submission.Create)
	app.Post("/submissions/:id/checkout", intakeLimiter, h.Submission.ResumeCheckout)

	app.Post("/webhooks/payment", h.Webhook.HandlePayment)

	admin := app.Group("/admin")
	admin.Post("/login", h.Admin.Login)
	admin.Post("/logout", h.Admin.Logout)

	auth := middleware.AdminAuth(sessions)
	admin.Get("/submissions", auth, h.Admin.List)
	admin.Get("/submissions/:id", auth, h.Admin.Get)
	admin.Post("/submissions/:id/status", auth, h.Admin.UpdateStatus)
	admin.Post("/submissions/:id/credits/use", auth, h.Admin.UseCredits)
	admin.Get("/stats", auth, h.Admin.Stats)
}
