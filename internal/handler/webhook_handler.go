package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/service"
	"github.com/thetankguide/featuretank/pkg/payment"
)

type WebhookHandler struct {
	lifecycleService *service.LifecycleService
	log              *zap.Logger
}

func NewWebhookHandler(lifecycleService *service.LifecycleService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		lifecycleService: lifecycleService,
		log:              log.Named("webhook_handler"),
	}
}

func (h *WebhookHandler) HandlePayment(c *fiber.Ctx) error {
	// Fiber reuses the body buffer after the handler returns.
	payload := append([]byte(nil), c.Body()...)
	signature := c.Get(payment.SignatureHeader)

	if err := h.lifecycleService.HandleWebhook(c.UserContext(), payload, signature); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(models.WebhookAck{Received: true})
}
