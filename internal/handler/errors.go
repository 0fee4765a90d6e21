package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/models"
)

// respondError writes err as a JSON error response. Causes behind 5xx and
// 401 responses are logged, never returned.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	appErr, ok := models.AsAppError(err)
	if !ok {
		appErr = models.NewInternalError("internal error", err)
	}

	status := appErr.StatusCode()
	msg := appErr.Message
	switch {
	case appErr.Kind == models.KindUnauthorized:
		msg = "Unauthorized"
	case appErr.Kind == models.KindPaymentGateway:
		log.Error("payment gateway failure", zap.String("path", c.Path()), zap.Error(err))
	case status >= fiber.StatusInternalServerError:
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		msg = "Internal server error"
	}
	if msg == "" {
		msg = "Request failed"
	}
	return c.Status(status).JSON(models.ErrorResponse(msg))
}
