package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/middleware"
	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/service"
	"github.com/thetankguide/featuretank/pkg/utils"
)

const adminSessionTTL = 24 * time.Hour

type AdminHandler struct {
	adminService     *service.AdminService
	lifecycleService *service.LifecycleService
	validator        *utils.Validator
	secureCookie     bool
	log              *zap.Logger
}

func NewAdminHandler(adminService *service.AdminService, lifecycleService *service.LifecycleService, validator *utils.Validator, secureCookie bool, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		lifecycleService: lifecycleService,
		validator:        validator,
		secureCookie:     secureCookie,
		log:              log.Named("admin_handler"),
	}
}

func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req models.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.log, models.ErrUnauthorized)
	}

	session, err := h.adminService.Login(req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    session,
		Path:     "/",
		Expires:  time.Now().Add(adminSessionTTL),
		MaxAge:   int(adminSessionTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(models.SuccessResponse(nil, "Logged in"))
}

func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(models.SuccessResponse(nil, "Logged out"))
}

func (h *AdminHandler) List(c *fiber.Ctx) error {
	filter := models.SubmissionFilter{
		Status: models.SubmissionStatus(c.Query("status")),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	page, err := h.adminService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(models.SuccessResponse(page, ""))
}

func (h *AdminHandler) Get(c *fiber.Ctx) error {
	detail, err := h.adminService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(models.SuccessResponse(detail, ""))
}

func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	var req models.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if msg := h.validator.Message(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(msg))
	}

	sub, err := h.lifecycleService.SetStatus(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(models.SuccessResponse(sub, "Status updated"))
}

func (h *AdminHandler) UseCredits(c *fiber.Ctx) error {
	var req models.UseCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if msg := h.validator.Message(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(msg))
	}

	sub, err := h.lifecycleService.UseCredits(c.UserContext(), c.Params("id"), req.Count)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(models.SuccessResponse(fiber.Map{
		"submission":        sub,
		"remaining_credits": sub.RemainingCredits(),
	}, "Credits used"))
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.adminService.Stats(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(models.SuccessResponse(stats, ""))
}
