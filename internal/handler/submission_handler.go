package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/service"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	log               *zap.Logger
}

func NewSubmissionHandler(submissionService *service.SubmissionService, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		log:               log.Named("submission_handler"),
	}
}

func (h *SubmissionHandler) Create(c *fiber.Ctx) error {
	var form models.IntakeForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}

	res, err := h.submissionService.Submit(c.UserContext(), form)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// ResumeCheckout lets a submitter retry payment after a gateway failure or an
// expired session.
func (h *SubmissionHandler) ResumeCheckout(c *fiber.Ctx) error {
	res, err := h.submissionService.ResumeCheckout(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}
