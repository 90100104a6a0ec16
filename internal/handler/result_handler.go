package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// ResultHandler lets students read their own saved result.
type ResultHandler struct {
	logger zerolog.Logger
}

// NewResultHandler builds a student result handler.
func NewResultHandler(logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{logger: logger.With().Str("component", "result_handler").Logger()}
}

// Register attaches the student routes.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("/results/:id", h.get)
	router.Get("/results/:id/pdf", h.pdf)
}

func (h *ResultHandler) get(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	result, err := controller.LookupResult(c.UserContext(), c.Params("id"), c.Query("roll_no"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "result retrieved", result)
}

func (h *ResultHandler) pdf(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	result, err := controller.LookupResult(c.UserContext(), c.Params("id"), c.Query("roll_no"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendResultPDF(c, h.logger, result)
}
