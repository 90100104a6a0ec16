package handler

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/export"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// EvaluationHandler serves the teacher workspace: drafts, saved records and exports.
type EvaluationHandler struct {
	validator *validator.Validate
	sanitizer textSanitizer
	logger    zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler.
func NewEvaluationHandler(validator *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		validator: validator,
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the teacher routes. submitGuard, when set, runs before a new evaluation.
func (h *EvaluationHandler) Register(router fiber.Router, submitGuard fiber.Handler) {
	if submitGuard != nil {
		router.Post("/evaluations", submitGuard, h.submit)
	} else {
		router.Post("/evaluations", h.submit)
	}
	router.Get("/evaluations/draft", h.draft)
	router.Post("/evaluations/draft/confirm", h.confirm)
	router.Delete("/evaluations/draft", h.discard)

	router.Get("/records", h.list)
	router.Get("/records/export.xlsx", h.exportWorkbook)
	router.Get("/records/:id", h.view)
	router.Put("/records/:id", h.update)
	router.Get("/records/:id/pdf", h.pdf)
}

func (h *EvaluationHandler) submit(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	payload, err := h.parseSubmission(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.logger, err)
	}

	draft, err := controller.Submit(c.UserContext(), service.SubmissionFields{
		SubmissionID:  payload.SubmissionID,
		StudentName:   h.sanitizer.clean(payload.StudentName),
		RollNo:        h.sanitizer.clean(payload.RollNo),
		Subject:       h.sanitizer.clean(payload.Subject),
		QuestionPaper: payload.QuestionPaper,
		AnswerSheet:   payload.AnswerSheet,
		CustomRules:   payload.CustomRules,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation drafted", draft)
}

// parseSubmission accepts JSON or a multipart form. In a form, questionPaperFile and
// answerSheetFile take precedence over the matching text fields.
func (h *EvaluationHandler) parseSubmission(c *fiber.Ctx) (dto.EvaluationSubmitRequest, error) {
	var payload dto.EvaluationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return payload, errInvalidBody
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		questionPaper, err := readTextUpload(c, "questionPaperFile")
		if err != nil {
			return payload, err
		}
		if questionPaper != "" {
			payload.QuestionPaper = questionPaper
		}

		answerSheet, err := readTextUpload(c, "answerSheetFile")
		if err != nil {
			return payload, err
		}
		if answerSheet != "" {
			payload.AnswerSheet = answerSheet
		}
	}

	payload.SubmissionID = strings.TrimSpace(payload.SubmissionID)
	return payload, nil
}

func (h *EvaluationHandler) draft(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	draft, err := controller.Draft()
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "draft retrieved", draft)
}

func (h *EvaluationHandler) confirm(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	var payload dto.ConfirmSaveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	var edits *models.EvaluationResult
	if payload.Record != nil {
		cleaned := h.sanitizer.result(*payload.Record)
		edits = &cleaned
	}

	saved, err := controller.ConfirmSave(c.UserContext(), edits)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Str("submission_id", saved.SubmissionID).Msg("evaluation saved")
	return utils.SendSuccess(c, "evaluation saved", saved)
}

func (h *EvaluationHandler) discard(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	if err := controller.Discard(); err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "draft discarded", nil)
}

func (h *EvaluationHandler) list(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	var records []models.EvaluationResult
	if c.Request().URI().QueryArgs().Has("q") {
		records, err = controller.Search(c.Query("q"))
	} else {
		records, err = controller.Records()
	}
	if err != nil {
		return handleError(c, h.logger, err)
	}

	meta := dto.RecordListMeta{Total: len(records), Query: controller.Snapshot().Query}
	return utils.OK(c, dto.NewRecordSummaries(records), "records retrieved", meta)
}

func (h *EvaluationHandler) exportWorkbook(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	records, err := controller.Records()
	if err != nil {
		return handleError(c, h.logger, err)
	}

	data, err := export.RecordsWorkbook(records)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="evaluations.xlsx"`)
	return c.Send(data)
}

func (h *EvaluationHandler) view(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	record, err := controller.View(c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "record retrieved", record)
}

func (h *EvaluationHandler) update(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	var payload models.EvaluationResult
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload = h.sanitizer.result(payload)
	payload.SubmissionID = c.Params("id")

	updated, err := controller.Update(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "record updated", updated)
}

func (h *EvaluationHandler) pdf(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	record, err := controller.View(c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendResultPDF(c, h.logger, record)
}

func sendResultPDF(c *fiber.Ctx, logger zerolog.Logger, record models.EvaluationResult) error {
	data, err := export.ResultPDF(record)
	if err != nil {
		return handleError(c, logger, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="evaluation-%s.pdf"`, record.SubmissionID))
	return c.Send(data)
}
