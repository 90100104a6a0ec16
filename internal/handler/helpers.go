package handler

import (
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/identity"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/session"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

const maxUploadBytes = 2 << 20

var (
	errUnsupportedUpload = errors.New("only plain text uploads are supported")
	errInvalidBody       = errors.New("invalid request body")
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func currentSession(c *fiber.Ctx) (*session.Controller, error) {
	controller := middleware.SessionFrom(c)
	if controller == nil {
		return nil, session.ErrSessionNotFound
	}
	return controller, nil
}

// readTextUpload returns the content of an uploaded text file, or "" when field holds no file.
func readTextUpload(c *fiber.Ctx, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}
	return readTextFile(file)
}

func readTextFile(file *multipart.FileHeader) (string, error) {
	if file.Size > maxUploadBytes {
		return "", fmt.Errorf("%w: %s is larger than %d bytes", errUnsupportedUpload, file.Filename, maxUploadBytes)
	}
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	for mime := mimetype.Detect(data); mime != nil; mime = mime.Parent() {
		if mime.Is("text/plain") {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("%w: %s", errUnsupportedUpload, file.Filename)
}

// textSanitizer strips markup from teacher edited free text.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s textSanitizer) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s textSanitizer) result(r models.EvaluationResult) models.EvaluationResult {
	out := r.Clone()
	out.StudentName = s.clean(out.StudentName)
	out.RollNo = s.clean(out.RollNo)
	out.Subject = s.clean(out.Subject)
	out.Summary.FinalGrade = s.clean(out.Summary.FinalGrade)
	out.Summary.OverallFeedback = s.clean(out.Summary.OverallFeedback)
	out.PlagiarismReport.Status = s.clean(out.PlagiarismReport.Status)
	out.PlagiarismReport.Summary = s.clean(out.PlagiarismReport.Summary)
	for i := range out.Evaluation {
		out.Evaluation[i].Feedback = s.clean(out.Evaluation[i].Feedback)
	}
	return out
}

func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	var authErr *identity.AuthError

	switch {
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	case errors.As(err, &authErr):
		if authErr.Kind == identity.KindOther {
			requestLogger(logger, c).Error().Err(err).Msg("sign-in unavailable")
			return utils.SendErrorCode(c, fiber.StatusServiceUnavailable, "sign_in_unavailable", "sign-in is temporarily unavailable")
		}
		requestLogger(logger, c).Info().Str("kind", string(authErr.Kind)).Msg("sign-in rejected")
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, models.ErrInvalidSubmissionID):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "invalid_submission_id", err.Error())
	case errors.Is(err, errInvalidBody):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "invalid_body", err.Error())
	case errors.Is(err, errUnsupportedUpload):
		return utils.SendErrorCode(c, fiber.StatusUnsupportedMediaType, "unsupported_upload", err.Error())
	case errors.Is(err, service.ErrDuplicateSubmission):
		return utils.SendErrorCode(c, fiber.StatusConflict, "duplicate_submission", err.Error())
	case errors.Is(err, service.ErrEvaluationInFlight):
		return utils.SendErrorCode(c, fiber.StatusConflict, "evaluation_in_progress", err.Error())
	case errors.Is(err, service.ErrSaveInFlight):
		return utils.SendErrorCode(c, fiber.StatusConflict, "save_in_progress", err.Error())
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		return utils.SendErrorCode(c, fiber.StatusServiceUnavailable, "evaluator_unavailable", err.Error())
	case errors.Is(err, service.ErrEvaluationFailed):
		requestLogger(logger, c).Warn().Err(err).Msg("evaluation failed")
		return utils.SendErrorCode(c, fiber.StatusBadGateway, "evaluation_failed", "the evaluator could not grade this submission")
	case errors.Is(err, service.ErrRemoteWriteFailed):
		requestLogger(logger, c).Error().Err(err).Msg("remote report write failed")
		return utils.SendErrorCode(c, fiber.StatusBadGateway, "remote_write_failed", service.ErrRemoteWriteFailed.Error())
	case errors.Is(err, service.ErrInvalidRecord):
		return utils.SendErrorCode(c, fiber.StatusUnprocessableEntity, "invalid_record", err.Error())
	case errors.Is(err, service.ErrRecordNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, service.ErrNoDraft):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "no_draft", err.Error())
	case errors.Is(err, session.ErrInvalidTransition):
		return utils.SendErrorCode(c, fiber.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, session.ErrNotPermitted):
		return utils.SendErrorCode(c, fiber.StatusForbidden, "not_permitted", err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, "session_expired", err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, "internal", "internal server error")
	}
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
