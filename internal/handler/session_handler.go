package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/session"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// SessionHandler opens sessions and drives their role and sign-in transitions.
type SessionHandler struct {
	sessions  *session.Manager
	secret    string
	tokenTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionHandler builds a session handler.
func NewSessionHandler(sessions *session.Manager, secret string, tokenTTL time.Duration, validator *validator.Validate, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		secret:    secret,
		tokenTTL:  tokenTTL,
		validator: validator,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// RegisterPublic attaches the routes available without a token.
func (h *SessionHandler) RegisterPublic(router fiber.Router) {
	router.Post("", h.create)
}

// Register attaches the routes of the current session.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("", h.current)
	router.Post("/role", h.selectRole)
	router.Post("/sign-in", h.signIn)
	router.Delete("", h.signOut)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	var payload dto.SessionCreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.logger, err)
	}

	controller := h.sessions.Create()
	if payload.Role != "" {
		if err := controller.SelectRole(session.Role(payload.Role)); err != nil {
			h.sessions.Remove(controller.ID())
			return handleError(c, h.logger, err)
		}
	}

	requestLogger(h.logger, c).Info().Str("session_id", controller.ID()).Str("state", string(controller.State())).Msg("session opened")
	return h.respond(c, fiber.StatusCreated, "session created", controller)
}

func (h *SessionHandler) current(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return h.respond(c, fiber.StatusOK, "session retrieved", controller)
}

func (h *SessionHandler) selectRole(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Var(payload.Role, "required,oneof=teacher student"); err != nil {
		return handleError(c, h.logger, err)
	}

	if err := controller.SelectRole(session.Role(payload.Role)); err != nil {
		return handleError(c, h.logger, err)
	}
	return h.respond(c, fiber.StatusOK, "role selected", controller)
}

func (h *SessionHandler) signIn(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	var payload dto.SignInRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.logger, err)
	}

	if _, err := controller.SignIn(c.UserContext(), payload.Email, payload.Password); err != nil {
		return handleError(c, h.logger, err)
	}
	return h.respond(c, fiber.StatusOK, "signed in", controller)
}

func (h *SessionHandler) signOut(c *fiber.Ctx) error {
	controller, err := currentSession(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	controller.SignOut()
	return h.respond(c, fiber.StatusOK, "signed out", controller)
}

func (h *SessionHandler) respond(c *fiber.Ctx, status int, message string, controller *session.Controller) error {
	snapshot := controller.Snapshot()
	token, err := middleware.IssueSessionToken(h.secret, snapshot.ID, snapshot.State, h.tokenTTL)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, status, message, dto.SessionResponse{Snapshot: snapshot, Token: token})
}
