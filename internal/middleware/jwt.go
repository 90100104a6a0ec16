package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-eval-api/internal/session"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

const sessionLocalKey = "session"

var now = time.Now

// SessionClaims are the claims of a session bearer token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a bearer token bound to the session and its current state. The token
// lifetime is independent of the session idle timeout, which the session manager enforces.
func IssueSessionToken(secret, sessionID string, state session.State, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret must not be empty")
	}
	issuedAt := now()
	claims := SessionClaims{
		SessionID: sessionID,
		Role:      string(state),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// SessionAuth validates the bearer token and attaches the live session to the request.
func SessionAuth(secret string, sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "unauthenticated", "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "unauthenticated", "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "unauthenticated", "invalid token")
		}

		var claims SessionClaims
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		}, jwt.WithTimeFunc(now))
		if err != nil || !token.Valid || claims.SessionID == "" {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "unauthenticated", "invalid token")
		}

		controller, err := sessions.Get(claims.SessionID)
		if err != nil {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "session_expired", "session expired")
		}

		c.Locals(sessionLocalKey, controller)
		c.Locals("user_role", string(controller.State()))
		return c.Next()
	}
}

// SessionFrom returns the session attached by SessionAuth, or nil.
func SessionFrom(c *fiber.Ctx) *session.Controller {
	controller, _ := c.Locals(sessionLocalKey).(*session.Controller)
	return controller
}
