package http

import (
	"strings"
	"time"

	"devmatch/internal/auth/usecase"
	apperrors "devmatch/internal/shared/errors"
	"devmatch/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// requestIDLocal is the Fiber locals key the requestid middleware stores the ID under.
const requestIDLocal = "requestid"

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase      usecase.AuthUsecaseInterface
	cookieName   string
	rateLimitMax int
}

// NewAuthMiddleware creates a new authentication middleware. rateLimitMax is the number of
// requests per minute per client IP allowed on public auth routes; 0 disables limiting.
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cookieName string, rateLimitMax int) *AuthMiddleware {
	return &AuthMiddleware{
		usecase:      uc,
		cookieName:   cookieName,
		rateLimitMax: rateLimitMax,
	}
}

// CORS allows the given comma-separated origins to call the API with credentials.
func CORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	})
}

// SecurityHeaders adds security headers
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RequestID assigns every request an ID, echoes it in X-Request-ID and stores it in the
// request's user context for logging.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: requestIDLocal,
	})
}

// RequestContext copies the request ID into the user context. Must run after RequestID.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestIDLocal).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// RateLimiter creates rate limiting middleware for auth endpoints
func (m *AuthMiddleware) RateLimiter() fiber.Handler {
	if m.rateLimitMax <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               m.rateLimitMax,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// Protect returns middleware that requires authentication
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := m.extractToken(c)
		if token == "" {
			return sendError(c, fiber.StatusUnauthorized, usecase.ErrTokenInvalid.Message)
		}

		claims, err := m.usecase.ValidateToken(c.UserContext(), token)
		if err != nil {
			if apperrors.IsAuthentication(err) {
				return sendError(c, fiber.StatusUnauthorized, usecase.ErrTokenInvalid.Message)
			}
			return sendError(c, apperrors.HTTPStatus(err), err.Error())
		}

		c.SetUserContext(utils.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// extractToken reads the session cookie, falling back to a Bearer Authorization header.
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) string {
	if token := c.Cookies(m.cookieName); token != "" {
		return token
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// GetUserID returns the user ID that Protect stored on the request context.
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	return userID, err == nil && userID != ""
}
