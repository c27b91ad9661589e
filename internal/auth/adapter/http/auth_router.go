package http

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"devmatch/internal/auth/config"
	"devmatch/internal/auth/usecase"
	apperrors "devmatch/internal/shared/errors"
	"devmatch/internal/shared/logger"
	"devmatch/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	errorPrefix       = "ERROR:"
	msgUserAdded      = "User added successfully"
	msgLoggedOut      = "User Logged out successfully"
	msgUsersRequired  = "Users array is required"
	msgInvalidRequest = "Invalid request body"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase        usecase.AuthUsecaseInterface
	logger         logger.Logger
	cookieName     string
	cookiePath     string
	cookieDomain   string
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite string
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(uc usecase.AuthUsecaseInterface, cfg *config.Config, log logger.Logger) *AuthHTTPHandler {
	if log == nil {
		log = &logger.NoopLogger{}
	}
	return &AuthHTTPHandler{
		usecase:        uc,
		logger:         log.WithComponent("auth_http"),
		cookieName:     cfg.CookieName,
		cookiePath:     cfg.CookiePath,
		cookieDomain:   cfg.CookieDomain,
		cookieSecure:   cfg.CookieSecure,
		cookieHTTPOnly: cfg.CookieHTTPOnly,
		cookieSameSite: cfg.CookieSameSite,
	}
}

// SetupAuthRoutesWithMiddleware sets up authentication routes with middleware
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(router fiber.Router, middleware *AuthMiddleware) {
	// Public routes (no authentication required), sharing one per-IP budget
	limit := middleware.RateLimiter()
	router.Post("/signup", limit, h.Signup)
	router.Post("/signupBulk", limit, h.SignupBulk)
	router.Post("/login", limit, h.Login)

	// Logout never requires a valid session
	router.Post("/logout", h.Logout)

	// Protected routes (authentication required)
	router.Get("/profile/view", middleware.Protect(), h.ViewProfile)
}

// Signup handles single user registration
func (h *AuthHTTPHandler) Signup(c *fiber.Ctx) error {
	var req usecase.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, msgInvalidRequest)
	}

	ctx := utils.WithOperation(c.UserContext(), "signup")
	user, token, err := h.usecase.Signup(ctx, req)
	if err != nil {
		h.logFailure(ctx, "Signup failed", err)
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	h.setCookie(c, token)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": msgUserAdded,
		"data":    user,
	})
}

// SignupBulk handles registration of many users in one request
func (h *AuthHTTPHandler) SignupBulk(c *fiber.Ctx) error {
	var body struct {
		Users []json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || len(body.Users) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msgUsersRequired,
		})
	}

	// Entries that are not objects become empty requests and fail validation individually.
	reqs := make([]usecase.SignupRequest, len(body.Users))
	for i, raw := range body.Users {
		if err := json.Unmarshal(raw, &reqs[i]); err != nil {
			reqs[i] = usecase.SignupRequest{}
		}
	}

	ctx := utils.WithOperation(c.UserContext(), "signupBulk")
	result, err := h.usecase.SignupBulk(ctx, reqs)
	if err != nil {
		h.logFailure(ctx, "Bulk signup failed", err)
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("%d users added successfully", len(result.Saved)),
		"data":    result.Saved,
		"skipped": len(result.Skipped),
	})
}

// Login handles user login
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, msgInvalidRequest)
	}

	ctx := utils.WithOperation(c.UserContext(), "login")
	user, token, err := h.usecase.Login(ctx, req)
	if err != nil {
		h.logFailure(ctx, "Login failed", err)
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	h.setCookie(c, token)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user": user,
	})
}

// Logout overwrites the session cookie with an expired one. It succeeds whatever the
// state of the caller's session.
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	ctx := utils.WithOperation(c.UserContext(), "logout")
	if err := h.usecase.Logout(ctx, c.Cookies(h.cookieName)); err != nil {
		h.logFailure(ctx, "Token revocation failed", err)
	}

	h.clearCookie(c)

	return c.Status(fiber.StatusOK).SendString(msgLoggedOut)
}

// ViewProfile returns the authenticated user's profile
func (h *AuthHTTPHandler) ViewProfile(c *fiber.Ctx) error {
	userID, ok := GetUserID(c)
	if !ok {
		return sendError(c, fiber.StatusUnauthorized, usecase.ErrTokenInvalid.Message)
	}

	ctx := utils.WithOperation(c.UserContext(), "viewProfile")
	user, err := h.usecase.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return sendError(c, fiber.StatusUnauthorized, usecase.ErrTokenInvalid.Message)
		}
		h.logFailure(ctx, "Profile lookup failed", err)
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(user)
}

// Helper methods

// logFailure logs rejected requests at debug level and store failures as errors.
func (h *AuthHTTPHandler) logFailure(ctx context.Context, msg string, err error) {
	log := h.logger.WithContext(ctx)
	switch {
	case apperrors.IsValidation(err), apperrors.IsConflict(err), apperrors.IsAuthentication(err):
		log.Debug(msg, zap.Error(err))
	case apperrors.IsInfrastructure(err):
		log.Error(msg, zap.Error(err))
	default:
		log.Warn(msg, zap.Error(err))
	}
}

func sendError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).SendString(errorPrefix + message)
}

func (h *AuthHTTPHandler) setCookie(c *fiber.Ctx, token *usecase.IssuedToken) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token.Value,
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		Expires:  token.ExpiresAt,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
	})
}

func (h *AuthHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		Expires:  time.Now(),
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
	})
}
