package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	authhttp "devmatch/internal/auth/adapter/http"
	"devmatch/internal/auth/domain/repository"
	"devmatch/internal/auth/usecase"
	apperrors "devmatch/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareTestSuite struct {
	suite.Suite
	app        *fiber.App
	mockUC     *mockAuthUsecase
	middleware *authhttp.AuthMiddleware
}

func (suite *MiddlewareTestSuite) SetupTest() {
	suite.mockUC = &mockAuthUsecase{}
	suite.middleware = authhttp.NewAuthMiddleware(suite.mockUC, "token", 0)
	suite.app = fiber.New()
}

func (suite *MiddlewareTestSuite) protectedRoute() {
	suite.app.Get("/protected", suite.middleware.Protect(), func(c *fiber.Ctx) error {
		userID, exists := authhttp.GetUserID(c)
		if !exists {
			return c.Status(500).JSON(fiber.Map{"error": "user_id not found"})
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})
}

func (suite *MiddlewareTestSuite) TestProtect_BearerToken() {
	suite.protectedRoute()

	token := "valid-token"
	claims := &repository.Claims{
		UserID: "user-123",
		Email:  "test@example.com",
	}
	suite.mockUC.On("ValidateToken", mock.Anything, token).Return(claims, nil)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(suite.T(), "user-123", body["user_id"])
	suite.mockUC.AssertExpectations(suite.T())
}

func (suite *MiddlewareTestSuite) TestProtect_CookieTakesPrecedence() {
	suite.protectedRoute()

	suite.mockUC.On("ValidateToken", mock.Anything, "cookie-token").
		Return(&repository.Claims{UserID: "user-123"}, nil)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	suite.mockUC.AssertExpectations(suite.T())
}

func (suite *MiddlewareTestSuite) TestProtect_NoToken() {
	suite.protectedRoute()

	resp, err := suite.app.Test(httptest.NewRequest("GET", "/protected", nil))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(suite.T(), "ERROR:Please Login!", readBody(suite.T(), resp))
	suite.mockUC.AssertNotCalled(suite.T(), "ValidateToken")
}

func (suite *MiddlewareTestSuite) TestProtect_InvalidToken() {
	suite.protectedRoute()
	suite.mockUC.On("ValidateToken", mock.Anything, "bad").Return(nil, usecase.ErrTokenInvalid)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "bad"})

	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(suite.T(), "ERROR:Please Login!", readBody(suite.T(), resp))
}

func (suite *MiddlewareTestSuite) TestProtect_DenylistUnavailable() {
	suite.protectedRoute()
	suite.mockUC.On("ValidateToken", mock.Anything, "tok").
		Return(nil, apperrors.NewInfrastructureError("failed to check token revocation").WithCause(errors.New("redis down")))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})

	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusInternalServerError, resp.StatusCode)
}

func (suite *MiddlewareTestSuite) TestRateLimiter_DisabledByDefault() {
	suite.app.Get("/limited", suite.middleware.RateLimiter(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	for i := 0; i < 20; i++ {
		resp, err := suite.app.Test(httptest.NewRequest("GET", "/limited", nil))
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	}
}

func (suite *MiddlewareTestSuite) TestRateLimiter_Enforced() {
	mw := authhttp.NewAuthMiddleware(suite.mockUC, "token", 2)
	suite.app.Get("/limited", mw.RateLimiter(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	var last *http.Response
	for i := 0; i < 3; i++ {
		resp, err := suite.app.Test(httptest.NewRequest("GET", "/limited", nil))
		require.NoError(suite.T(), err)
		last = resp
	}
	assert.Equal(suite.T(), http.StatusTooManyRequests, last.StatusCode)
}

func (suite *MiddlewareTestSuite) TestSecurityHeaders() {
	suite.app.Use(authhttp.SecurityHeaders())
	suite.app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := suite.app.Test(httptest.NewRequest("GET", "/", nil))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(suite.T(), "DENY", resp.Header.Get("X-Frame-Options"))
}

func (suite *MiddlewareTestSuite) TestCORS_AllowsCredentialedOrigin() {
	suite.app.Use(authhttp.CORS("http://localhost:5173"))
	suite.app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(suite.T(), "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
