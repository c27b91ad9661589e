package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"devmatch/internal/auth"
	authhttp "devmatch/internal/auth/adapter/http"
	"devmatch/internal/auth/config"
	"devmatch/internal/auth/testutil"
	"devmatch/internal/auth/usecase"
	"devmatch/internal/shared/eventbus"
	"devmatch/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

func integrationConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:    "integration-secret-key-that-is-at-least-32-chars-long",
		JWTIssuer:       "integration-test",
		AccessTokenTTL:  8 * time.Hour,
		BcryptCost:      bcrypt.MinCost,
		BulkHashWorkers: 4,
		CookieName:      "token",
		CookiePath:      "/",
		CookieHTTPOnly:  true,
		CookieSameSite:  "Lax",
	}
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

func post(t *testing.T, app *fiber.App, path string, body interface{}, cookies ...*http.Cookie) *http.Response {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(http.MethodPost, path, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(http.MethodPost, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

// AuthIntegrationTestSuite runs the full module against a real MongoDB.
type AuthIntegrationTestSuite struct {
	suite.Suite
	app      *fiber.App
	client   *mongo.Client
	database *mongo.Database
	module   *auth.AuthModule
	testData *testutil.TestData
}

func (suite *AuthIntegrationTestSuite) SetupSuite() {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		suite.T().Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		suite.T().Skipf("MongoDB not available: %v", err)
	}

	suite.client = client
	suite.database = client.Database(fmt.Sprintf("devmatch_integration_%d", time.Now().UnixNano()))

	module, err := auth.NewAuthModule(ctx, auth.Dependencies{Database: suite.database}, integrationConfig())
	require.NoError(suite.T(), err)
	suite.module = module

	suite.app = fiber.New()
	suite.module.RegisterRoutes(suite.app.Group("/auth"))
	suite.testData = testutil.NewTestData()
}

func (suite *AuthIntegrationTestSuite) TearDownSuite() {
	if suite.client == nil {
		return
	}
	_ = suite.database.Drop(context.Background())
	_ = suite.client.Disconnect(context.Background())
}

func (suite *AuthIntegrationTestSuite) TestSignupLoginProfileLogout() {
	t := suite.T()
	payload := suite.testData.Users.SignupPayload("  Integration@Example.com ")

	resp := post(t, suite.app, "/auth/signup", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, body(t, resp))
	require.NotNil(t, sessionCookie(resp))

	resp = post(t, suite.app, "/auth/login", map[string]string{
		"emailId":  "integration@example.com",
		"password": testutil.DefaultPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	var login struct {
		User map[string]interface{} `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(body(t, resp)), &login))
	assert.Equal(t, "integration@example.com", login.User["emailId"])
	assert.NotContains(t, login.User, "password")

	resp = get(t, suite.app, "/auth/profile/view", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, suite.app, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User Logged out successfully", body(t, resp))
}

func (suite *AuthIntegrationTestSuite) TestSignup_DuplicateEmail() {
	t := suite.T()
	user := suite.testData.Users.UserWithEmail("dup@example.com")
	_, err := suite.database.Collection("users").InsertOne(context.Background(), user)
	require.NoError(t, err)

	resp := post(t, suite.app, "/auth/signup", suite.testData.Users.SignupPayload("DUP@example.com"))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERROR:Email Already Exist", body(t, resp))
}

func (suite *AuthIntegrationTestSuite) TestSignupBulk_SkipsExisting() {
	t := suite.T()
	users := suite.testData.Users.BulkPayload(3)
	for i := range users {
		users[i]["emailId"] = fmt.Sprintf("bulk%d@example.com", i)
	}
	resp := post(t, suite.app, "/auth/signup", users[1])
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, suite.app, "/auth/signupBulk", map[string]interface{}{"users": users})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		Message string                   `json:"message"`
		Data    []map[string]interface{} `json:"data"`
		Skipped int                      `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(body(t, resp)), &out))
	assert.Equal(t, "2 users added successfully", out.Message)
	assert.Len(t, out.Data, 2)
	assert.Equal(t, 1, out.Skipped)
	for _, u := range out.Data {
		assert.NotEqual(t, "bulk1@example.com", u["emailId"])
	}
}

func (suite *AuthIntegrationTestSuite) TestLogin_InvalidCredentials() {
	t := suite.T()

	resp := post(t, suite.app, "/auth/login", map[string]string{
		"emailId":  "notfound@example.com",
		"password": "WrongPass1!",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERROR:Invalid Credentials", body(t, resp))
}

func TestAuthIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthIntegrationTestSuite))
}

// syncBuffer guards a log buffer written by event handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuthModule_LogoutRevokesSessionAndAudits(t *testing.T) {
	logs := &syncBuffer{}
	log := logger.NewLoggerWithWriter("info", "json", logs)
	bus := eventbus.NewEventBus(log)

	module, err := auth.NewAuthModuleWithRepository(testutil.NewMemoryUserRepository(), auth.Dependencies{
		Denylist: testutil.NewMemoryDenylist(),
		EventBus: bus,
		Logger:   log,
	}, integrationConfig())
	require.NoError(t, err)
	defer module.Stop()

	app := fiber.New()
	module.RegisterRoutes(app)

	resp := post(t, app, "/signup", testutil.NewUserFixture().SignupPayload("audit@example.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	resp = get(t, app, "/profile/view", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, app, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The cookie value still parses, but the session was revoked.
	resp = get(t, app, "/profile/view", cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "ERROR:Please Login!", body(t, resp))

	bus.Wait()
	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, `"eventType":"user.signed_up"`), out)
	assert.Equal(t, 1, strings.Count(out, `"eventType":"user.logged_out"`), out)
}

func TestNewAuthModule_RequiresDatabase(t *testing.T) {
	_, err := auth.NewAuthModule(context.Background(), auth.Dependencies{}, integrationConfig())
	assert.Error(t, err)
}

func TestNewAuthModuleWithRepository_RejectsMissingSecret(t *testing.T) {
	cfg := integrationConfig()
	cfg.JWTSecretKey = ""

	_, err := auth.NewAuthModuleWithRepository(testutil.NewMemoryUserRepository(), auth.Dependencies{}, cfg)
	assert.Error(t, err)
}

func TestAuthModule_ExposesUsecaseAndMiddleware(t *testing.T) {
	module, err := auth.NewAuthModuleWithRepository(testutil.NewMemoryUserRepository(), auth.Dependencies{}, integrationConfig())
	require.NoError(t, err)

	user, token, err := module.GetUsecase().Signup(context.Background(), usecase.SignupRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		EmailID:   "grace@example.com",
		Password:  testutil.DefaultPassword,
	})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/whoami", module.GetMiddleware().Protect(), func(c *fiber.Ctx) error {
		id, _ := authhttp.GetUserID(c)
		return c.SendString(id)
	})

	resp := get(t, app, "/whoami", &http.Cookie{Name: "token", Value: token.Value})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.ID.Hex(), body(t, resp))
}
