package auth

import (
	"context"
	"errors"
	"fmt"

	authhttp "devmatch/internal/auth/adapter/http"
	"devmatch/internal/auth/adapter/persistence/mongodb"
	"devmatch/internal/auth/adapter/security"
	"devmatch/internal/auth/config"
	"devmatch/internal/auth/domain/repository"
	"devmatch/internal/auth/usecase"
	"devmatch/internal/shared/eventbus"
	"devmatch/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Dependencies are the long-lived resources the module borrows from its owner.
type Dependencies struct {
	Database *mongo.Database
	// Denylist enables token revocation on logout when non-nil.
	Denylist repository.TokenDenylist
	EventBus eventbus.EventBusInterface
	Logger   logger.Logger
}

// AuthModule represents the complete authentication module
type AuthModule struct {
	usecase    usecase.AuthUsecaseInterface
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	logger     logger.Logger
}

// NewAuthModule creates the module on top of a MongoDB database.
func NewAuthModule(ctx context.Context, deps Dependencies, cfg *config.Config) (*AuthModule, error) {
	if deps.Database == nil {
		return nil, errors.New("auth module requires a database")
	}

	userRepo, err := mongodb.NewMongoUserRepository(ctx, deps.Database, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user repository: %w", err)
	}
	return NewAuthModuleWithRepository(userRepo, deps, cfg)
}

// NewAuthModuleWithRepository creates the module around an existing credential store.
func NewAuthModuleWithRepository(userRepo repository.UserRepository, deps Dependencies, cfg *config.Config) (*AuthModule, error) {
	log := deps.Logger
	if log == nil {
		log = &logger.NoopLogger{}
	}

	// Initialize token service
	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	// Initialize usecase
	authUsecase := usecase.NewAuthUsecase(userRepo, hasher, tokenSvc, deps.Denylist, deps.EventBus, log, cfg)

	module := &AuthModule{
		usecase:    authUsecase,
		handler:    authhttp.NewAuthHTTPHandler(authUsecase, cfg, log),
		middleware: authhttp.NewAuthMiddleware(authUsecase, cfg.CookieName, cfg.RateLimitMax),
		logger:     log.WithComponent("auth"),
	}

	if deps.EventBus != nil {
		module.subscribeAudit(deps.EventBus)
	}
	return module, nil
}

// subscribeAudit logs every user event for auditing.
func (am *AuthModule) subscribeAudit(bus eventbus.EventBusInterface) {
	audit := func(ctx context.Context, event eventbus.Event) error {
		fields := []interface{}{
			"Audit event",
			zap.String("eventType", event.Type()),
			zap.Time("at", event.Timestamp()),
		}
		switch data := event.Data().(type) {
		case usecase.UserEvent:
			fields = append(fields, zap.String("userID", data.UserID))
		case usecase.BulkSignupEvent:
			fields = append(fields, zap.Int("saved", data.Saved), zap.Int("skipped", data.Skipped))
		}
		am.logger.WithContext(ctx).Info(fields...)
		return nil
	}

	for _, eventType := range []string{
		eventbus.EventTypeUserSignedUp,
		eventbus.EventTypeUsersBulkCreated,
		eventbus.EventTypeUserAuthenticated,
		eventbus.EventTypeUserLoggedOut,
	} {
		bus.Subscribe(eventType, audit)
	}
}

// RegisterRoutes registers authentication routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.SetupAuthRoutesWithMiddleware(router, am.middleware)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// Stop performs cleanup when the module is shut down. The database and Redis
// connections belong to the caller.
func (am *AuthModule) Stop() error {
	am.logger.Info("Auth module stopped")
	return nil
}
