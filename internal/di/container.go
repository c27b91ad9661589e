package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"devmatch/internal/auth"
	"devmatch/internal/auth/adapter/persistence/redisstore"
	"devmatch/internal/auth/config"
	"devmatch/internal/shared/eventbus"
	"devmatch/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Container owns the application's shared resources and modules and tears them
// down in reverse order of initialization.
type Container struct {
	mu sync.RWMutex
	// Module instances
	AuthModule *auth.AuthModule
	// Connections
	MongoDB *mongo.Database
	Redis   *redis.Client
	// Shared services
	EventBus   *eventbus.EventBus
	AuthConfig *config.Config
	Logger     logger.Logger
}

// NewContainer creates an empty container. A nil logger falls back to a no-op logger.
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = &logger.NoopLogger{}
	}
	return &Container{
		Logger:   log,
		EventBus: eventbus.NewEventBus(log.WithComponent("eventbus")),
	}
}

// InitializeAuth wires the authentication module on top of mongoDB. When token
// revocation is enabled a Redis client is opened and verified first.
func (c *Container) InitializeAuth(ctx context.Context, mongoDB *mongo.Database, authConfig *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mongoDB == nil {
		return errors.New("MongoDB must be connected before the auth module")
	}
	if authConfig == nil {
		return errors.New("auth configuration is required")
	}

	c.MongoDB = mongoDB
	c.AuthConfig = authConfig

	deps := auth.Dependencies{
		Database: mongoDB,
		EventBus: c.EventBus,
		Logger:   c.Logger,
	}

	if authConfig.TokenRevocationEnabled {
		client := redisstore.NewRedisClient(authConfig)
		denylist := redisstore.NewRedisTokenDenylist(client, c.Logger)
		if err := denylist.Ping(ctx); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to Redis at %s: %w", authConfig.RedisAddr, err)
		}
		c.Redis = client
		deps.Denylist = denylist
		c.Logger.Info("Token revocation enabled", zap.String("redisAddr", authConfig.RedisAddr))
	}

	authModule, err := auth.NewAuthModule(ctx, deps, authConfig)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}

	c.AuthModule = authModule
	return nil
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// HealthCheck pings every connection the container holds.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.MongoDB != nil {
		if err := c.MongoDB.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("MongoDB health check failed: %w", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
	}

	return nil
}

// Cleanup stops modules, drains pending events and closes connections the container opened.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop auth module: %w", err))
		}
		c.AuthModule = nil
	}

	drained := make(chan struct{})
	go func() {
		c.EventBus.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("pending events not drained: %w", ctx.Err()))
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
		c.Redis = nil
	}

	return errors.Join(errs...)
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	c.Logger.Info("Closing DI container resources")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warn("Cleanup errors occurred", zap.Error(err))
		return err
	}

	c.Logger.Info("DI container resources closed")
	return nil
}
