package usecase

import (
	"context"
	"errors"
	"time"

	"devmatch/internal/auth/config"
	"devmatch/internal/auth/domain/model"
	"devmatch/internal/auth/domain/repository"
	apperrors "devmatch/internal/shared/errors"
	"devmatch/internal/shared/eventbus"
	"devmatch/internal/shared/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmailTaken         = repository.ErrEmailTaken
	ErrUserNotFound       = repository.ErrUserNotFound
	ErrInvalidCredentials = apperrors.NewAuthenticationError("Invalid Credentials").WithCode("INVALID_CREDENTIALS")
	ErrInvalidEmailFormat = apperrors.NewValidationError("Invalid Email").WithCode("INVALID_EMAIL")
	ErrTokenInvalid       = apperrors.NewAuthenticationError("Please Login!").WithCode("TOKEN_INVALID")
	ErrEmptyBatch         = apperrors.NewMalformedInputError("Users array is required").WithCode("EMPTY_BATCH")
)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	Signup(ctx context.Context, req SignupRequest) (*model.User, *IssuedToken, error)
	SignupBulk(ctx context.Context, reqs []SignupRequest) (*BulkSignupResult, error)
	Login(ctx context.Context, req LoginRequest) (*model.User, *IssuedToken, error)
	Logout(ctx context.Context, tokenString string) error
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)
	GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
}

// SignupRequest represents the signup request
type SignupRequest struct {
	FirstName string   `json:"firstName" validate:"required,max=50"`
	LastName  string   `json:"lastName" validate:"required,max=50"`
	EmailID   string   `json:"emailId" validate:"required,email"`
	Password  string   `json:"password" validate:"required,strongpassword"`
	Age       *int     `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Gender    string   `json:"gender,omitempty" validate:"omitempty,oneof=male female others"`
	About     string   `json:"about,omitempty" validate:"max=500"`
	Skills    []string `json:"skills,omitempty" validate:"max=50"`
	PhotoURL  string   `json:"photoUrl,omitempty" validate:"omitempty,url"`
}

// toUser builds the normalised user the request describes. Password is still plaintext.
func (r SignupRequest) toUser() *model.User {
	u := &model.User{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		EmailID:   r.EmailID,
		Password:  r.Password,
		Age:       r.Age,
		Gender:    r.Gender,
		About:     r.About,
		Skills:    r.Skills,
		PhotoURL:  r.PhotoURL,
	}
	u.Normalize()
	return u
}

// normalized returns r with the same canonicalisation applied to stored users.
func (r SignupRequest) normalized() SignupRequest {
	u := r.toUser()
	r.FirstName, r.LastName, r.EmailID = u.FirstName, u.LastName, u.EmailID
	r.Gender, r.About, r.Skills, r.PhotoURL = u.Gender, u.About, u.Skills, u.PhotoURL
	return r
}

// LoginRequest represents the login request
type LoginRequest struct {
	EmailID  string `json:"emailId"`
	Password string `json:"password"`
}

// IssuedToken is a signed session token and the instant it stops being accepted.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// BulkSignupResult reports which entries of a bulk signup were stored.
type BulkSignupResult struct {
	Saved   []*model.User
	Skipped []BulkSkip
}

// BulkSkip describes an entry that was not stored.
type BulkSkip struct {
	Index   int    `json:"index"`
	EmailID string `json:"emailId"`
	Reason  string `json:"reason"`
}

// UserEvent is the payload of every user.* event.
type UserEvent struct {
	UserID  string `json:"userId"`
	EmailID string `json:"emailId"`
}

// BulkSignupEvent is the payload of user.bulk_signed_up.
type BulkSignupEvent struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	repo     repository.UserRepository
	hasher   repository.PasswordHasher
	tokenSvc repository.TokenService
	denylist repository.TokenDenylist
	events   eventbus.EventBusInterface
	log      logger.Logger
	config   *config.Config
	validate *validator.Validate
}

// NewAuthUsecase creates a new instance of AuthUsecase.
// denylist may be nil, in which case logout only clears the client cookie.
func NewAuthUsecase(
	repo repository.UserRepository,
	hasher repository.PasswordHasher,
	tokenSvc repository.TokenService,
	denylist repository.TokenDenylist,
	events eventbus.EventBusInterface,
	log logger.Logger,
	cfg *config.Config,
) *AuthUsecase {
	if log == nil {
		log = &logger.NoopLogger{}
	}
	return &AuthUsecase{
		repo:     repo,
		hasher:   hasher,
		tokenSvc: tokenSvc,
		denylist: denylist,
		events:   events,
		log:      log.WithComponent("auth_usecase"),
		config:   cfg,
		validate: newValidator(),
	}
}

// Signup validates and stores a new user, then issues a session token for it.
func (uc *AuthUsecase) Signup(ctx context.Context, req SignupRequest) (*model.User, *IssuedToken, error) {
	req = req.normalized()
	if err := uc.validateStruct(req); err != nil {
		return nil, nil, err
	}
	user := req.toUser()

	// Advisory only: the unique index decides races between concurrent signups.
	if err := uc.ensureEmailFree(ctx, user.EmailID); err != nil {
		return nil, nil, err
	}

	hash, err := uc.hasher.Hash(user.Password)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to hash password").WithCause(err)
	}
	user.Password = hash
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	if err := uc.repo.Insert(ctx, user); err != nil {
		if apperrors.IsConflict(err) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, storageError("failed to create user", err)
	}

	token, err := uc.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	uc.log.WithContext(ctx).Info("User signed up", zap.String("userID", user.ID.Hex()))
	uc.publish(ctx, eventbus.EventTypeUserSignedUp, UserEvent{UserID: user.ID.Hex(), EmailID: user.EmailID})
	return user.Sanitized(), token, nil
}

// SignupBulk stores every acceptable entry of reqs. Entries that fail validation,
// repeat an earlier email in the batch or collide with an existing user are skipped.
// A storage failure aborts the whole batch.
func (uc *AuthUsecase) SignupBulk(ctx context.Context, reqs []SignupRequest) (*BulkSignupResult, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}

	result := &BulkSignupResult{Saved: []*model.User{}, Skipped: []BulkSkip{}}
	skip := func(i int, email, reason string) {
		result.Skipped = append(result.Skipped, BulkSkip{Index: i, EmailID: email, Reason: reason})
	}

	seen := make(map[string]struct{}, len(reqs))
	candidates := make([]*model.User, 0, len(reqs))
	indexes := make([]int, 0, len(reqs))
	for i, req := range reqs {
		req = req.normalized()
		user := req.toUser()
		if err := uc.validateStruct(req); err != nil {
			skip(i, user.EmailID, err.Error())
			continue
		}
		if _, dup := seen[user.EmailID]; dup {
			skip(i, user.EmailID, ErrEmailTaken.Message)
			continue
		}
		seen[user.EmailID] = struct{}{}

		if err := uc.ensureEmailFree(ctx, user.EmailID); err != nil {
			if apperrors.IsConflict(err) {
				skip(i, user.EmailID, ErrEmailTaken.Message)
				continue
			}
			return nil, err
		}
		candidates = append(candidates, user)
		indexes = append(indexes, i)
	}

	if err := uc.hashAll(ctx, candidates); err != nil {
		return nil, err
	}

	saved := []*model.User{}
	if len(candidates) > 0 {
		var err error
		saved, err = uc.repo.InsertMany(ctx, candidates)
		if err != nil {
			return nil, storageError("failed to create users", err)
		}
	}

	stored := make(map[*model.User]struct{}, len(saved))
	for _, u := range saved {
		stored[u] = struct{}{}
		result.Saved = append(result.Saved, u.Sanitized())
	}
	// Lost a race with a concurrent signup between the pre-check and the insert.
	for j, u := range candidates {
		if _, ok := stored[u]; !ok {
			skip(indexes[j], u.EmailID, ErrEmailTaken.Message)
		}
	}

	uc.log.WithContext(ctx).Info("Bulk signup completed",
		zap.Int("saved", len(result.Saved)),
		zap.Int("skipped", len(result.Skipped)))
	uc.publish(ctx, eventbus.EventTypeUsersBulkCreated, BulkSignupEvent{Saved: len(result.Saved), Skipped: len(result.Skipped)})
	return result, nil
}

// hashAll replaces each candidate's plaintext password with its hash using a bounded worker pool.
func (uc *AuthUsecase) hashAll(ctx context.Context, users []*model.User) error {
	workers := 1
	if uc.config != nil && uc.config.BulkHashWorkers > 0 {
		workers = uc.config.BulkHashWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	now := time.Now().UTC()
	for _, u := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hash, err := uc.hasher.Hash(u.Password)
			if err != nil {
				return apperrors.NewInternalError("failed to hash password").WithCause(err)
			}
			u.Password = hash
			u.CreatedAt, u.UpdatedAt = now, now
			return nil
		})
	}
	return g.Wait()
}

// Login verifies credentials and issues a session token. Unknown emails and wrong
// passwords produce the same error.
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*model.User, *IssuedToken, error) {
	email := model.NormalizeEmail(req.EmailID)
	if err := uc.validate.Var(email, "required,email"); err != nil {
		return nil, nil, ErrInvalidEmailFormat
	}

	user, err := uc.repo.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			uc.log.WithContext(ctx).Debug("Login failed: unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, storageError("failed to load user", err)
	}

	if !uc.hasher.Check(req.Password, user.Password) {
		uc.log.WithContext(ctx).Debug("Login failed: password mismatch", zap.String("userID", user.ID.Hex()))
		return nil, nil, ErrInvalidCredentials
	}

	token, err := uc.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	uc.publish(ctx, eventbus.EventTypeUserAuthenticated, UserEvent{UserID: user.ID.Hex(), EmailID: user.EmailID})
	return user.Sanitized(), token, nil
}

// Logout ends the session carried by tokenString. With a denylist configured the token
// is revoked until it expires; without one only the client cookie is cleared, which is
// the gateway's job either way. Missing or invalid tokens are not an error.
func (uc *AuthUsecase) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return nil
	}

	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		// Nothing worth revoking.
		return nil
	}

	// The session ends for the client whether or not revocation succeeds.
	uc.publish(ctx, eventbus.EventTypeUserLoggedOut, UserEvent{UserID: claims.UserID, EmailID: claims.Email})

	if uc.denylist != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := uc.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return storageError("failed to revoke token", err)
		}
	}
	return nil
}

// ValidateToken verifies tokenString and, when revocation is enabled, that it has not been revoked.
func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, apperrors.NewAuthenticationError(ErrTokenInvalid.Message).
			WithCode(ErrTokenInvalid.Code).
			WithCause(err)
	}

	if uc.denylist != nil && claims.ID != "" {
		revoked, err := uc.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, storageError("failed to check token revocation", err)
		}
		if revoked {
			return nil, ErrTokenInvalid
		}
	}
	return claims, nil
}

// GetUserFromToken resolves the user a valid token was issued to.
func (uc *AuthUsecase) GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := uc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	user, err := uc.GetUserByID(ctx, claims.UserID)
	if apperrors.IsNotFound(err) {
		// Token outlived its user.
		return nil, ErrTokenInvalid
	}
	return user, err
}

// GetUserByID returns the sanitized user with the given ID.
func (uc *AuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := uc.repo.FindByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("failed to load user", err)
	}
	return user.Sanitized(), nil
}

func (uc *AuthUsecase) ensureEmailFree(ctx context.Context, email string) error {
	_, err := uc.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case apperrors.IsNotFound(err):
		return nil
	default:
		return storageError("failed to check email", err)
	}
}

func (uc *AuthUsecase) issue(ctx context.Context, user *model.User) (*IssuedToken, error) {
	value, expiresAt, err := uc.tokenSvc.GenerateToken(ctx, user.ID.Hex(), user.EmailID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate token").WithCause(err)
	}
	return &IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

func (uc *AuthUsecase) publish(ctx context.Context, eventType string, data interface{}) {
	if uc.events == nil {
		return
	}
	uc.events.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(eventType, data, "auth"))
}

// storageError wraps a credential store failure, keeping AppErrors the store already classified.
func storageError(message string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.NewInfrastructureError(message).WithCause(err).WithComponent("user_store")
}
