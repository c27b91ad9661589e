package repository

import (
	"context"

	"devmatch/internal/auth/domain/model"
	apperrors "devmatch/internal/shared/errors"
)

// Errors every UserRepository implementation reports.
var (
	ErrUserNotFound = apperrors.NewNotFoundError("user").WithCode("USER_NOT_FOUND")
	ErrEmailTaken   = apperrors.NewConflictError("Email Already Exist").WithCode("EMAIL_TAKEN")
)

// UserRepository is the credential store: user documents keyed by a unique email.
type UserRepository interface {
	// FindByEmail returns ErrUserNotFound when no user has the (normalised) email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// Insert persists user and sets its ID. A concurrent insert of the same email
	// fails with ErrEmailTaken because uniqueness is enforced by the store itself.
	Insert(ctx context.Context, user *model.User) error
	// InsertMany persists users independently and returns the ones that were stored,
	// as the same pointers that were passed in.
	// Users whose email already exists are skipped without error.
	InsertMany(ctx context.Context, users []*model.User) ([]*model.User, error)
}
