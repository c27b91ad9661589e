package mongodb

import (
	"context"
	"errors"

	"devmatch/internal/auth/domain/model"
	"devmatch/internal/auth/domain/repository"
	apperrors "devmatch/internal/shared/errors"
	"devmatch/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	usersCollection = "users"
	duplicateKey    = 11000
)

// MongoUserRepository implements repository.UserRepository on a MongoDB collection
// with a unique index on emailId.
type MongoUserRepository struct {
	users *mongo.Collection
	log   logger.Logger
}

var _ repository.UserRepository = (*MongoUserRepository)(nil)

// NewMongoUserRepository creates the repository and ensures its indexes exist.
func NewMongoUserRepository(ctx context.Context, db *mongo.Database, log logger.Logger) (*MongoUserRepository, error) {
	if db == nil {
		return nil, errors.New("mongo database cannot be nil")
	}
	if log == nil {
		log = &logger.NoopLogger{}
	}

	repo := &MongoUserRepository{
		users: db.Collection(usersCollection),
		log:   log.WithComponent("user_store"),
	}

	// Email index for users (unique)
	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "emailId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("emailId_unique"),
	}
	if _, err := repo.users.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return nil, storeError("failed to create emailId index", err)
	}

	return repo, nil
}

// FindByEmail retrieves a user by normalised email
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.users.FindOne(ctx, bson.M{"emailId": model.NormalizeEmail(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		return nil, storeError("failed to find user by email", err)
	}
	return &user, nil
}

// FindByID retrieves a user by its hex ObjectID. Malformed IDs are reported as not found.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	var user model.User
	err = r.users.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		return nil, storeError("failed to find user by id", err)
	}
	return &user, nil
}

// Insert stores user and assigns its ID.
func (r *MongoUserRepository) Insert(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailTaken
		}
		return storeError("failed to insert user", err)
	}
	return nil
}

// InsertMany stores users with an unordered bulk insert so one duplicate does not
// stop the rest. Duplicate-key failures are dropped from the result; any other
// write failure fails the call.
func (r *MongoUserRepository) InsertMany(ctx context.Context, users []*model.User) ([]*model.User, error) {
	if len(users) == 0 {
		return []*model.User{}, nil
	}

	docs := make([]interface{}, len(users))
	for i, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		docs[i] = u
	}

	_, err := r.users.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return append([]*model.User(nil), users...), nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return nil, storeError("failed to insert users", err)
	}

	failed := make(map[int]struct{}, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKey {
			return nil, storeError("failed to insert users", err)
		}
		failed[we.Index] = struct{}{}
	}

	saved := make([]*model.User, 0, len(users)-len(failed))
	for i, u := range users {
		if _, dup := failed[i]; dup {
			r.log.WithContext(ctx).Debug("Skipped duplicate email in bulk insert", zap.String("emailId", u.EmailID))
			continue
		}
		saved = append(saved, u)
	}
	return saved, nil
}

func storeError(message string, err error) error {
	return apperrors.NewInfrastructureError(message).WithCause(err).WithComponent("user_store")
}
