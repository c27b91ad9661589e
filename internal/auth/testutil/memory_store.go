package testutil

import (
	"context"
	"sync"
	"time"

	"devmatch/internal/auth/domain/model"
	"devmatch/internal/auth/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserRepository is an in-memory repository.UserRepository that enforces
// email uniqueness the way the Mongo unique index does.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]*model.User
	byEmail map[string]primitive.ObjectID
	// Err, when set, is returned by every method.
	Err error
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository returns an empty store seeded with users.
func NewMemoryUserRepository(users ...*model.User) *MemoryUserRepository {
	r := &MemoryUserRepository{
		byID:    make(map[primitive.ObjectID]*model.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
	for _, u := range users {
		_ = r.Insert(context.Background(), u)
	}
	return r
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[oid]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *MemoryUserRepository) Insert(_ context.Context, user *model.User) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(user)
}

func (r *MemoryUserRepository) InsertMany(_ context.Context, users []*model.User) ([]*model.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make([]*model.User, 0, len(users))
	for _, u := range users {
		if err := r.insertLocked(u); err == nil {
			saved = append(saved, u)
		}
	}
	return saved, nil
}

func (r *MemoryUserRepository) insertLocked(user *model.User) error {
	email := model.NormalizeEmail(user.EmailID)
	if _, taken := r.byEmail[email]; taken {
		return repository.ErrEmailTaken
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	c := *user
	r.byID[user.ID] = &c
	r.byEmail[email] = user.ID
	return nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// MemoryDenylist is an in-memory repository.TokenDenylist.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

var _ repository.TokenDenylist = (*MemoryDenylist)(nil)

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time)}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = expiresAt
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.revoked[tokenID]
	return ok && time.Now().Before(exp), nil
}
