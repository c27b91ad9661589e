package testutil

import (
	"fmt"
	"time"

	"devmatch/internal/auth/domain/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword satisfies the strong password rule.
const DefaultPassword = "Str0ng@Pass"

// UserFixture provides test data for User model
type UserFixture struct{}

// NewUserFixture creates a new UserFixture instance
func NewUserFixture() *UserFixture {
	return &UserFixture{}
}

// ValidUser returns a persisted-looking user whose password is DefaultPassword.
func (f *UserFixture) ValidUser() *model.User {
	return f.UserWithPassword("test@example.com", DefaultPassword)
}

// UserWithEmail returns a user with specific email
func (f *UserFixture) UserWithEmail(email string) *model.User {
	return f.UserWithPassword(email, DefaultPassword)
}

// UserWithPassword returns a user with specific password, hashed at bcrypt.MinCost.
func (f *UserFixture) UserWithPassword(email, password string) *model.User {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now().UTC()
	return &model.User{
		ID:        primitive.NewObjectID(),
		FirstName: "Test",
		LastName:  "User",
		EmailID:   model.NormalizeEmail(email),
		Password:  string(hashedPassword),
		Skills:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SignupPayload returns a JSON-ready signup body for email.
func (f *UserFixture) SignupPayload(email string) map[string]interface{} {
	return map[string]interface{}{
		"firstName": "Test",
		"lastName":  "User",
		"emailId":   email,
		"password":  DefaultPassword,
	}
}

// BulkPayload returns n signup bodies with emails user0@example.com .. user{n-1}@example.com.
func (f *UserFixture) BulkPayload(n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = f.SignupPayload(fmt.Sprintf("user%d@example.com", i))
	}
	return out
}

// TestData provides all fixtures
type TestData struct {
	Users *UserFixture
}

// NewTestData creates a new TestData instance with all fixtures
func NewTestData() *TestData {
	return &TestData{
		Users: NewUserFixture(),
	}
}

// Common test emails for validation testing
var (
	ValidEmails = []string{
		"test@example.com",
		"user.name@domain.co.uk",
		"user+tag@example.org",
		"firstname.lastname@company.com",
	}

	InvalidEmails = []string{
		"",
		"invalid-email",
		"@example.com",
		"test@",
		"test.example.com",
		"test space@example.com",
	}

	StrongPasswords = []string{
		DefaultPassword,
		"StrongP@ssw0rd",
		"MySecurePassword2024!",
	}

	WeakPasswords = []string{
		"",
		"Sh0rt!",
		"alllowercase1!",
		"ALLUPPERCASE1!",
		"NoDigitsHere!",
		"NoSymbols123",
	}
)
