package security_test

import (
	"strings"
	"testing"

	"devmatch/internal/auth/adapter/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCheck(t *testing.T) {
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Str0ng@Pass")
	require.NoError(t, err)

	assert.NotEqual(t, "Str0ng@Pass", hash)
	assert.True(t, hasher.Check("Str0ng@Pass", hash))
	assert.False(t, hasher.Check("wrong", hash))
}

func TestBcryptHasher_Salted(t *testing.T) {
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	h1, err := hasher.Hash("same-password")
	require.NoError(t, err)
	h2, err := hasher.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestBcryptHasher_UsesConfiguredCost(t *testing.T) {
	hasher := security.NewBcryptHasher(bcrypt.MinCost + 1)
	hash, err := hasher.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestBcryptHasher_ClampsCost(t *testing.T) {
	hash, err := security.NewBcryptHasher(1).Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestBcryptHasher_MalformedHashNeverMatches(t *testing.T) {
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	for _, stored := range []string{"", "plaintext", "$2a$10$short", "Str0ng@Pass"} {
		assert.False(t, hasher.Check("Str0ng@Pass", stored), stored)
	}
}

func TestBcryptHasher_RejectsOverlongPassword(t *testing.T) {
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	_, err := hasher.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, security.ErrPasswordTooLong)
}

func BenchmarkPasswordHashing(b *testing.B) {
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	for i := 0; i < b.N; i++ {
		if _, err := hasher.Hash("SuperSecurePassword123!"); err != nil {
			b.Fatalf("bcrypt error: %v", err)
		}
	}
}
