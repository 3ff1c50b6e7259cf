package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Deterministic(t *testing.T) {
	t.Parallel()

	a := HashPassword("salt", "password1")
	b := HashPassword("salt", "password1")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashPassword("other", "password1"))
	assert.NotEqual(t, a, HashPassword("salt", "password2"))
}

func TestHashPassword_KnownVector(t *testing.T) {
	t.Parallel()

	// RFC 4231 test case 2.
	got := HashPassword("Jefe", "what do ya want for nothing?")
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	digest := HashPassword("s", "secret123")
	assert.True(t, CheckPassword("s", "secret123", digest))
	assert.False(t, CheckPassword("s", "secret124", digest))
	assert.False(t, CheckPassword("t", "secret123", digest))
}

func TestNewCredentials(t *testing.T) {
	t.Parallel()

	c1, err := NewCredentials("password1")
	require.NoError(t, err)
	c2, err := NewCredentials("password1")
	require.NoError(t, err)

	assert.Len(t, c1.Salt, 2*saltSize)
	assert.NotEqual(t, c1.Salt, c2.Salt, "every rotation draws a new salt")
	assert.Equal(t, HashPassword(c1.Salt, "password1"), c1.Hash)
	assert.NotEqual(t, c1.Hash, c2.Hash)
}
