package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndMatch(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	digest, err := h.Hash("foobar")
	require.NoError(t, err)
	assert.NotEqual(t, "foobar", digest)

	ok, err := h.Matches(digest, "foobar")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Matches(digest, "foobaz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	ok, err := h.Matches("not-a-digest", "foobar")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}
