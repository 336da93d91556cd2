package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", 2*time.Hour)

	token, err := m.Issue("admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := m.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, "admin", principal)
}

func TestTokenManager_Issue_EmptyPrincipal(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	_, err := m.Issue("")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenManager_Verify_Missing(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	_, err := m.Verify("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = m.Verify("   ")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestTokenManager_Verify_Malformed(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	_, err := m.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenManager_Verify_WrongSecret(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := m.Issue("admin")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenManager_Verify_Expired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Issue("admin")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenFromHeader(t *testing.T) {
	token, err := TokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = TokenFromHeader("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = TokenFromHeader("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = TokenFromHeader("Basic abc")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = TokenFromHeader("Bearer")
	assert.ErrorIs(t, err, ErrTokenMissing)
}
