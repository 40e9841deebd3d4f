package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenManager(t *testing.T) {
	t.Run("issue and verify round trip", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)

		token, err := m.Issue(42, "admin")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := m.Verify(token)

		assert.NoError(t, err)
		assert.NotNil(t, claims)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "42", claims.Subject)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("secret", time.Hour).Issue(1, "user")
		assert.NoError(t, err)

		claims, err := NewTokenManager("other", time.Hour).Verify(token)

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	})

	t.Run("expired token", func(t *testing.T) {
		m := NewTokenManager("secret", -time.Minute)

		token, err := m.Issue(1, "user")
		assert.NoError(t, err)

		claims, err := m.Verify(token)

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	})

	t.Run("garbage token", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)

		claims, err := m.Verify("not.a.token")

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	})
}
