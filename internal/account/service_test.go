package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/escrow-backend/internal/auth"
)

func newService() Service {
	// Low bcrypt cost keeps the suite fast.
	return NewService(NewMemoryRepository(), auth.NewBcryptPasswordHasher(4))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc := newService()

		a, err := svc.Register(ctx, "Alex@Example.com ", "supersecret", "Alex")
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.Equal(t, "alex@example.com", a.Email) // normalized
		assert.True(t, a.IsActive)
		assert.False(t, a.IsAdmin)
		assert.NotEqual(t, "supersecret", a.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := newService()

		_, err := svc.Register(ctx, "alex@example.com", "supersecret", "")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "ALEX@example.com", "othersecret", "")
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})

	t.Run("short password", func(t *testing.T) {
		svc := newService()

		_, err := svc.Register(ctx, "alex@example.com", "short", "")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("empty email", func(t *testing.T) {
		svc := newService()

		_, err := svc.Register(ctx, "   ", "supersecret", "")
		assert.ErrorIs(t, err, ErrEmailRequired)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc := newService()
		_, err := svc.Register(ctx, "alex@example.com", "supersecret", "")
		require.NoError(t, err)

		a, err := svc.Login(ctx, "alex@example.com", "supersecret")
		require.NoError(t, err)
		assert.Equal(t, "alex@example.com", a.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newService()
		_, err := svc.Register(ctx, "alex@example.com", "supersecret", "")
		require.NoError(t, err)

		_, err = svc.Login(ctx, "alex@example.com", "wrongsecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := newService()

		_, err := svc.Login(ctx, "nobody@example.com", "supersecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
