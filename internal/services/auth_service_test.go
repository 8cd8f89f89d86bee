package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, &models.RegisterRequest{
		Email:     "new@example.com",
		Password:  "sufficiently-long",
		FirstName: "Nila",
		LastName:  "Perera",
	}, ClientMeta{IP: "203.0.113.9", UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/130.0"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AuthToken)
	assert.True(t, len(resp.AuthToken) >= 40, "token carries 32 random bytes")
	assert.NotEmpty(t, resp.UserID)
	assert.Equal(t, "new@example.com", resp.Email)

	// The issued token resolves straight back to the user.
	userID, err := env.auth.ResolveUser(ctx, resp.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, userID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerUser(t, "taken@example.com")

	_, err := env.auth.Register(ctx, &models.RegisterRequest{
		Email:    "taken@example.com",
		Password: "sufficiently-long",
	}, ClientMeta{})
	assert.Equal(t, KindInvalidState, kindOf(t, err))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerUser(t, "login@example.com")

	t.Run("valid credentials issue a fresh session", func(t *testing.T) {
		resp, err := env.auth.Login(ctx, &models.LoginRequest{
			Email:    "login@example.com",
			Password: "sufficiently-long",
		}, ClientMeta{IP: "198.51.100.4"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AuthToken)

		_, err = env.auth.ResolveUser(ctx, resp.AuthToken)
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, &models.LoginRequest{
			Email:    "login@example.com",
			Password: "not-the-password",
		}, ClientMeta{})
		assert.Equal(t, KindUnauthorized, kindOf(t, err))
	})

	t.Run("unknown email reads the same as wrong password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, &models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "sufficiently-long",
		}, ClientMeta{})
		require.Error(t, err)
		assert.Equal(t, "unauthorized: invalid email or password", err.Error())
	})
}

func TestResolveUser_BadToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.ResolveUser(context.Background(), "not-a-real-token")
	assert.Equal(t, KindUnauthorized, kindOf(t, err))
}

func TestSessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, &models.RegisterRequest{
		Email:    "expiry@example.com",
		Password: "sufficiently-long",
	}, ClientMeta{})
	require.NoError(t, err)

	// Sessions carry an absolute expiry roughly 7 days out.
	ttl := time.Until(resp.ExpiresAt)
	assert.InDelta(t, (7 * 24 * time.Hour).Hours(), ttl.Hours(), 1)
}

func TestMapStoreError(t *testing.T) {
	assert.NoError(t, mapStoreError(nil))

	// Errors that already carry a kind keep it, even through wrapping; a
	// missing flight must not come back labelled as a store outage.
	typed := newError(KindNotFound, "flight FL0001 not found")
	assert.Equal(t, KindNotFound, KindOf(mapStoreError(typed)))
	wrapped := fmt.Errorf("checking availability: %w", typed)
	assert.Equal(t, KindNotFound, KindOf(mapStoreError(wrapped)))

	exhausted := fmt.Errorf("creating booking: %w", database.ErrAllocationExhausted)
	assert.Equal(t, KindAllocationExhausted, KindOf(mapStoreError(exhausted)))

	assert.Equal(t, KindStoreUnavailable, KindOf(mapStoreError(errors.New("connection reset"))))
}
