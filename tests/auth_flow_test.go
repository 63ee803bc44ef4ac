package tests

import (
	"context"
	"testing"
	"time"

	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/models"
	"github.com/shiftwise/auth-api/internal/phone"
	"github.com/shiftwise/auth-api/internal/services"
	"github.com/shiftwise/auth-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// noGateway fails the test if the engine ever contacts the delivery
// gateway. These scenarios run entirely on the sandbox bypass.
type noGateway struct{ t *testing.T }

func (g noGateway) StartChallenge(_ context.Context, _, _ string) error {
	g.t.Fatal("delivery gateway must not be called in sandbox scenarios")
	return nil
}

func (g noGateway) CheckChallenge(_ context.Context, _, _ string) (bool, error) {
	g.t.Fatal("delivery gateway must not be called in sandbox scenarios")
	return false, nil
}

func newEngine(t *testing.T) *services.AuthService {
	policy, err := phone.PolicyByName(config.AppConfig.PhonePolicy)
	require.NoError(t, err)

	return services.NewAuthService(
		storage.NewAccountStore(),
		storage.NewSessionStore(),
		storage.NewAttemptLog(),
		noGateway{t: t},
		policy,
		services.Sandbox{
			Enabled: config.AppConfig.SandboxEnabled,
			Phone:   config.AppConfig.SandboxPhone,
			Code:    config.AppConfig.SandboxCode,
		},
		config.Redis,
		config.AppConfig.ProfileCacheTTL,
		config.AppConfig.SessionTTL,
		zap.NewNop(),
	)
}

func TestAuthFlows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}

	containers := SetupTestContainers(t)
	defer containers.Cleanup()

	resetDatabase := func(t *testing.T) {
		CleanupDatabase(t, containers.MongoDB)
		require.NoError(t, config.EnsureIndexes())
	}

	t.Run("registration and direct login", func(t *testing.T) {
		resetDatabase(t)
		engine := newEngine(t)
		ctx := context.Background()

		res, err := engine.Register(ctx, "alice", config.AppConfig.SandboxPhone)
		require.NoError(t, err)
		require.True(t, res.Succeeded, res.Message)
		assert.Contains(t, res.Message, "****")

		res, err = engine.VerifyRegistration(ctx, "alice", config.AppConfig.SandboxCode)
		require.NoError(t, err)
		require.True(t, res.Succeeded, res.Message)
		require.NotNil(t, res.Account)
		assert.True(t, res.Account.PhoneVerified)

		// The session is consumed: a second verify finds nothing
		res, err = engine.VerifyRegistration(ctx, "alice", config.AppConfig.SandboxCode)
		require.NoError(t, err)
		assert.False(t, res.Succeeded)

		res, err = engine.RequestLogin(ctx, "alice")
		require.NoError(t, err)
		require.True(t, res.Succeeded, res.Message)
		require.NotNil(t, res.Account)
		assert.NotNil(t, res.Account.LastLoginAt)

		// RequestLogin completed without opening a login session, so a
		// follow-up code submission has nothing to verify against
		res, err = engine.Login(ctx, "alice", config.AppConfig.SandboxCode, "")
		require.NoError(t, err)
		assert.False(t, res.Succeeded)
		assert.Contains(t, res.Message, "session expired")

		profile, err := engine.Profile(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, profile.PhoneVerified)

		// Second read is served from the Redis cache
		profile, err = engine.Profile(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Username)

		history, err := engine.History(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.True(t, history[0].Success)
	})

	t.Run("attempt budget exhaustion", func(t *testing.T) {
		resetDatabase(t)
		engine := newEngine(t)
		ctx := context.Background()

		res, err := engine.Register(ctx, "bob", config.AppConfig.SandboxPhone)
		require.NoError(t, err)
		require.True(t, res.Succeeded, res.Message)

		for i := 1; i < models.MaxVerificationAttempts; i++ {
			res, err = engine.VerifyRegistration(ctx, "bob", "999999")
			require.NoError(t, err)
			assert.False(t, res.Succeeded)
			assert.Contains(t, res.Message, "attempts remaining")
		}

		res, err = engine.VerifyRegistration(ctx, "bob", "999999")
		require.NoError(t, err)
		assert.False(t, res.Succeeded)
		assert.Contains(t, res.Message, "too many attempts")

		// The correct code is useless once the session is gone
		res, err = engine.VerifyRegistration(ctx, "bob", config.AppConfig.SandboxCode)
		require.NoError(t, err)
		assert.False(t, res.Succeeded)
		assert.Contains(t, res.Message, "session expired")

		// Resend restarts the flow with a fresh budget
		res, err = engine.ResendVerification(ctx, "bob")
		require.NoError(t, err)
		require.True(t, res.Succeeded, res.Message)

		res, err = engine.VerifyRegistration(ctx, "bob", config.AppConfig.SandboxCode)
		require.NoError(t, err)
		assert.True(t, res.Succeeded, res.Message)
	})

	t.Run("uniqueness enforced by indexes", func(t *testing.T) {
		resetDatabase(t)
		ctx := context.Background()
		accounts := storage.NewAccountStore()

		first := &models.Account{
			Username:  "carol",
			Phone:     "+972501234567",
			Active:    true,
			CreatedAt: time.Now(),
		}
		require.NoError(t, accounts.Insert(ctx, first))

		dup := &models.Account{
			Username:  "carol",
			Phone:     "+972529999999",
			Active:    true,
			CreatedAt: time.Now(),
		}
		assert.Equal(t, models.ErrAccountExists, accounts.Insert(ctx, dup))

		dupPhone := &models.Account{
			Username:  "dave",
			Phone:     "+972501234567",
			Active:    true,
			CreatedAt: time.Now(),
		}
		assert.Equal(t, models.ErrPhoneExists, accounts.Insert(ctx, dupPhone))
	})

	t.Run("conditional attempt increment", func(t *testing.T) {
		resetDatabase(t)
		ctx := context.Background()
		sessions := storage.NewSessionStore()

		session := &models.VerificationSession{
			Username:    "erin",
			Phone:       "+972501234567",
			Flow:        models.FlowLogin,
			RequestedAt: time.Now(),
			ExpiresAt:   time.Now().Add(10 * time.Minute),
			Attempts:    models.MaxVerificationAttempts - 1,
		}
		require.NoError(t, sessions.Insert(ctx, session))

		attempts, err := sessions.IncrementAttempts(ctx, session.ID, models.MaxVerificationAttempts)
		require.NoError(t, err)
		assert.Equal(t, models.MaxVerificationAttempts, attempts)

		// At the cap the filter no longer matches
		_, err = sessions.IncrementAttempts(ctx, session.ID, models.MaxVerificationAttempts)
		assert.Equal(t, models.ErrAttemptsExhausted, err)
	})
}
