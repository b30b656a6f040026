package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/apitask/internal/config"
	"github.com/phrazzld/apitask/internal/domain"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, secret string, now time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(config.AuthConfig{
		JWTSecret:                   secret,
		TokenLifetimeMinutes:        120,
		RefreshTokenLifetimeMinutes: 10080,
	}, func() time.Time { return now })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{
		JWTSecret:                   "short",
		TokenLifetimeMinutes:        1,
		RefreshTokenLifetimeMinutes: 1,
	})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()
	svc := newTestService(t, testSecret, fixedTime)

	token, err := svc.GenerateToken(ctx, userID, domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, 2*time.Hour, svc.AccessTokenLifetime())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()

	issuer := newTestService(t, testSecret, fixedTime)
	access, err := issuer.GenerateToken(ctx, userID, domain.RoleUser)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(ctx, userID, domain.RoleUser)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtCustomClaims{
		UserID:    userID,
		Role:      domain.RoleUser,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
		},
	})
	foreignToken, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name      string
		validator *hmacJWTService
		token     string
		wantErr   error
	}{
		{"expired", newTestService(t, testSecret, fixedTime.Add(3*time.Hour)), access, ErrExpiredToken},
		{"within clock skew", newTestService(t, testSecret, fixedTime.Add(2*time.Hour+time.Minute)), access, nil},
		{"wrong secret", newTestService(t, "another-secret-that-is-long-enough-too", fixedTime), access, ErrInvalidToken},
		{"malformed", issuer, "this.is.not.a.valid.jwt.token", ErrInvalidToken},
		{"refresh used as access", issuer, refresh, ErrWrongTokenType},
		{"foreign issuer", issuer, foreignToken, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.validator.ValidateToken(ctx, tt.token)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, userID, claims.UserID)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()
	svc := newTestService(t, testSecret, fixedTime)

	refresh, err := svc.GenerateRefreshToken(ctx, userID, domain.RoleUser)
	require.NoError(t, err)
	access, err := svc.GenerateToken(ctx, userID, domain.RoleUser)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, domain.RoleUser, claims.Role)

	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	later := newTestService(t, testSecret, fixedTime.Add(8*24*time.Hour))
	_, err = later.ValidateRefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)

	_, err = svc.ValidateRefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hashed, err := HashPassword("correct-horse-battery", bcrypt.MinCost)
	require.NoError(t, err)

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(hashed, "correct-horse-battery"))
	assert.Error(t, v.Compare(hashed, "wrong-password-here"))

	// Out-of-range costs fall back to the default.
	hashed, err = HashPassword("correct-horse-battery", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
