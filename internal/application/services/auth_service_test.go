package services_test

import (
	"context"
	"testing"
	"time"

	config "github.com/avatarctic/offline-sync/configs"
	impl "github.com/avatarctic/offline-sync/internal/application/services"
	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) (*config.JWTConfig, *impl.AuthService) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Correct-Horse-1"), bcrypt.MinCost)
	require.NoError(t, err)
	jwtCfg := &config.JWTConfig{Secret: "test-secret", Issuer: "offline-sync", AccessTokenTTL: time.Minute}
	svc := impl.NewAuthService(jwtCfg, &config.AdminConfig{Username: "admin", PasswordHash: string(hash)}, nil)
	return jwtCfg, svc.(*impl.AuthService)
}

func TestAuthService_LoginIssuesValidToken(t *testing.T) {
	_, svc := newTestAuthService(t)

	tokens, err := svc.Login(context.Background(), &auth.LoginRequest{Username: "admin", Password: "Correct-Horse-1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(60), tokens.ExpiresIn)

	claims, err := svc.ValidateToken(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, auth.ScopeAdmin, claims.Scope)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	_, svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), &auth.LoginRequest{Username: "admin", Password: "wrong"})
	require.ErrorIs(t, err, impl.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &auth.LoginRequest{Username: "root", Password: "Correct-Horse-1"})
	require.ErrorIs(t, err, impl.ErrInvalidCredentials)
}

func TestAuthService_LoginDisabledWithoutHash(t *testing.T) {
	svc := impl.NewAuthService(&config.JWTConfig{Secret: "s"}, &config.AdminConfig{Username: "admin"}, nil)
	_, err := svc.Login(context.Background(), &auth.LoginRequest{Username: "admin", Password: ""})
	require.Error(t, err)
}

func TestAuthService_ValidateTokenRejections(t *testing.T) {
	jwtCfg, svc := newTestAuthService(t)
	sign := func(claims *auth.Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() *auth.Claims {
		return &auth.Claims{
			Username: "admin",
			Scope:    auth.ScopeAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtCfg.Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	_, err := svc.ValidateToken(context.Background(), sign(valid(), jwtCfg.Secret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), sign(valid(), "other-secret"))
	assert.Error(t, err, "wrong secret")

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = svc.ValidateToken(context.Background(), sign(expired, jwtCfg.Secret))
	assert.Error(t, err, "expired")

	foreign := valid()
	foreign.Issuer = "someone-else"
	_, err = svc.ValidateToken(context.Background(), sign(foreign, jwtCfg.Secret))
	assert.Error(t, err, "issuer")

	unscoped := valid()
	unscoped.Scope = "read"
	_, err = svc.ValidateToken(context.Background(), sign(unscoped, jwtCfg.Secret))
	assert.Error(t, err, "scope")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), none)
	assert.Error(t, err, "alg none")
}
