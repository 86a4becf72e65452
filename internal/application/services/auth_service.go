package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	config "github.com/avatarctic/offline-sync/configs"
	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/avatarctic/offline-sync/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues and validates bearer tokens for the admin API. There is a single
// operator account whose bcrypt hash comes from configuration.
type AuthService struct {
	jwtConfig   *config.JWTConfig
	adminConfig *config.AdminConfig
	logger      *logrus.Logger
}

func NewAuthService(jwtConfig *config.JWTConfig, adminConfig *config.AdminConfig, logger *logrus.Logger) ports.AuthService {
	return &AuthService{
		jwtConfig:   jwtConfig,
		adminConfig: adminConfig,
		logger:      logger,
	}
}

func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.AuthTokens, error) {
	if s.adminConfig.PasswordHash == "" {
		return nil, fmt.Errorf("admin login is disabled")
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminConfig.Username)) == 1
	// always run bcrypt so an unknown username costs the same as a wrong password
	pwErr := utils.CheckPassword(s.adminConfig.PasswordHash, req.Password)
	if !userOK || pwErr != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"username": req.Username}).Warn("admin login rejected")
		}
		return nil, ErrInvalidCredentials
	}
	return s.generateToken(req.Username)
}

func (s *AuthService) generateToken(username string) (*auth.AuthTokens, error) {
	now := time.Now()
	claims := &auth.Claims{
		Username: username,
		Scope:    auth.ScopeAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.jwtConfig.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &auth.AuthTokens{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtConfig.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithIssuer(s.jwtConfig.Issuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Scope != auth.ScopeAdmin {
		return nil, fmt.Errorf("token lacks %s scope", auth.ScopeAdmin)
	}
	return claims, nil
}
