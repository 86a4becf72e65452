package ports

import (
	"context"

	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
)

// AuthService defines the interface for admin API authentication
type AuthService interface {
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.AuthTokens, error)
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}
