package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest represents the operator login request for the admin API
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthTokens represents the issued access token
type AuthTokens struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Claims represents the JWT claims carried by admin API tokens
type Claims struct {
	Username string `json:"username"`
	Scope    string `json:"scope"`

	jwt.RegisteredClaims
}

// ScopeAdmin grants access to every admin API route
const ScopeAdmin = "offline:admin"
