package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
)

type ctxKey string

const (
	keyClaims   ctxKey = "claims"
	keyUsername ctxKey = "username"
)

func SetClaims(c echo.Context, claims *auth.Claims) {
	c.Set(string(keyClaims), claims)
	c.Set(string(keyUsername), claims.Username)
}

func GetClaimsRaw(c echo.Context) (*auth.Claims, bool) {
	v := c.Get(string(keyClaims))
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func GetUsernameRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyUsername))
	s, ok := v.(string)
	return s, ok
}
