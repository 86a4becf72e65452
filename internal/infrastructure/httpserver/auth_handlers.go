package httpserver

import (
	"net/http"

	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
	"github.com/labstack/echo/v4"
)

func (s *Server) issueToken(c echo.Context) error {
	if s.authSvc == nil {
		return echo.NewHTTPError(http.StatusNotFound, "authentication is not enabled")
	}

	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	tokens, err := s.authSvc.Login(c.Request().Context(), &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	return c.JSON(http.StatusOK, tokens)
}
