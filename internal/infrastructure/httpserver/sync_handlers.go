package httpserver

import (
	"errors"
	"net/http"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/labstack/echo/v4"
)

func (s *Server) forceSync(c echo.Context) error {
	result, err := s.engine.ForceSyncNow(c.Request().Context())
	if err != nil {
		if errors.Is(err, action.ErrSyncInProgress) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "sync pass failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) lastSync(c echo.Context) error {
	result := s.engine.LastSyncResult()
	if result == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no sync pass has run yet")
	}
	return c.JSON(http.StatusOK, result)
}
