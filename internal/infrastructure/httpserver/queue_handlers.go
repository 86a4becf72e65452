package httpserver

import (
	"errors"
	"net/http"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func (s *Server) listQueue(c echo.Context) error {
	actions := s.engine.ListQueue()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"actions": actions,
		"total":   len(actions),
	})
}

func (s *Server) queueAction(c echo.Context) error {
	var req action.EnqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	a, err := s.engine.QueueAction(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, action.ErrUnknownType) || errors.Is(err, action.ErrInvalidType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to queue action")
	}
	return c.JSON(http.StatusAccepted, a)
}

func (s *Server) clearQueue(c echo.Context) error {
	s.engine.ClearQueue(c.Request().Context())
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"actor": helpers.GetActor(c)}).Warn("action queue cleared via API")
	}
	return c.NoContent(http.StatusNoContent)
}
