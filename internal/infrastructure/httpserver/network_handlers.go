package httpserver

import (
	"net/http"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/labstack/echo/v4"
)

type networkReportRequest struct {
	IsConnected   bool   `json:"is_connected"`
	IsReachable   bool   `json:"is_reachable"`
	TransportType string `json:"transport_type" validate:"omitempty,oneof=wifi ethernet cellular none unknown"`
}

func (s *Server) getNetwork(c echo.Context) error {
	snap, known := s.engine.CurrentNetwork()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"known":    known,
		"snapshot": snap,
		"online":   known && snap.Online(),
	})
}

// reportNetwork lets a platform bridge push a connectivity change.
func (s *Server) reportNetwork(c echo.Context) error {
	var req networkReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	transport := req.TransportType
	if transport == "" {
		transport = network.TransportUnknown
	}
	snap := network.Snapshot{
		IsConnected:   req.IsConnected,
		IsReachable:   req.IsReachable,
		TransportType: transport,
		ObservedAt:    time.Now(),
	}
	s.engine.ReportNetwork(snap)
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) refreshNetwork(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.RefreshNetwork(c.Request().Context()))
}
