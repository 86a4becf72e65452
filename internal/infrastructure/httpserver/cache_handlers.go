package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type cachePutRequest struct {
	Payload  json.RawMessage `json:"payload" validate:"required"`
	Priority cache.Priority  `json:"priority"`
	TTL      string          `json:"ttl,omitempty"`
}

func (s *Server) getCacheEntry(c echo.Context) error {
	data, ok := s.engine.CacheGet(c.Request().Context(), c.Param("key"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "cache entry not found")
	}
	if json.Valid(data) {
		return c.JSONBlob(http.StatusOK, data)
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

func (s *Server) putCacheEntry(c echo.Context) error {
	var req cachePutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	opts := cache.PutOptions{Priority: req.Priority}
	if req.TTL != "" {
		ttl, err := time.ParseDuration(req.TTL)
		if err != nil || ttl <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid ttl %q", req.TTL))
		}
		opts.TTL = ttl
	}

	key := c.Param("key")
	if err := s.engine.CachePut(c.Request().Context(), key, req.Payload, opts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, s.engine.GetCacheStats())
}

func (s *Server) deleteCacheEntry(c echo.Context) error {
	if !s.engine.CacheDelete(c.Request().Context(), c.Param("key")) {
		return echo.NewHTTPError(http.StatusNotFound, "cache entry not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearCache(c echo.Context) error {
	s.engine.ClearCache(c.Request().Context())
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"actor": helpers.GetActor(c)}).Info("cache cleared via API")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.GetCacheStats())
}
