package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/status"
	"github.com/labstack/echo/v4"
)

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.GetStatus())
}

// streamStatus pushes every status change as a server-sent event. A slow client only
// ever sees the newest pending status.
func (s *Server) streamStatus(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	// the stream outlives the server's WriteTimeout
	_ = http.NewResponseController(res.Writer).SetWriteDeadline(time.Time{})

	updates := make(chan status.Status, 1)
	unsubscribe := s.engine.Subscribe(func(st status.Status) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			data, err := json.Marshal(st)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "event: status\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
