package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Run serves until ctx is cancelled, then drains in-flight requests for at most
// shutdownTimeout. A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.LogMetricsInitialization()
	if s.authSvc == nil && s.logger != nil {
		s.logger.Warn("Admin API is unauthenticated - set ADMIN_PASSWORD_HASH and JWT_SECRET to require tokens")
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, s.config.Port),
		Handler:      s.echo,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.serve(srv)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	if s.logger != nil {
		s.logger.Info("Shutting down HTTP server")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serve(srv *http.Server) error {
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		if s.logger != nil {
			s.logger.Infof("Starting HTTPS server on %s", srv.Addr)
		}
		return srv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	if s.logger != nil {
		s.logger.Infof("Starting HTTP server on %s", srv.Addr)
	}
	return srv.ListenAndServe()
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
