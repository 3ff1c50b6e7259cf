// Package http serves the account operations over a single Echo endpoint:
// POST /api with {"operation": "<name>", "variables": {...}} returns the
// operation's envelope.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/api"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const (
	bodyLimit       = "50M"
	gzipMinLength   = 10 * 1024
	shutdownTimeout = 5 * time.Second
)

type HTTPServer struct {
	address    string
	dispatcher *api.Dispatcher
	tokens     auth.TokenParser
	logger     logging.Logger
}

func NewHTTPServer(a string, l logging.Logger, d *api.Dispatcher, tokens auth.TokenParser) *HTTPServer {
	return &HTTPServer{
		address:    a,
		logger:     l.With("module", "http_server"),
		dispatcher: d,
		tokens:     tokens,
	}
}

// Handler returns the Echo instance with all middlewares and routes.
func (s *HTTPServer) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			s.logger.Info(c.Request().Context(), "request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{MinLength: gzipMinLength}))
	e.Use(s.identity)

	e.GET("/", s.handleHealth)
	e.POST("/api", s.handleAPI)

	return e
}

func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	e := s.Handler()
	e.Listener = listen

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
