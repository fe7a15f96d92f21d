// Package httpcontroller exposes the dashboard over HTTP: deployment KPIs,
// filtered record listings, filter options, and per-record resolved images.
// The display layer consumes this JSON API; everything it needs about an image
// slot is whether a payload exists, the embeddable encoding, and the content
// type.
package httpcontroller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/asmavensocial/installation-dashbaord/internal/conf"
	"github.com/asmavensocial/installation-dashbaord/internal/drivelink"
	"github.com/asmavensocial/installation-dashbaord/internal/imageresolver"
	"github.com/asmavensocial/installation-dashbaord/internal/logging"
	"github.com/asmavensocial/installation-dashbaord/internal/observability"
	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// Server wires the dashboard's HTTP endpoints to the survey data and the
// image-resolution pipeline. Records are read-only after construction; the
// cache and preloader own all mutable state.
type Server struct {
	Echo       *echo.Echo
	Settings   *conf.Settings
	Records    []survey.Record
	Cache      *imageresolver.Cache
	Preloader  *imageresolver.Preloader
	Normalizer *drivelink.Normalizer
	Metrics    *observability.Metrics

	logger *slog.Logger
}

// New assembles the server and registers its routes. metrics may be nil, in
// which case no /metrics endpoint is exposed.
func New(settings *conf.Settings, records []survey.Record, cache *imageresolver.Cache,
	preloader *imageresolver.Preloader, normalizer *drivelink.Normalizer,
	metrics *observability.Metrics) *Server {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	logger := logging.ForService("httpcontroller")
	if logger == nil {
		logger = slog.Default().With("service", "httpcontroller")
	}

	s := &Server{
		Echo:       e,
		Settings:   settings,
		Records:    records,
		Cache:      cache,
		Preloader:  preloader,
		Normalizer: normalizer,
		Metrics:    metrics,
		logger:     logger,
	}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	api := s.Echo.Group("/api/v1")
	api.GET("/summary", s.handleSummary)
	api.GET("/records", s.handleRecords)
	api.GET("/records/:index/images", s.handleRecordImages)
	api.GET("/filters", s.handleFilters)

	s.Echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.Metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}
}

// Start runs the server on the configured host and port, blocking until
// shutdown or error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Settings.Dashboard.Host, s.Settings.Dashboard.Port)
	s.logger.Info("Dashboard listening", "addr", addr, "records", len(s.Records))
	return s.Echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
