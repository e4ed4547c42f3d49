package ircprom

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsPath is where the registry is exposed.
const MetricsPath = "/metrics"

// Handler returns an echo instance serving the collector's registry on
// MetricsPath and a liveness probe on /healthz.
func (c *Collector) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET(MetricsPath, echo.WrapHandler(promhttp.HandlerFor(
		c.Registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)))
	e.GET("/healthz", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})

	return e
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	log := logrus.StandardLogger().WithField("component", "ircprom")
	e := c.Handler()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}
