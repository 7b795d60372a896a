package http

import (
	"time"

	"github.com/labstack/echo/v4"
)

// metricsMiddleware records every request with its final status code.
//
// Handler errors are rendered here so the recorded code is the one sent.
func (a *Adapter) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		a.metrics.RecordRequestStart()
		defer a.metrics.RecordRequestEnd()

		if err := next(c); err != nil {
			c.Error(err)
		}

		a.metrics.RecordRequest(c.Request().Method, c.Response().Status, time.Since(start))
		return nil
	}
}
