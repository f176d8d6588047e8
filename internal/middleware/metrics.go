package middleware

import (
	"strconv"
	"time"

	"storefront/internal/metrics"

	"github.com/labstack/echo/v4"
)

// ルートのパターン単位でリクエスト数と処理時間を記録する
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			metrics.ObserveHTTP(
				c.Request().Method,
				endpoint,
				strconv.Itoa(c.Response().Status),
				time.Since(start),
			)
			return nil
		}
	}
}
