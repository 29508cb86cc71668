package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one line per request. Paths in skip (the metrics
// scrape endpoint, typically) are left out to keep the log readable.
func RequestLogging(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if skipped[req.URL.Path] {
				return err
			}
			log.Printf("%s %s -> %d in %s (%s)",
				req.Method,
				req.RequestURI,
				res.Status,
				time.Since(start),
				req.RemoteAddr,
			)
			return err
		}
	}
}
