package middleware

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// HoneybadgerMiddleware reports panics and failed API calls to Honeybadger
// when HONEYBADGER_API_KEY is set. Missing routes and rejected session
// tokens are routine for a sync client and are not reported.
func HoneybadgerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		log.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) { c.Next() }
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("MEALSYNC_ENV"),
	})
	log.Info("Honeybadger error reporting is enabled.")

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			honeybadger.Notify(fmt.Sprintf("panic in %s %s: %v", c.Request.Method, route, rec),
				c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
			log.Errorf("panic in %s %s reported to Honeybadger: %v", c.Request.Method, route, rec)
			// gin.Recovery writes the response
			panic(rec)
		}()

		c.Next()

		status := c.Writer.Status()
		switch {
		case status < 400, status == http.StatusNotFound, status == http.StatusUnauthorized:
			return
		case status >= 500:
			honeybadger.Notify(fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, route),
				c.Request, honeybadger.Context{"errors": c.Errors.String()}, honeybadger.Tags{"5XX", "http"})
		default:
			honeybadger.Notify(fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, route),
				honeybadger.Tags{"4XX", "http"})
		}
		log.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, route)
	}
}
