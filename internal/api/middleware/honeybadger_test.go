package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func TestHoneybadgerMiddleware_DisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("HONEYBADGER_API_KEY", "")

	log := logrus.New()
	log.SetOutput(io.Discard)

	r := gin.New()
	r.Use(HoneybadgerMiddleware(log))
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected handler status to pass through, got %d", w.Code)
	}
}

func TestHoneybadgerMiddleware_PanicReachesRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("HONEYBADGER_API_KEY", "")

	log := logrus.New()
	log.SetOutput(io.Discard)

	r := gin.New()
	r.Use(gin.Recovery(), HoneybadgerMiddleware(log))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 from recovery, got %d", w.Code)
	}
}
