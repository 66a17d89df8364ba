package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/logger"
)

func TestObservabilityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(ObservabilityMiddleware(otel.Tracer("test"), metrics.HTTPRequests, metrics.HTTPRequestDuration))
	router.GET("/keys/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/keys/k1", "/keys/k2", "/nowhere"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/keys/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "not_found", "404")))
}

func TestRequestIDAndActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotActor, gotIP string
	var gotRequestID interface{}
	router := gin.New()
	router.Use(RequestID(), Actor(), Logging(logger.NewNoopLogger()))
	router.GET("/ping", func(c *gin.Context) {
		gotActor, gotIP = application.ActorFromContext(c.Request.Context())
		gotRequestID = c.Request.Context().Value(constants.ContextKeyRequestID)
		c.Status(http.StatusNoContent)
	})

	t.Run("generated request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		router.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get(constants.HeaderRequestID))
		assert.Equal(t, w.Header().Get(constants.HeaderRequestID), gotRequestID)
		assert.Equal(t, "anonymous", gotActor)
		assert.Equal(t, "10.1.2.3", gotIP)
	})

	t.Run("propagated headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(constants.HeaderRequestID, "req-42")
		req.Header.Set(constants.HeaderActor, "alice")
		router.ServeHTTP(w, req.WithContext(context.Background()))

		assert.Equal(t, "req-42", w.Header().Get(constants.HeaderRequestID))
		assert.Equal(t, "alice", gotActor)
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(logger.NewNoopLogger()))
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}
