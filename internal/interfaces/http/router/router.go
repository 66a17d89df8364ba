// Package router assembles the gin engine of the registry HTTP API.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/internal/interfaces/http/handlers"
	"github.com/turtacn/keyreg/internal/interfaces/http/middleware"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/logger"
)

// Handlers groups the route handlers.
type Handlers struct {
	Health     *handlers.HealthHandler
	Keys       *handlers.KeyHandler
	Bulk       *handlers.BulkHandler
	Selections *handlers.SelectionHandler
	Audit      *handlers.AuditHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	config   *config.Config
	logger   logger.Logger
	handlers Handlers
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	tracer   trace.Tracer
	server   *http.Server
}

// NewRouter 创建路由器。gatherer 提供 /metrics 的数据来源。
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	h Handlers,
	metrics *monitoring.Metrics,
	gatherer prometheus.Gatherer,
	tracer trace.Tracer,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	r := &Router{
		engine:   gin.New(),
		config:   cfg,
		logger:   log.WithComponent("Router"),
		handlers: h,
		metrics:  metrics,
		gatherer: gatherer,
		tracer:   tracer,
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        r.engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 全局中间件
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())

	origins := r.config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderRequestID, constants.HeaderActor, constants.HeaderSession},
		ExposeHeaders: []string{constants.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	r.engine.Use(middleware.ObservabilityMiddleware(r.tracer, r.metrics.HTTPRequests, r.metrics.HTTPRequestDuration))
	r.engine.Use(middleware.Logging(r.logger))
	r.engine.Use(middleware.Actor())

	// 健康检查
	r.engine.GET("/health/live", r.handlers.Health.LivenessCheck)
	r.engine.GET("/health/ready", r.handlers.Health.ReadinessCheck)

	if r.config.Monitoring.MetricsEnabled {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	// Pprof 性能分析（仅在非生产环境）
	if r.config.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		keys := v1.Group("/keys")
		{
			keys.POST("", r.handlers.Keys.Register)
			keys.GET("", r.handlers.Keys.List)
			keys.GET("/summary", r.handlers.Keys.Summary)
			keys.GET("/:id", r.handlers.Keys.Get)
			keys.PATCH("/:id", r.handlers.Keys.Update)
			keys.POST("/:id/:action", r.handlers.Keys.Transition)
		}

		bulk := v1.Group("/bulk")
		{
			bulk.POST("", r.handlers.Bulk.Request)
			bulk.POST("/:token/confirm", r.handlers.Bulk.Confirm)
		}

		selections := v1.Group("/selections/:session")
		{
			selections.GET("", r.handlers.Selections.Get)
			selections.DELETE("", r.handlers.Selections.Clear)
			selections.POST("/select", r.handlers.Selections.Select)
			selections.POST("/deselect", r.handlers.Selections.Deselect)
			selections.POST("/select-all", r.handlers.Selections.SelectAll)
		}

		audit := v1.Group("/audit-events")
		{
			audit.GET("", r.handlers.Audit.List)
			audit.POST("", r.handlers.Audit.Append)
		}
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start 启动 HTTP 服务器，阻塞直到服务器关闭
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

// Engine returns the gin engine, for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
