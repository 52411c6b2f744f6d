package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/handler"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Events    *handler.EventHandler
	Intervals *handler.IntervalHandler
	Stats     *handler.StatsHandler
	Schedule  *handler.ScheduleHandler
	Tasks     *handler.AnalysisTaskHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxMemory
	r.Use(gin.Recovery(), middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Loss time API is running",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	{
		events := api.Group("/events")
		{
			events.GET("", h.Events.GetEvents)
			events.POST("/import", h.Events.Import)
		}

		intervals := api.Group("/intervals")
		{
			intervals.GET("", h.Intervals.GetIntervals)
			intervals.GET("/export", h.Intervals.Export)
		}

		stats := api.Group("/stats")
		{
			stats.GET("/summary", h.Stats.GetSummary)
			stats.GET("/top-persons", h.Stats.GetTopPersons)
			stats.GET("/categories", h.Stats.GetCategoryLoss)
			stats.GET("/hourly", h.Stats.GetHourlyDistribution)
		}

		api.GET("/schedule", h.Schedule.GetSchedule)
	}

	// 管理接口
	admin := r.Group("/api/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		tasks := admin.Group("/analysis/tasks")
		{
			tasks.POST("", h.Tasks.CreateTask)
			tasks.GET("", h.Tasks.ListTasks)
			tasks.GET("/:id", h.Tasks.GetTask)
			tasks.DELETE("/:id", h.Tasks.CancelTask)
		}
	}

	return r
}
