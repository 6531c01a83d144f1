package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/tunegrab-go/api/handlers"
	"github.com/yourusername/tunegrab-go/api/middleware"
	"github.com/yourusername/tunegrab-go/internal/app"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	queueMgr *app.QueueManager,
	runMgr *app.RunManager,
	logAdapter *logger.LoggerAdapter,
	logsDir string,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logAdapter.GetSingleLogger()))
	router.Use(middleware.Recovery(logAdapter.GetSingleLogger()))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(queueMgr)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Run endpoints
		runHandler := handlers.NewRunHandler(queueMgr, runMgr, logAdapter.GetSingleLogger())
		runs := v1.Group("/runs")
		{
			runs.POST("", runHandler.AddRun)
			runs.GET("", runHandler.ListRuns)
			runs.GET("/stats", runHandler.GetStats)
			runs.GET("/:id", runHandler.GetRun)
			runs.POST("/:id/cancel", runHandler.CancelRun)
			runs.POST("/:id/retry", runHandler.RetryRun)
			runs.DELETE("/:id", runHandler.DeleteRun)
		}

		// Log endpoints
		logHandler := handlers.NewLogHandler(logsDir)
		wsHandler := handlers.NewLogWebSocketHandler(logsDir, logAdapter.GetSingleLogger())
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/stream", wsHandler.HandleWebSocket)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	return router
}
