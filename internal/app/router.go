// internal/app/router.go
package app

import (
	"net/http"
	"time"

	authHandler "taskhub-service/internal/handlers/auth"
	fileHandler "taskhub-service/internal/handlers/file"
	taskHandler "taskhub-service/internal/handlers/task"
	userHandler "taskhub-service/internal/handlers/user"
	wsHandler "taskhub-service/internal/handlers/websocket"
	"taskhub-service/internal/middleware"
	"taskhub-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	UserHandler    *userHandler.UserHandler
	TaskHandler    *taskHandler.TaskHandler
	FileHandler    *fileHandler.FileHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        http.Handler
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// ==================== Metrics ====================
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/refresh", h.AuthHandler.Refresh)
		authPublic.POST("/logout", h.AuthHandler.Logout)
	}

	// ==================== Users ====================
	users := api.Group("/users")
	users.Use(h.AuthMiddleware.Auth())
	{
		users.GET("/me", h.UserHandler.Me)

		admin := users.Group("")
		admin.Use(h.AuthMiddleware.RequireRole(jwt.RoleAdmin))
		admin.GET("", h.UserHandler.List)
		admin.GET("/:id", h.UserHandler.Get)
		admin.PATCH("/:id", h.UserHandler.Update)
		admin.DELETE("/:id", h.UserHandler.Delete)
	}

	// ==================== Tasks ====================
	tasks := api.Group("/tasks")
	tasks.Use(h.AuthMiddleware.Auth())
	{
		tasks.GET("", h.TaskHandler.List)
		tasks.POST("", h.TaskHandler.Create)
		tasks.GET("/:id", h.TaskHandler.Get)
		tasks.PATCH("/:id", h.TaskHandler.Update)
		tasks.DELETE("/:id", h.TaskHandler.Delete)
	}

	// ==================== Files ====================
	files := api.Group("/files")
	files.Use(h.AuthMiddleware.Auth())
	{
		files.GET("", h.FileHandler.List)
		files.POST("/upload", h.FileHandler.Upload)
		files.GET("/:id", h.FileHandler.Get)
		files.GET("/:id/download", h.FileHandler.Download)
		files.DELETE("/:id", h.FileHandler.Delete)
	}

	// ==================== Admin ====================
	adminGroup := api.Group("/admin")
	adminGroup.Use(h.AuthMiddleware.AdminOnly()...)
	{
		adminGroup.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
