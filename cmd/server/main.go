package main

import (
	"context"
	"net/http"
	"os"

	"github.com/Yasuhisa-O/SNS/internal/auth"
	"github.com/Yasuhisa-O/SNS/internal/cache"
	"github.com/Yasuhisa-O/SNS/internal/config"
	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/handler"
	"github.com/Yasuhisa-O/SNS/internal/logger"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "github.com/Yasuhisa-O/SNS/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           SNS API
// @version         1.0
// @description     This is the API for the SNS service: accounts, friend connections and direct messages.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.InitFromConfig(config.AppConfig)

	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// Connect to Redis (reset tokens, unread-count cache)
	redisCache := cache.Connect(config.AppConfig)
	if err := redisCache.Ping(context.Background()); err != nil {
		logger.Error("failed to connect to redis", "addr", config.AppConfig.RedisAddr, "err", err)
		os.Exit(1)
	}

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Neutral landing page: the redirect target for non-friend
	// conversation access and unknown routes.
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "welcome",
		})
	})

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Unknown routes go home rather than 404.
	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
			authRoutes.POST("/forgot_password", handler.ForgotPassword)
			authRoutes.POST("/reset_password/:token", handler.ResetPassword)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware(), auth.ActiveUserMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.PUT("/me", handler.UpdateMe)
			userRoutes.POST("/me/password", handler.ChangePassword)
			userRoutes.GET("/me/connections", handler.GetMyConnections)
			userRoutes.GET("/me/unread_count", handler.GetUnreadCount)

			// Connection routes
			userRoutes.POST("/:id/connect", handler.SendConnectRequest)
			userRoutes.POST("/:id/accept", handler.AcceptConnectRequest)
		}

		// Message routes (protected)
		messageRoutes := apiV1.Group("/messages")
		messageRoutes.Use(auth.AuthMiddleware(), auth.ActiveUserMiddleware())
		{
			messageRoutes.GET("/:id", handler.GetConversation)
			messageRoutes.POST("/:id", handler.SendMessage)
			messageRoutes.GET("/:id/poll", handler.PollMessages)
			messageRoutes.GET("/:id/history", handler.LoadOldMessages)
		}
	}

	addr := ":" + config.AppConfig.Port
	logger.Info("server starting", "addr", addr)
	logger.Info("swagger UI available", "url", config.AppConfig.BaseURL+"/swagger/index.html")

	if err := router.Run(addr); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
