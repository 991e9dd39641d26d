package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Yasuhisa-O/SNS/internal/auth"
	"github.com/Yasuhisa-O/SNS/internal/cache"
	"github.com/Yasuhisa-O/SNS/internal/config"
	"github.com/Yasuhisa-O/SNS/internal/connections"
	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/handler"
	"github.com/Yasuhisa-O/SNS/internal/models"
	"github.com/Yasuhisa-O/SNS/pkg/jwt"
)

// setupServer wires the handler globals to an in-memory database and a
// miniredis instance, and returns a router with the production route
// layout.
func setupServer(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		JWTSecret:          "test-secret",
		BaseURL:            "http://localhost:8080",
		ResetTokenTTLHours: 24,
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	database.DB = db

	mr := miniredis.RunT(t)
	cache.Shared = cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	router := gin.New()

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "welcome"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
			authRoutes.POST("/forgot_password", handler.ForgotPassword)
			authRoutes.POST("/reset_password/:token", handler.ResetPassword)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware(), auth.ActiveUserMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers)
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.PUT("/me", handler.UpdateMe)
			userRoutes.POST("/me/password", handler.ChangePassword)
			userRoutes.GET("/me/connections", handler.GetMyConnections)
			userRoutes.GET("/me/unread_count", handler.GetUnreadCount)
			userRoutes.POST("/:id/connect", handler.SendConnectRequest)
			userRoutes.POST("/:id/accept", handler.AcceptConnectRequest)
		}

		messageRoutes := apiV1.Group("/messages")
		messageRoutes.Use(auth.AuthMiddleware(), auth.ActiveUserMiddleware())
		{
			messageRoutes.GET("/:id", handler.GetConversation)
			messageRoutes.POST("/:id", handler.SendMessage)
			messageRoutes.GET("/:id/poll", handler.PollMessages)
			messageRoutes.GET("/:id/history", handler.LoadOldMessages)
		}
	}

	return router, mr
}

func createActiveUser(t *testing.T, name string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{
		Username:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func makeFriends(t *testing.T, a, b uint) {
	t.Helper()
	ledger := connections.NewLedger(database.DB)
	if err := ledger.Request(context.Background(), a, b); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := ledger.Accept(context.Background(), b, a); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
}

func bearerToken(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

// doRequest performs one request against the router. token may be empty
// for unauthenticated calls; body may be nil.
func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}
