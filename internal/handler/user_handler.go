package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Yasuhisa-O/SNS/internal/cache"
	"github.com/Yasuhisa-O/SNS/internal/config"
	"github.com/Yasuhisa-O/SNS/internal/connections"
	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/logger"
	"github.com/Yasuhisa-O/SNS/internal/models"
	"github.com/Yasuhisa-O/SNS/internal/tokens"
	"github.com/Yasuhisa-O/SNS/pkg/jwt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
// Registration does not take a password: the account is created
// inactive and activated through the emailed reset link.
type RegisterInput struct {
	Username string `json:"username" binding:"required" example:"testuser"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// ForgotPasswordInput requests a fresh reset token for an account.
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email" example:"test@example.com"`
}

// ResetPasswordInput carries the new password for a reset token.
type ResetPasswordInput struct {
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// ChangePasswordInput carries a new password for the authenticated user.
type ChangePasswordInput struct {
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// UpdateProfileInput defines the editable profile fields.
type UpdateProfileInput struct {
	Username string `json:"username" binding:"required" example:"testuser"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID            uint                       `json:"id" example:"1"`
	Username      string                     `json:"username" example:"testuser"`
	ConnectStatus connections.RelationStatus `json:"connect_status,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID          uint   `json:"id" example:"1"`
	Username    string `json:"username" example:"testuser"`
	Email       string `json:"email" example:"test@example.com"`
	Active      bool   `json:"active"`
	PicturePath string `json:"picture_path,omitempty"`
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates an inactive user and publishes a password reset token. The reset URL is delivered out of band.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]string "{"message": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingUser models.User
	if err := database.DB.Where("username = ? OR email = ?", input.Username, input.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Active:   false,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if err := publishResetToken(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish reset token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "A password setup URL has been sent, check your inbox"})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      403  {object}  ErrorResponse "Account not activated"
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not activated, reset your password first"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ForgotPassword godoc
// @Summary      Request a password reset
// @Description  Publishes a fresh reset token for an existing account. The reset URL is delivered out of band.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body ForgotPasswordInput true "Account email"
// @Success      200  {object}  map[string]string "{"message": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/forgot_password [post]
func ForgotPassword(c *gin.Context) {
	var input ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := publishResetToken(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish reset token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A password reset URL has been issued"})
}

// ResetPassword godoc
// @Summary      Set a new password via reset token
// @Description  Consumes a one-time reset token, stores the new password and activates the account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token path  string             true "Reset token"
// @Param        input body  ResetPasswordInput true "New password"
// @Success      200  {object}  map[string]string "{"message": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Invalid or expired token"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/reset_password/{token} [post]
func ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := resetTokens().Consume(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidToken) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid or expired reset token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify reset token"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	err = database.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"password_hash": string(hashedPassword), "active": true}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been updated"})
}

// endregion

// region --- User Handlers ---

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile for the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var user models.User
	if err := database.DB.First(&user, viewerID.(uint)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// UpdateMe godoc
// @Summary      Update current user's profile
// @Description  Updates the username and email of the authenticated user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateProfileInput true "Profile fields"
// @Success      200  {object}  PrivateUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /users/me [put]
func UpdateMe(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var taken models.User
	err := database.DB.
		Where("(username = ? OR email = ?) AND id <> ?", input.Username, input.Email, viewerID.(uint)).
		First(&taken).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	var user models.User
	if err := database.DB.First(&user, viewerID.(uint)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Username = input.Username
	user.Email = input.Email
	if err := database.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Stores a new password for the authenticated user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ChangePasswordInput true "New password"
// @Success      200  {object}  map[string]string "{"message": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/password [post]
func ChangePassword(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	err = database.DB.Model(&models.User{}).
		Where("id = ?", viewerID.(uint)).
		Update("password_hash", string(hashedPassword)).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been updated"})
}

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by username with pagination. Each result carries its connection status relative to the viewer.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for username"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[PublicUserResponse]
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /users [get]
func SearchUsers(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	searchQuery := c.Query("q")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // Max limit
	}

	query := database.DB.Model(&models.User{}).Where("id <> ?", viewerID.(uint))
	if searchQuery != "" {
		query = query.Where("LOWER(username) LIKE LOWER(?)", "%"+searchQuery+"%")
	}

	result, err := Paginate[models.User](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	ledger := connections.NewLedger(database.DB)
	userResponses := make([]PublicUserResponse, 0, len(result.Data))
	for _, user := range result.Data {
		status, err := ledger.Status(c.Request.Context(), viewerID.(uint), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve connection status"})
			return
		}
		userResponses = append(userResponses, PublicUserResponse{
			ID:            user.ID,
			Username:      user.Username,
			ConnectStatus: status,
		})
	}

	c.JSON(http.StatusOK, PaginatedResponse[PublicUserResponse]{
		Data: userResponses,
		Meta: result.Meta,
	})
}

// endregion

// region --- Helpers ---

func buildPrivateUserResponse(user models.User) PrivateUserResponse {
	return PrivateUserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Active:      user.Active,
		PicturePath: user.PicturePath,
	}
}

func resetTokens() *tokens.Manager {
	ttl := time.Duration(config.AppConfig.ResetTokenTTLHours) * time.Hour
	return tokens.NewManager(cache.Shared, ttl)
}

// publishResetToken issues a token and logs the reset URL. Mail
// delivery of the URL stays outside this service.
func publishResetToken(c *gin.Context, userID uint) error {
	token, err := resetTokens().Issue(c.Request.Context(), userID)
	if err != nil {
		return err
	}
	logger.Info("password reset URL issued",
		"user_id", userID,
		"url", fmt.Sprintf("%s/api/v1/auth/reset_password/%s", config.AppConfig.BaseURL, token),
	)
	return nil
}

// endregion
