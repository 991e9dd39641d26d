package handler_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/models"
)

// resetTokenFor digs the issued reset token out of miniredis. In
// production the token only leaves the system inside the mailed URL.
func resetTokenFor(t *testing.T, mr *miniredis.Miniredis) string {
	t.Helper()
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "reset:token:") {
			return strings.TrimPrefix(key, "reset:token:")
		}
	}
	t.Fatal("no reset token found in redis")
	return ""
}

func TestRegisterResetLoginFlow(t *testing.T) {
	router, mr := setupServer(t)

	// Register: account is created inactive, no password yet.
	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "",
		gin.H{"username": "alice", "email": "alice@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	assert.NoError(t, database.DB.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.False(t, user.Active)
	assert.Empty(t, user.PasswordHash)

	// Logging in before activation is refused.
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Setting a password through the reset token activates the account.
	token := resetTokenFor(t, mr)
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/reset_password/"+token, "",
		gin.H{"password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, database.DB.First(&user, user.ID).Error)
	assert.True(t, user.Active)
	assert.NotEmpty(t, user.PasswordHash)

	// Login succeeds and the token works against a protected route.
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		Token string `json:"token"`
	}
	decodeBody(t, w, &loginResp)
	assert.NotEmpty(t, loginResp.Token)

	w = doRequest(t, router, http.MethodGet, "/api/v1/users/me", "Bearer "+loginResp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Active   bool   `json:"active"`
	}
	decodeBody(t, w, &me)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.True(t, me.Active)
}

func TestRegisterDuplicateIsRefused(t *testing.T) {
	router, _ := setupServer(t)
	createActiveUser(t, "alice")

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "",
		gin.H{"username": "alice", "email": "other@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "",
		gin.H{"username": "other", "email": "alice@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResetTokenIsSingleUse(t *testing.T) {
	router, mr := setupServer(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "",
		gin.H{"username": "alice", "email": "alice@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code)

	token := resetTokenFor(t, mr)
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/reset_password/"+token, "",
		gin.H{"password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/reset_password/"+token, "",
		gin.H{"password": "supersecret1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginDistinguishesFailures(t *testing.T) {
	router, _ := setupServer(t)
	createActiveUser(t, "alice")
	dormant := models.User{Username: "dormant", Email: "dormant@example.com"}
	assert.NoError(t, database.DB.Create(&dormant).Error)

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "ghost@example.com", "password": "password123"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "dormant@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "alice@example.com", "password": "wrongwrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForgotPasswordReissuesToken(t *testing.T) {
	router, mr := setupServer(t)
	createActiveUser(t, "alice")

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/forgot_password", "",
		gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	token := resetTokenFor(t, mr)
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/reset_password/"+token, "",
		gin.H{"password": "betterpassword"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "alice@example.com", "password": "betterpassword"})
	assert.Equal(t, http.StatusOK, w.Code)

	// The old password no longer works.
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchUsersCarriesConnectionStatus(t *testing.T) {
	router, _ := setupServer(t)
	alice := createActiveUser(t, "alice")
	bob := createActiveUser(t, "bob")
	carol := createActiveUser(t, "carol")
	createActiveUser(t, "dave")
	makeFriends(t, alice.ID, bob.ID)
	assert.Equal(t, http.StatusCreated,
		doRequest(t, router, http.MethodPost,
			fmt.Sprintf("/api/v1/users/%d/connect", carol.ID), bearerToken(t, alice.ID), nil).Code)

	w := doRequest(t, router, http.MethodGet, "/api/v1/users", bearerToken(t, alice.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Username      string `json:"username"`
			ConnectStatus string `json:"connect_status"`
		} `json:"data"`
		Meta struct {
			TotalItems int64 `json:"total_items"`
		} `json:"meta"`
	}
	decodeBody(t, w, &resp)

	// The viewer is excluded from their own search results.
	assert.Equal(t, int64(3), resp.Meta.TotalItems)
	statuses := make(map[string]string, len(resp.Data))
	for _, u := range resp.Data {
		statuses[u.Username] = u.ConnectStatus
	}
	assert.Equal(t, "friends", statuses["bob"])
	assert.Equal(t, "pending_outgoing", statuses["carol"])
	assert.Equal(t, "none", statuses["dave"])
}

func TestSearchUsersFiltersByUsername(t *testing.T) {
	router, _ := setupServer(t)
	alice := createActiveUser(t, "alice")
	createActiveUser(t, "bob")
	createActiveUser(t, "bobby")

	w := doRequest(t, router, http.MethodGet, "/api/v1/users?q=BOB", bearerToken(t, alice.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	decodeBody(t, w, &resp)
	assert.Len(t, resp.Data, 2)
}

func TestUpdateMeRejectsTakenUsername(t *testing.T) {
	router, _ := setupServer(t)
	alice := createActiveUser(t, "alice")
	createActiveUser(t, "bob")

	w := doRequest(t, router, http.MethodPut, "/api/v1/users/me", bearerToken(t, alice.ID),
		gin.H{"username": "bob", "email": "alice@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPut, "/api/v1/users/me", bearerToken(t, alice.ID),
		gin.H{"username": "alice2", "email": "alice@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	var user models.User
	assert.NoError(t, database.DB.First(&user, alice.ID).Error)
	assert.Equal(t, "alice2", user.Username)
}

func TestChangePassword(t *testing.T) {
	router, _ := setupServer(t)
	alice := createActiveUser(t, "alice")

	w := doRequest(t, router, http.MethodPost, "/api/v1/users/me/password",
		bearerToken(t, alice.ID), gin.H{"password": "newpassword1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "alice@example.com", "password": "newpassword1"})
	assert.Equal(t, http.StatusOK, w.Code)
}
