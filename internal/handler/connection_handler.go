package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Yasuhisa-O/SNS/internal/connections"
	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/models"
)

// ConnectionListsResponse bundles the three home-page lists: current
// friends, users who requested the viewer, and users the viewer has
// requested.
type ConnectionListsResponse struct {
	Friends  []PublicUserResponse `json:"friends"`
	Incoming []PublicUserResponse `json:"incoming"`
	Outgoing []PublicUserResponse `json:"outgoing"`
}

// GetMyConnections godoc
// @Summary      Get the viewer's connection lists
// @Description  Returns the viewer's friends alongside pending incoming and outgoing requests.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ConnectionListsResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/me/connections [get]
func GetMyConnections(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	ledger := connections.NewLedger(database.DB)
	ctx := c.Request.Context()

	friends, err := ledger.Friends(ctx, viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friends"})
		return
	}
	incoming, err := ledger.IncomingRequests(ctx, viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch incoming requests"})
		return
	}
	outgoing, err := ledger.OutgoingRequests(ctx, viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch outgoing requests"})
		return
	}

	c.JSON(http.StatusOK, ConnectionListsResponse{
		Friends:  toPublicUsers(friends, connections.RelationFriends),
		Incoming: toPublicUsers(incoming, connections.RelationPendingIncoming),
		Outgoing: toPublicUsers(outgoing, connections.RelationPendingOutgoing),
	})
}

// SendConnectRequest godoc
// @Summary      Send a friend request
// @Description  Creates a pending connection toward the target user. Duplicate requests are refused without changing state.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  map[string]string "{"message": "Request sent successfully"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Connection already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/connect [post]
func SendConnectRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	var target models.User
	if err := database.DB.First(&target, uint(targetUserID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target user not found"})
		return
	}

	ledger := connections.NewLedger(database.DB)
	err = ledger.Request(c.Request.Context(), viewerID.(uint), uint(targetUserID))
	switch {
	case errors.Is(err, connections.ErrSelfConnect):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send request to yourself"})
	case errors.Is(err, connections.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": "Connection already exists"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create connection"})
	default:
		c.JSON(http.StatusCreated, gin.H{"message": "Request sent successfully"})
	}
}

// AcceptConnectRequest godoc
// @Summary      Accept a friend request
// @Description  Accepts a pending request from the given user, making the pair friends.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request accepted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func AcceptConnectRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	requestingUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requesting user ID"})
		return
	}

	ledger := connections.NewLedger(database.DB)
	err = ledger.Accept(c.Request.Context(), viewerID.(uint), uint(requestingUserID))
	switch {
	case errors.Is(err, connections.ErrNoSuchRequest):
		c.JSON(http.StatusNotFound, gin.H{"error": "Pending request not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept request"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Request accepted"})
	}
}

func toPublicUsers(users []models.User, status connections.RelationStatus) []PublicUserResponse {
	res := make([]PublicUserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, PublicUserResponse{
			ID:            u.ID,
			Username:      u.Username,
			ConnectStatus: status,
		})
	}
	return res
}
