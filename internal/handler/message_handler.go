package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Yasuhisa-O/SNS/internal/cache"
	"github.com/Yasuhisa-O/SNS/internal/conversation"
	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/messaging"
	"github.com/Yasuhisa-O/SNS/internal/models"
)

// region --- DTOs ---

// SendMessageInput carries the body of a new direct message.
type SendMessageInput struct {
	Body string `json:"body" binding:"required" example:"hello"`
}

// MessageResponse is the wire form of one direct message.
type MessageResponse struct {
	ID         uint      `json:"id" example:"1"`
	FromUserID uint      `json:"from_user_id" example:"1"`
	ToUserID   uint      `json:"to_user_id" example:"2"`
	Body       string    `json:"body" example:"hello"`
	IsRead     bool      `json:"is_read"`
	IsChecked  bool      `json:"is_checked"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationResponse is a full conversation page plus the receipt
// transitions that loading it caused.
type ConversationResponse struct {
	Peer              PublicUserResponse `json:"peer"`
	Messages          []MessageResponse  `json:"messages"`
	ReadMessageIDs    []uint             `json:"read_message_ids"`
	CheckedMessageIDs []uint             `json:"checked_message_ids"`
}

// PollResponse carries new incoming messages plus the ids of the
// viewer's messages that just went checked.
type PollResponse struct {
	Data              []MessageResponse `json:"data"`
	CheckedMessageIDs []uint            `json:"checked_message_ids"`
}

// OldMessagesResponse is one older history page.
type OldMessagesResponse struct {
	Data []MessageResponse `json:"data"`
}

// endregion

// GetConversation godoc
// @Summary      Open a conversation
// @Description  Returns the newest message page for the given peer. Opening marks the peer's unread messages read and the viewer's read messages checked. Non-friends are redirected home.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peer User ID"
// @Success      200  {object}  ConversationResponse
// @Failure      302  {string}  string "Redirect to home for non-friends"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /messages/{id} [get]
func GetConversation(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}

	view, err := conversationService().Open(c.Request.Context(), viewerID.(uint), peerID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFriends) {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}

	// The peer exists if the friend gate passed; a missing row here is
	// a data inconsistency.
	var peer models.User
	if err := database.DB.First(&peer, peerID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load peer"})
		return
	}

	c.JSON(http.StatusOK, ConversationResponse{
		Peer:              PublicUserResponse{ID: peer.ID, Username: peer.Username},
		Messages:          toMessageResponses(view.Messages),
		ReadMessageIDs:    view.ReadIDs,
		CheckedMessageIDs: view.CheckedIDs,
	})
}

// SendMessage godoc
// @Summary      Send a direct message
// @Description  Appends a message to the conversation, then redirects back to it so a refresh cannot double-submit.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int              true "Peer User ID"
// @Param        input body  SendMessageInput true "Message body"
// @Success      303  {string}  string "Redirect back to the conversation"
// @Failure      302  {string}  string "Redirect to home for non-friends"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /messages/{id} [post]
func SendMessage(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := conversationService().Send(c.Request.Context(), viewerID.(uint), peerID, input.Body)
	switch {
	case errors.Is(err, conversation.ErrNotFriends):
		c.Redirect(http.StatusFound, "/")
	case errors.Is(err, messaging.ErrEmptyBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message body must not be empty"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
	default:
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/api/v1/messages/%d", peerID))
	}
}

// PollMessages godoc
// @Summary      Poll a conversation for updates
// @Description  Returns messages that arrived since the last poll, marking them read, plus the ids of the viewer's messages the peer has now read. Clients schedule repeated calls; there is no push channel.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peer User ID"
// @Success      200  {object}  PollResponse
// @Failure      302  {string}  string "Redirect to home for non-friends"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /messages/{id}/poll [get]
func PollMessages(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}

	res, err := conversationService().Poll(c.Request.Context(), viewerID.(uint), peerID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFriends) {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to poll conversation"})
		return
	}

	checked := res.CheckedIDs
	if checked == nil {
		checked = []uint{}
	}
	c.JSON(http.StatusOK, PollResponse{
		Data:              toMessageResponses(res.NewMessages),
		CheckedMessageIDs: checked,
	})
}

// LoadOldMessages godoc
// @Summary      Load an older history page
// @Description  Returns the page that skips offset*100 newest messages. Pure history: no read or checked flags change.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id     path   int  true  "Peer User ID"
// @Param        offset query  int  true  "Number of pages to skip"
// @Success      200  {object}  OldMessagesResponse
// @Failure      302  {string}  string "Redirect to home for non-friends"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /messages/{id}/history [get]
func LoadOldMessages(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}

	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	msgs, err := conversationService().LoadOlder(c.Request.Context(), viewerID.(uint), peerID, offset)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFriends) {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, OldMessagesResponse{Data: toMessageResponses(msgs)})
}

// GetUnreadCount godoc
// @Summary      Get the unread badge count
// @Description  Returns the viewer's total number of unread incoming messages.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64 "{"count": 3}"
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/me/unread_count [get]
func GetUnreadCount(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	count, err := conversationService().UnreadCount(c.Request.Context(), viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// region --- Helpers ---

func conversationService() *conversation.Service {
	return conversation.NewService(database.DB, cache.Shared)
}

func parsePeerID(c *gin.Context) (uint, bool) {
	peerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid peer user ID"})
		return 0, false
	}
	return uint(peerID), true
}

func toMessageResponses(msgs []models.Message) []MessageResponse {
	res := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, MessageResponse{
			ID:         m.ID,
			FromUserID: m.FromUserID,
			ToUserID:   m.ToUserID,
			Body:       m.Body,
			IsRead:     m.IsRead,
			IsChecked:  m.IsChecked,
			CreatedAt:  m.CreatedAt,
		})
	}
	return res
}

// endregion
