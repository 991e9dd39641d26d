package connections

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Yasuhisa-O/SNS/internal/models"
)

var (
	// ErrSelfConnect is returned when a user tries to friend themselves.
	ErrSelfConnect = errors.New("cannot send a connect request to yourself")

	// ErrDuplicateRequest is returned when an edge already exists between
	// the pair, in either direction and in any status.
	ErrDuplicateRequest = errors.New("connect request already exists")

	// ErrNoSuchRequest is returned by Accept when there is no pending
	// request from the other user.
	ErrNoSuchRequest = errors.New("no pending connect request")
)

// RelationStatus describes the connection between two users as seen by
// one of them.
type RelationStatus string

const (
	RelationNone            RelationStatus = "none"
	RelationPendingOutgoing RelationStatus = "pending_outgoing"
	RelationPendingIncoming RelationStatus = "pending_incoming"
	RelationFriends         RelationStatus = "friends"
)

// Ledger provides data access for the friend-connection state machine.
//
// Per unordered pair the lifecycle is: no edge -> one requested edge
// (created by Request) -> that same edge accepted (flipped by Accept).
// Nothing ever removes an edge.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger bound to the given DB connection.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Request creates a pending connect edge from one user to another.
//
// Behavior:
//   - Fails with ErrSelfConnect when both IDs are equal.
//   - Fails with ErrDuplicateRequest when any edge already exists
//     between the pair, regardless of direction or status.
//   - Otherwise inserts a single row with status "requested".
func (l *Ledger) Request(ctx context.Context, fromUserID, toUserID uint) error {
	if fromUserID == toUserID {
		return ErrSelfConnect
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.UserConnect{}).
			Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
				fromUserID, toUserID, toUserID, fromUserID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateRequest
		}

		connect := models.UserConnect{
			FromUserID: fromUserID,
			ToUserID:   toUserID,
			Status:     models.StatusRequested,
		}
		return tx.Create(&connect).Error
	})
}

// Accept flips a pending request from requesterID to actorID into a
// friendship. The status changes in place, no new row is created.
// Returns ErrNoSuchRequest when no matching pending edge exists; a user
// can never accept a request they sent themselves.
func (l *Ledger) Accept(ctx context.Context, actorID, requesterID uint) error {
	res := l.db.WithContext(ctx).
		Model(&models.UserConnect{}).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?",
			requesterID, actorID, models.StatusRequested).
		Update("status", models.StatusAccepted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoSuchRequest
	}
	return nil
}

// Status reports the connection between viewer and other, relative to
// the viewer. It normalizes the two possible edge directions into a
// single answer so callers never reason about row order themselves.
func (l *Ledger) Status(ctx context.Context, viewerID, otherID uint) (RelationStatus, error) {
	var edges []models.UserConnect
	err := l.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			viewerID, otherID, otherID, viewerID).
		Find(&edges).Error
	if err != nil {
		return RelationNone, err
	}

	for _, e := range edges {
		if e.Status == models.StatusAccepted {
			return RelationFriends, nil
		}
	}
	for _, e := range edges {
		if e.Status != models.StatusRequested {
			continue
		}
		if e.FromUserID == viewerID {
			return RelationPendingOutgoing, nil
		}
		return RelationPendingIncoming, nil
	}
	return RelationNone, nil
}

// IsFriend reports whether an accepted edge exists between the pair in
// either direction. It gates every conversation-exposing endpoint.
func (l *Ledger) IsFriend(ctx context.Context, userID, otherID uint) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.UserConnect{}).
		Where("((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)) AND status = ?",
			userID, otherID, otherID, userID, models.StatusAccepted).
		Count(&count).Error
	return count > 0, err
}

// Friends returns the users connected to userID with accepted status,
// in either direction.
func (l *Ledger) Friends(ctx context.Context, userID uint) ([]models.User, error) {
	outgoing := l.db.Model(&models.UserConnect{}).
		Select("to_user_id").
		Where("from_user_id = ? AND status = ?", userID, models.StatusAccepted)
	incoming := l.db.Model(&models.UserConnect{}).
		Select("from_user_id").
		Where("to_user_id = ? AND status = ?", userID, models.StatusAccepted)

	var users []models.User
	err := l.db.WithContext(ctx).
		Where("id IN (?) OR id IN (?)", outgoing, incoming).
		Find(&users).Error
	return users, err
}

// IncomingRequests returns the users who sent userID a still-pending
// connect request.
func (l *Ledger) IncomingRequests(ctx context.Context, userID uint) ([]models.User, error) {
	sub := l.db.Model(&models.UserConnect{}).
		Select("from_user_id").
		Where("to_user_id = ? AND status = ?", userID, models.StatusRequested)

	var users []models.User
	err := l.db.WithContext(ctx).Where("id IN (?)", sub).Find(&users).Error
	return users, err
}

// OutgoingRequests returns the users userID has requested and who have
// not yet accepted.
func (l *Ledger) OutgoingRequests(ctx context.Context, userID uint) ([]models.User, error) {
	sub := l.db.Model(&models.UserConnect{}).
		Select("to_user_id").
		Where("from_user_id = ? AND status = ?", userID, models.StatusRequested)

	var users []models.User
	err := l.db.WithContext(ctx).Where("id IN (?)", sub).Find(&users).Error
	return users, err
}
