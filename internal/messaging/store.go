package messaging

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Yasuhisa-O/SNS/internal/models"
)

// DefaultPageSize is the number of messages in one conversation page.
const DefaultPageSize = 100

// ErrEmptyBody is returned by Append when the message body is blank.
var ErrEmptyBody = errors.New("message body must not be empty")

// Store provides data access for the per-pair message log.
//
// Messages are immutable except for two monotonic flags: is_read flips
// once when the recipient views the message, is_checked flips once when
// the sender observes that read. Every mutation runs as one
// transaction; a failed mutation persists nothing.
type Store struct {
	db *gorm.DB
}

// NewStore creates a message store bound to the given DB connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Append persists a new message from sender to recipient and returns it.
// The message starts unread and unchecked.
func (s *Store) Append(ctx context.Context, fromUserID, toUserID uint, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	msg := models.Message{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Body:       body,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Conversation returns one page of the message history between the pair,
// newest first. Ties on created_at are broken by id so the order is
// total. Page boundaries are defined by row order at query time, so a
// concurrent append may shift pages; callers accept that.
//
// offset counts pages, not rows: page n skips n*pageSize messages.
func (s *Store) Conversation(ctx context.Context, userA, userB uint, offset, pageSize int) ([]models.Message, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC, id ASC").
		Offset(offset * pageSize).
		Limit(pageSize).
		Find(&msgs).Error
	return msgs, err
}

// UnreadFrom returns the messages sent by fromUserID to toUserID that
// the recipient has not read yet, oldest first. The recipient's poll
// uses it to discover new incoming messages.
func (s *Store) UnreadFrom(ctx context.Context, fromUserID, toUserID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ? AND is_read = ?", fromUserID, toUserID, false).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// UncheckedSentBy returns the messages sent by fromUserID to toUserID
// that the recipient has read but the sender has not yet seen read.
// The sender's poll uses it to learn which sent messages went read.
func (s *Store) UncheckedSentBy(ctx context.Context, fromUserID, toUserID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ? AND is_read = ? AND is_checked = ?",
			fromUserID, toUserID, true, false).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkRead flips is_read to true for the given messages. Idempotent,
// no-op on an empty slice, one transaction.
func (s *Store) MarkRead(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Message{}).
			Where("id IN ?", ids).
			Update("is_read", true).Error
	})
}

// MarkChecked flips is_checked to true for the given messages.
// Idempotent, no-op on an empty slice, one transaction. The update only
// touches rows that are already read, so is_checked can never get ahead
// of is_read.
func (s *Store) MarkChecked(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Message{}).
			Where("id IN ? AND is_read = ?", ids, true).
			Update("is_checked", true).Error
	})
}

// CountUnread returns how many unread messages the user has across all
// conversations. Backs the unread badge.
func (s *Store) CountUnread(ctx context.Context, toUserID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("to_user_id = ? AND is_read = ?", toUserID, false).
		Count(&count).Error
	return count, err
}
