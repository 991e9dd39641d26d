package models

import "time"

// Message represents a direct message between two users.
//
// The two flags are monotonic: IsRead flips to true once, when the
// recipient loads the conversation; IsChecked flips to true once, when
// the sender later observes that the message was read. IsChecked is
// never true while IsRead is false. Messages are never edited or
// deleted.
type Message struct {
	ID         uint      `gorm:"primaryKey"`
	FromUserID uint      `gorm:"not null;index:idx_messages_from_to"`
	ToUserID   uint      `gorm:"not null;index:idx_messages_from_to;index:idx_messages_to_unread"`
	Body       string    `gorm:"type:text;not null"`
	IsRead     bool      `gorm:"not null;default:false;index:idx_messages_to_unread"`
	IsChecked  bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"index"`

	FromUser User `gorm:"foreignKey:FromUserID"`
	ToUser   User `gorm:"foreignKey:ToUserID"`
}
