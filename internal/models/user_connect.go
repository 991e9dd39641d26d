package models

import "time"

// ConnectStatus defines the state of a friend connection between two users.
type ConnectStatus string

const (
	// StatusRequested means a friend request has been sent but not yet accepted.
	StatusRequested ConnectStatus = "requested"

	// StatusAccepted means the request was accepted, and the users are now friends.
	StatusAccepted ConnectStatus = "accepted"
)

// UserConnect is the directed friend-request edge from one user to another.
// The primary key is a composite of (FromUserID, ToUserID) to ensure at most
// one edge per ordered pair. Two users are friends when an accepted edge
// exists in either direction. Edges are never removed.
type UserConnect struct {
	FromUserID uint          `gorm:"primaryKey"`
	ToUserID   uint          `gorm:"primaryKey"`
	Status     ConnectStatus `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	FromUser User `gorm:"foreignKey:FromUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ToUser   User `gorm:"foreignKey:ToUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
