package database

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Yasuhisa-O/SNS/internal/models"
)

// SeedTestData resets the database and populates it with demo users,
// connections and messages.
//
// Behavior:
//  1. Clears messages, user_connects and users.
//  2. Creates 6 active users, all with password "password".
//  3. Wires a small friend graph: some accepted pairs, some pending.
//  4. Adds a short conversation between the first two friends, with a
//     mix of unread, read and checked messages.
func SeedTestData(db *gorm.DB) error {
	if err := db.Exec("DELETE FROM messages").Error; err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if err := db.Exec("DELETE FROM user_connects").Error; err != nil {
		return fmt.Errorf("failed to clear user_connects: %w", err)
	}
	if err := db.Exec("DELETE FROM users").Error; err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]models.User, 0, 6)
	for i := 1; i <= 6; i++ {
		users = append(users, models.User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Printf("Seeded %d users.", len(users))

	connects := []models.UserConnect{
		{FromUserID: users[0].ID, ToUserID: users[1].ID, Status: models.StatusAccepted},
		{FromUserID: users[2].ID, ToUserID: users[0].ID, Status: models.StatusAccepted},
		{FromUserID: users[3].ID, ToUserID: users[0].ID, Status: models.StatusRequested},
		{FromUserID: users[0].ID, ToUserID: users[4].ID, Status: models.StatusRequested},
		{FromUserID: users[4].ID, ToUserID: users[5].ID, Status: models.StatusAccepted},
	}
	if err := db.Create(&connects).Error; err != nil {
		return fmt.Errorf("failed to seed connections: %w", err)
	}
	log.Printf("Seeded %d connections.", len(connects))

	messages := []models.Message{
		{FromUserID: users[0].ID, ToUserID: users[1].ID, Body: "Hey, long time no see!", IsRead: true, IsChecked: true},
		{FromUserID: users[1].ID, ToUserID: users[0].ID, Body: "Hi! How have you been?", IsRead: true},
		{FromUserID: users[0].ID, ToUserID: users[1].ID, Body: "Pretty good. Free this weekend?", IsRead: true},
		{FromUserID: users[1].ID, ToUserID: users[0].ID, Body: "Saturday works for me."},
		{FromUserID: users[1].ID, ToUserID: users[0].ID, Body: "Morning or afternoon?"},
	}
	if err := db.Create(&messages).Error; err != nil {
		return fmt.Errorf("failed to seed messages: %w", err)
	}
	log.Printf("Seeded %d messages.", len(messages))

	return nil
}
