package models

import "time"

// Admin is one allow-list entry. A row may carry only a username; the user id
// is filled in the first time that admin talks to the bot.
type Admin struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TelegramUserID *int64    `json:"telegram_user_id" gorm:"uniqueIndex"`
	Username       *string   `json:"username" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
}
