package models

import "time"

// Captain is a team's single identity-bound representative. The row is created
// by the host with only a username; TelegramUserID and ChatID stay nil until
// the captain self-registers in the bot chat.
type Captain struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"not null;index"`
	TelegramUserID *int64    `json:"telegram_user_id" gorm:"uniqueIndex"`
	ChatID         *int64    `json:"chat_id"`
	TeamID         *uint     `json:"team_id" gorm:"uniqueIndex"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Team *Team `json:"team,omitempty"`
}

// Bound reports whether the captain can receive questions and submit answers.
func (c *Captain) Bound() bool {
	return c.TelegramUserID != nil && c.ChatID != nil && c.TeamID != nil
}
