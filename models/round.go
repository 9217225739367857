package models

import "time"

const (
	RoundStatusPending  = "pending"
	RoundStatusActive   = "active"
	RoundStatusFinished = "finished"
)

type Round struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	GameID    uint      `json:"game_id" gorm:"not null;index"`
	Number    int       `json:"number" gorm:"not null"`
	Status    string    `json:"status" gorm:"not null;default:'pending'"` // pending, active, finished
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE"`
}
