package models

import "time"

const (
	GameStatusDraft    = "draft"
	GameStatusActive   = "active"
	GameStatusFinished = "finished"
)

type Game struct {
	ID                      uint       `json:"id" gorm:"primaryKey"`
	Name                    string     `json:"name" gorm:"not null"`
	Status                  string     `json:"status" gorm:"not null;default:'draft'"` // draft, active, finished
	CurrentRound            int        `json:"current_round" gorm:"not null;default:1"`
	CurrentQuestionID       *uint      `json:"current_question_id"`
	CurrentQuestionDeadline *time.Time `json:"current_question_deadline"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`

	Rounds []Round `json:"rounds,omitempty" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}
