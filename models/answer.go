package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// NoSingleOption is the OptionIndex sentinel for multi/case answers, where the
// selection lives in OptionIndices.
const NoSingleOption = -1

// Answer is the commit record: append-only, at most one per (team, question).
// The unique index is the final arbiter against duplicate submissions.
type Answer struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	GameID        uint           `json:"game_id" gorm:"not null;index"`
	QuestionID    uint           `json:"question_id" gorm:"not null;index;uniqueIndex:idx_answers_team_question"`
	TeamID        uint           `json:"team_id" gorm:"not null;index;uniqueIndex:idx_answers_team_question"`
	CaptainUserID int64          `json:"captain_user_id" gorm:"not null"`
	OptionIndex   int            `json:"option_index" gorm:"not null;default:-1"`
	OptionIndices datatypes.JSON `json:"option_indices,omitempty"`
	AnsweredAt    time.Time      `json:"answered_at" gorm:"not null"`
}

func (a *Answer) SelectedIndices() ([]int, error) {
	if len(a.OptionIndices) == 0 {
		return nil, nil
	}
	var indices []int
	if err := json.Unmarshal(a.OptionIndices, &indices); err != nil {
		return nil, fmt.Errorf("answer %d has malformed option indices: %w", a.ID, err)
	}
	return indices, nil
}
