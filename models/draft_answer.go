package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// DraftAnswer is the scratch selection state for a multi/case question: one row
// per (game, question, team), overwritten on every toggle and deleted when the
// team commits.
type DraftAnswer struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	GameID     uint           `json:"game_id" gorm:"not null;uniqueIndex:idx_drafts_game_question_team"`
	QuestionID uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_drafts_game_question_team"`
	TeamID     uint           `json:"team_id" gorm:"not null;uniqueIndex:idx_drafts_game_question_team"`
	Selections datatypes.JSON `json:"selections" gorm:"not null"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (d *DraftAnswer) SelectionList() ([]int, error) {
	var selections []int
	if err := json.Unmarshal(d.Selections, &selections); err != nil {
		return nil, fmt.Errorf("draft %d has malformed selections: %w", d.ID, err)
	}
	return selections, nil
}
