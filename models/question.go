package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	QuestionTypeSingle = "single"
	QuestionTypeMulti  = "multi"
	QuestionTypeCase   = "case"
)

// Question is immutable once loaded. Options is an ordered JSON array of
// strings; ScoringWeights maps an option letter ("A", "B", ...) to a numeric
// weight for case/multi questions.
type Question struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	RoundID        uint           `json:"round_id" gorm:"not null;index"`
	OrderIndex     int            `json:"order_index" gorm:"not null;index"`
	Text           string         `json:"text" gorm:"not null"`
	Options        datatypes.JSON `json:"options" gorm:"not null"`
	Type           string         `json:"type" gorm:"not null;default:'single'"` // single, multi, case
	CorrectIndex   int            `json:"correct_index" gorm:"not null;default:0"`
	CorrectIndices datatypes.JSON `json:"correct_indices,omitempty"`
	ScoringWeights datatypes.JSON `json:"scoring_weights,omitempty"`
	SlideURL       string         `json:"slide_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (q *Question) OptionList() ([]string, error) {
	var options []string
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, fmt.Errorf("question %d has malformed options: %w", q.ID, err)
	}
	return options, nil
}

func (q *Question) MultiSelect() bool {
	return q.Type == QuestionTypeMulti || q.Type == QuestionTypeCase
}

// WeightByIndex resolves the letter-keyed scoring table into a typed mapping
// from option index to weight, done once per loaded question.
func (q *Question) WeightByIndex() (map[int]float64, error) {
	weights := make(map[int]float64)
	if len(q.ScoringWeights) == 0 {
		return weights, nil
	}
	var byLetter map[string]float64
	if err := json.Unmarshal(q.ScoringWeights, &byLetter); err != nil {
		return nil, fmt.Errorf("question %d has malformed scoring weights: %w", q.ID, err)
	}
	for letter, weight := range byLetter {
		letter = strings.ToUpper(strings.TrimSpace(letter))
		if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
			return nil, fmt.Errorf("question %d has invalid scoring key %q", q.ID, letter)
		}
		weights[int(letter[0]-'A')] = weight
	}
	return weights, nil
}

// OptionLetter renders an option index the way it appears on answer keyboards
// and in scoring tables.
func OptionLetter(index int) string {
	return string(rune('A' + index))
}
