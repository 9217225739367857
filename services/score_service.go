package services

import (
	"context"
	"fmt"
	"sort"

	"quizhall/models"

	"gorm.io/gorm"
)

// Qualitative team levels shown in the final results table.
const (
	LevelBasic        = "Базовый"
	LevelIntermediate = "Средний"
	LevelAdvanced     = "Продвинутый"
	LevelSuperPro     = "Супер-профи"
)

// ScoreService derives scores and levels from committed answers. Everything is
// recomputed from the stored rows on every request; there are no running
// totals to drift out of sync.
type ScoreService struct {
	db *gorm.DB
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{db: db}
}

type TeamScore struct {
	Team   string  `json:"team"`
	Points float64 `json:"points"`
}

type TeamResult struct {
	Team          string  `json:"team"`
	SingleCorrect int     `json:"single_correct"`
	SingleTotal   int     `json:"single_total"`
	CasePoints    float64 `json:"case_points"`
	Total         float64 `json:"total"`
	Level         string  `json:"level"`
}

type teamTally struct {
	singleCorrect int
	singleTotal   int
	casePoints    float64
	hasZeroPick   bool
}

// LiveScore is the host's in-game view: single-answer points plus weighted
// case points committed so far, ordered by points then name. Levels are only
// assigned in FinalResults.
func (s *ScoreService) LiveScore(ctx context.Context) ([]TeamScore, error) {
	teams, tallies, err := s.tally(ctx)
	if err != nil {
		return nil, err
	}
	scores := make([]TeamScore, 0, len(teams))
	for _, team := range teams {
		tally := tallies[team.ID]
		scores = append(scores, TeamScore{
			Team:   team.Name,
			Points: float64(tally.singleCorrect) + tally.casePoints,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].Team < scores[j].Team
	})
	return scores, nil
}

// FinalResults combines single and weighted case/multi points and classifies
// each team. The ladder is evaluated in fixed priority order: any zero-weight
// pick or a zero single score forces Basic; then 4/3/1.5 case-point cutoffs.
func (s *ScoreService) FinalResults(ctx context.Context) ([]TeamResult, error) {
	teams, tallies, err := s.tally(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]TeamResult, 0, len(teams))
	for _, team := range teams {
		tally := tallies[team.ID]
		result := TeamResult{
			Team:          team.Name,
			SingleCorrect: tally.singleCorrect,
			SingleTotal:   tally.singleTotal,
			CasePoints:    tally.casePoints,
			Total:         float64(tally.singleCorrect) + tally.casePoints,
			Level:         classify(tally),
		}
		results = append(results, result)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Total != results[j].Total {
			return results[i].Total > results[j].Total
		}
		return results[i].Team < results[j].Team
	})
	return results, nil
}

func classify(tally teamTally) string {
	switch {
	case tally.hasZeroPick || tally.singleCorrect == 0:
		return LevelBasic
	case tally.casePoints >= 4:
		return LevelSuperPro
	case tally.casePoints >= 3:
		return LevelAdvanced
	case tally.casePoints >= 1.5:
		return LevelIntermediate
	default:
		return LevelBasic
	}
}

func (s *ScoreService) tally(ctx context.Context) ([]models.Team, map[uint]teamTally, error) {
	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&teams).Error; err != nil {
		return nil, nil, err
	}

	var answers []models.Answer
	if err := s.db.WithContext(ctx).Find(&answers).Error; err != nil {
		return nil, nil, err
	}

	var questions []models.Question
	if err := s.db.WithContext(ctx).Find(&questions).Error; err != nil {
		return nil, nil, err
	}
	questionByID := make(map[uint]*models.Question, len(questions))
	weightsByID := make(map[uint]map[int]float64, len(questions))
	for i := range questions {
		q := &questions[i]
		questionByID[q.ID] = q
		if q.MultiSelect() {
			weights, err := q.WeightByIndex()
			if err != nil {
				return nil, nil, err
			}
			weightsByID[q.ID] = weights
		}
	}

	tallies := make(map[uint]teamTally, len(teams))
	for _, answer := range answers {
		question, ok := questionByID[answer.QuestionID]
		if !ok {
			continue
		}
		tally := tallies[answer.TeamID]
		switch {
		case question.Type == models.QuestionTypeSingle:
			tally.singleTotal++
			if answer.OptionIndex == question.CorrectIndex {
				tally.singleCorrect++
			}
		case question.MultiSelect():
			indices, err := answer.SelectedIndices()
			if err != nil {
				return nil, nil, fmt.Errorf("scoring answer %d: %w", answer.ID, err)
			}
			weights := weightsByID[question.ID]
			for _, index := range indices {
				weight, present := weights[index]
				if present && weight == 0 {
					tally.hasZeroPick = true
				}
				tally.casePoints += weight
			}
		}
		tallies[answer.TeamID] = tally
	}
	return teams, tallies, nil
}
