package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizhall/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerService validates and commits captain submissions against the single
// active game. All side effects stay inside the store; rendering the outcome
// is the caller's job.
type AnswerService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnswerService(db *gorm.DB) *AnswerService {
	return &AnswerService{db: db, now: time.Now}
}

// ChoiceEvent is one inbound keyboard tap attributed to a sender identity.
// OptionIndex is nil for a bare "done" commit.
type ChoiceEvent struct {
	TelegramUserID int64
	QuestionID     uint
	OptionIndex    *int
	Done           bool
}

// SubmitResult reports what the submission did. Committed is true for a
// terminal answer; otherwise Selections holds the team's draft set after a
// toggle, for re-rendering the choice keyboard.
type SubmitResult struct {
	Committed  bool
	Selections []int
	Question   models.Question
	TeamID     uint
}

// Submit runs the full acceptance sequence in one transaction: identity
// resolution, active-game/question match, deadline window, duplicate check and
// the type-specific branch. The (team, question) uniqueness constraint backs
// the duplicate pre-check, so two rapid taps cannot both commit.
func (s *AnswerService) Submit(ctx context.Context, event ChoiceEvent) (*SubmitResult, error) {
	result := &SubmitResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var captain models.Captain
		if err := tx.Where("telegram_user_id = ?", event.TelegramUserID).First(&captain).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotBound
			}
			return err
		}
		if captain.TeamID == nil {
			return ErrNotBound
		}
		teamID := *captain.TeamID

		var game models.Game
		if err := tx.Where("status = ?", models.GameStatusActive).Order("id DESC").First(&game).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveGame
			}
			return err
		}
		// The engine only accepts events for the game's current question.
		if game.CurrentQuestionID == nil || *game.CurrentQuestionID != event.QuestionID {
			return ErrNoActiveQuestion
		}
		if game.CurrentQuestionDeadline == nil || !s.now().Before(*game.CurrentQuestionDeadline) {
			return ErrWindowClosed
		}

		var question models.Question
		if err := tx.First(&question, event.QuestionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.Answer{}).
			Where("team_id = ? AND question_id = ?", teamID, question.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyAnswered
		}

		options, err := question.OptionList()
		if err != nil {
			return err
		}

		result.Question = question
		result.TeamID = teamID

		if !question.MultiSelect() {
			return s.commitSingle(tx, &game, &question, teamID, event, len(options), result)
		}
		return s.handleMultiSelect(tx, &game, &question, teamID, event, len(options), result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AnswerService) commitSingle(tx *gorm.DB, game *models.Game, question *models.Question, teamID uint, event ChoiceEvent, optionCount int, result *SubmitResult) error {
	if event.OptionIndex == nil || *event.OptionIndex < 0 || *event.OptionIndex >= optionCount {
		return ErrInvalidOption
	}
	answer := models.Answer{
		GameID:        game.ID,
		QuestionID:    question.ID,
		TeamID:        teamID,
		CaptainUserID: event.TelegramUserID,
		OptionIndex:   *event.OptionIndex,
		AnsweredAt:    s.now().UTC(),
	}
	if err := tx.Create(&answer).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyAnswered
		}
		return err
	}
	result.Committed = true
	result.Selections = []int{*event.OptionIndex}
	return nil
}

func (s *AnswerService) handleMultiSelect(tx *gorm.DB, game *models.Game, question *models.Question, teamID uint, event ChoiceEvent, optionCount int, result *SubmitResult) error {
	var draft models.DraftAnswer
	err := tx.Where("game_id = ? AND question_id = ? AND team_id = ?", game.ID, question.ID, teamID).
		First(&draft).Error
	haveDraft := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var selections []int
	if haveDraft {
		if selections, err = draft.SelectionList(); err != nil {
			return err
		}
	}

	if event.Done {
		if len(selections) == 0 {
			return ErrEmptySelection
		}
		raw, err := json.Marshal(selections)
		if err != nil {
			return err
		}
		answer := models.Answer{
			GameID:        game.ID,
			QuestionID:    question.ID,
			TeamID:        teamID,
			CaptainUserID: event.TelegramUserID,
			OptionIndex:   models.NoSingleOption,
			OptionIndices: raw,
			AnsweredAt:    s.now().UTC(),
		}
		if err := tx.Create(&answer).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyAnswered
			}
			return err
		}
		if err := tx.Delete(&draft).Error; err != nil {
			return err
		}
		result.Committed = true
		result.Selections = selections
		return nil
	}

	// Non-terminal toggle: flip the index in the draft set.
	if event.OptionIndex == nil || *event.OptionIndex < 0 || *event.OptionIndex >= optionCount {
		return ErrInvalidOption
	}
	selections = toggleIndex(selections, *event.OptionIndex)
	raw, err := json.Marshal(selections)
	if err != nil {
		return err
	}
	draft = models.DraftAnswer{
		GameID:     game.ID,
		QuestionID: question.ID,
		TeamID:     teamID,
		Selections: raw,
		UpdatedAt:  s.now().UTC(),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "question_id"}, {Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selections", "updated_at"}),
	}).Create(&draft).Error; err != nil {
		return err
	}
	result.Selections = selections
	return nil
}

func toggleIndex(selections []int, index int) []int {
	for i, existing := range selections {
		if existing == index {
			return append(selections[:i], selections[i+1:]...)
		}
	}
	return append(selections, index)
}
