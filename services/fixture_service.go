package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizhall/models"

	"gorm.io/gorm"
)

// FixtureService loads question sets into the store and appends ad-hoc
// partner questions to the running game.
type FixtureService struct {
	db     *gorm.DB
	active *ActiveGameHandle
}

func NewFixtureService(db *gorm.DB, active *ActiveGameHandle) *FixtureService {
	return &FixtureService{db: db, active: active}
}

type FixtureQuestion struct {
	Text           string             `json:"text" binding:"required"`
	Options        []string           `json:"options" binding:"required,min=2"`
	Type           string             `json:"type"`
	CorrectIndex   int                `json:"correct_index"`
	CorrectIndices []int              `json:"correct_indices,omitempty"`
	Scoring        map[string]float64 `json:"scoring,omitempty"`
	SlideURL       string             `json:"slide_url,omitempty"`
}

type Fixture struct {
	GameName  string            `json:"game_name" binding:"required"`
	Round     int               `json:"round" binding:"required,min=1"`
	Questions []FixtureQuestion `json:"questions" binding:"required,min=1"`
}

// LoadFixture creates a fresh active game with one active round and its
// questions, replacing any previously active game, and pins the new game.
func (s *FixtureService) LoadFixture(ctx context.Context, fixture Fixture) (*models.Game, error) {
	game := models.Game{
		Name:         fixture.GameName,
		Status:       models.GameStatusActive,
		CurrentRound: fixture.Round,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Game{}).
			Where("status = ?", models.GameStatusActive).
			Update("status", models.GameStatusFinished).Error; err != nil {
			return err
		}
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		round := models.Round{GameID: game.ID, Number: fixture.Round, Status: models.RoundStatusActive}
		if err := tx.Create(&round).Error; err != nil {
			return err
		}
		for i, fq := range fixture.Questions {
			question, err := buildQuestion(round.ID, i+1, fq)
			if err != nil {
				return err
			}
			if err := tx.Create(question).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.active.Set(game.ID)
	return &game, nil
}

// AppendPartnerQuestion inserts a single-type question at the end of the
// active round, creating a game and round on the fly when none is active.
func (s *FixtureService) AppendPartnerQuestion(ctx context.Context, text string, options []string, correctIndex int) (*models.Question, error) {
	if text == "" || len(options) < 2 {
		return nil, errors.New("partner question needs text and at least two options")
	}
	if correctIndex < 0 || correctIndex >= len(options) {
		return nil, ErrInvalidOption
	}

	var question *models.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.Where("status = ?", models.GameStatusActive).Order("id DESC").First(&game).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			game = models.Game{Name: "Partner Game", Status: models.GameStatusActive, CurrentRound: 1}
			if err := tx.Create(&game).Error; err != nil {
				return err
			}
		}

		var round models.Round
		if err := tx.Where("game_id = ? AND status = ?", game.ID, models.RoundStatusActive).
			Order("number DESC").First(&round).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			round = models.Round{GameID: game.ID, Number: 1, Status: models.RoundStatusActive}
			if err := tx.Create(&round).Error; err != nil {
				return err
			}
		}

		var maxOrder int
		row := tx.Model(&models.Question{}).
			Where("round_id = ?", round.ID).
			Select("COALESCE(MAX(order_index), 0)").Row()
		if err := row.Scan(&maxOrder); err != nil {
			return err
		}

		built, err := buildQuestion(round.ID, maxOrder+1, FixtureQuestion{
			Text:         text,
			Options:      options,
			Type:         models.QuestionTypeSingle,
			CorrectIndex: correctIndex,
		})
		if err != nil {
			return err
		}
		if err := tx.Create(built).Error; err != nil {
			return err
		}
		question = built
		s.active.Set(game.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

func buildQuestion(roundID uint, orderIndex int, fq FixtureQuestion) (*models.Question, error) {
	qType := fq.Type
	if qType == "" {
		qType = models.QuestionTypeSingle
	}
	switch qType {
	case models.QuestionTypeSingle, models.QuestionTypeMulti, models.QuestionTypeCase:
	default:
		return nil, fmt.Errorf("unknown question type %q", qType)
	}
	if qType == models.QuestionTypeSingle && (fq.CorrectIndex < 0 || fq.CorrectIndex >= len(fq.Options)) {
		return nil, fmt.Errorf("correct_index %d out of range for %d options", fq.CorrectIndex, len(fq.Options))
	}

	optionsJSON, err := json.Marshal(fq.Options)
	if err != nil {
		return nil, err
	}
	question := &models.Question{
		RoundID:      roundID,
		OrderIndex:   orderIndex,
		Text:         fq.Text,
		Options:      optionsJSON,
		Type:         qType,
		CorrectIndex: fq.CorrectIndex,
		SlideURL:     fq.SlideURL,
	}
	if len(fq.CorrectIndices) > 0 {
		raw, err := json.Marshal(fq.CorrectIndices)
		if err != nil {
			return nil, err
		}
		question.CorrectIndices = raw
	}
	if len(fq.Scoring) > 0 {
		raw, err := json.Marshal(fq.Scoring)
		if err != nil {
			return nil, err
		}
		question.ScoringWeights = raw
	}
	return question, nil
}

// DefaultFixture is the built-in demo set the host can load with one tap.
func DefaultFixture() Fixture {
	return Fixture{
		GameName: "Демо-викторина",
		Round:    1,
		Questions: []FixtureQuestion{
			{
				Text:         "Какой язык компилируется в один статический бинарник?",
				Options:      []string{"Go", "Python", "Ruby", "PHP"},
				Type:         models.QuestionTypeSingle,
				CorrectIndex: 0,
			},
			{
				Text:         "Какой порт по умолчанию у PostgreSQL?",
				Options:      []string{"3306", "5432", "6379", "8080"},
				Type:         models.QuestionTypeSingle,
				CorrectIndex: 1,
			},
			{
				Text:    "Кейс: команда жалуется на медленный деплой. Что предложите?",
				Options: []string{"Кэшировать сборку", "Удалить тесты", "Собирать параллельно", "Деплоить реже"},
				Type:    models.QuestionTypeCase,
				Scoring: map[string]float64{"A": 2, "B": 0, "C": 1.5, "D": 0.5},
			},
		},
	}
}
