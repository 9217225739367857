package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizhall/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database. The shared-cache DSN keyed by
// the test name keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Game{},
		&models.Round{},
		&models.Question{},
		&models.Team{},
		&models.Captain{},
		&models.Answer{},
		&models.DraftAnswer{},
		&models.Admin{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %v: %v", v, err)
	}
	return raw
}

type seedQuestion struct {
	text    string
	options []string
	qType   string
	correct int
	weights map[string]float64
}

// seedActiveGame creates an active game with one active round and the given
// questions in order.
func seedActiveGame(t *testing.T, db *gorm.DB, seeds ...seedQuestion) (*models.Game, []models.Question) {
	t.Helper()
	game := models.Game{Name: "test game", Status: models.GameStatusActive, CurrentRound: 1}
	if err := db.Create(&game).Error; err != nil {
		t.Fatalf("create game: %v", err)
	}
	round := models.Round{GameID: game.ID, Number: 1, Status: models.RoundStatusActive}
	if err := db.Create(&round).Error; err != nil {
		t.Fatalf("create round: %v", err)
	}

	questions := make([]models.Question, 0, len(seeds))
	for i, seed := range seeds {
		qType := seed.qType
		if qType == "" {
			qType = models.QuestionTypeSingle
		}
		question := models.Question{
			RoundID:      round.ID,
			OrderIndex:   i + 1,
			Text:         seed.text,
			Options:      mustJSON(t, seed.options),
			Type:         qType,
			CorrectIndex: seed.correct,
		}
		if len(seed.weights) > 0 {
			question.ScoringWeights = mustJSON(t, seed.weights)
		}
		if err := db.Create(&question).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
		questions = append(questions, question)
	}
	return &game, questions
}

// seedBoundCaptain creates a team with one fully registered captain.
func seedBoundCaptain(t *testing.T, db *gorm.DB, teamName, username string, userID, chatID int64) (*models.Team, *models.Captain) {
	t.Helper()
	team := models.Team{Name: teamName}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}
	captain := models.Captain{
		Username:       username,
		TelegramUserID: &userID,
		ChatID:         &chatID,
		TeamID:         &team.ID,
	}
	if err := db.Create(&captain).Error; err != nil {
		t.Fatalf("create captain: %v", err)
	}
	return &team, &captain
}

// openQuestion makes the question current for the game with the given
// deadline.
func openQuestion(t *testing.T, db *gorm.DB, game *models.Game, questionID uint, deadline time.Time) {
	t.Helper()
	err := db.Model(game).Updates(map[string]any{
		"current_question_id":       questionID,
		"current_question_deadline": deadline,
	}).Error
	if err != nil {
		t.Fatalf("open question: %v", err)
	}
}

func intPtr(v int) *int { return &v }
