package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"quizhall/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Error("gorm.ErrDuplicatedKey not recognized")
	}
	pgErr := &pgconn.PgError{Code: "23505"}
	if !isUniqueViolation(fmt.Errorf("insert: %w", pgErr)) {
		t.Error("wrapped unique violation not recognized")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation misread as unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error misread as unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil misread as unique violation")
	}
}

func TestDuplicateInsertTranslates(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{text: "q", options: []string{"a", "b"}})
	team, _ := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)

	answer := models.Answer{
		GameID:        game.ID,
		QuestionID:    questions[0].ID,
		TeamID:        team.ID,
		CaptainUserID: 100,
		OptionIndex:   0,
		AnsweredAt:    time.Now().UTC(),
	}
	if err := db.Create(&answer).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}

	dup := answer
	dup.ID = 0
	err := db.Create(&dup).Error
	if err == nil {
		t.Fatal("duplicate insert succeeded")
	}
	if !isUniqueViolation(err) {
		t.Errorf("duplicate insert error %v not recognized as unique violation", err)
	}
}
