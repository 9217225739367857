package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"quizhall/models"
)

func TestExportRowsOrderedBySubmission(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db,
		seedQuestion{text: "q1", options: []string{"a", "b"}},
		seedQuestion{text: "q2", options: []string{"a", "b"}},
	)
	alpha, _ := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	beta, _ := seedBoundCaptain(t, db, "Beta", "bob", 200, 200)

	base := time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC)
	answers := []models.Answer{
		{GameID: game.ID, QuestionID: questions[1].ID, TeamID: beta.ID, CaptainUserID: 200, OptionIndex: 1, AnsweredAt: base.Add(2 * time.Second)},
		{GameID: game.ID, QuestionID: questions[0].ID, TeamID: alpha.ID, CaptainUserID: 100, OptionIndex: 0, AnsweredAt: base},
	}
	for i := range answers {
		if err := db.Create(&answers[i]).Error; err != nil {
			t.Fatalf("create answer: %v", err)
		}
	}

	svc := NewExportService(db)
	rows, err := svc.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(rows))
	}
	if rows[0].Team != "Alpha" || rows[1].Team != "Beta" {
		t.Errorf("rows out of submission order: %+v", rows)
	}
	if rows[0].Round != 1 {
		t.Errorf("round = %d, want 1", rows[0].Round)
	}
}

func TestWriteCSV(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{text: "q1", options: []string{"a", "b"}})
	alpha, _ := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	answer := models.Answer{
		GameID:        game.ID,
		QuestionID:    questions[0].ID,
		TeamID:        alpha.ID,
		CaptainUserID: 100,
		OptionIndex:   1,
		AnsweredAt:    time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&answer).Error; err != nil {
		t.Fatalf("create answer: %v", err)
	}

	var buf bytes.Buffer
	svc := NewExportService(db)
	if err := svc.WriteCSV(context.Background(), &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("record count = %d, want header plus one row", len(records))
	}
	if records[0][0] != "game_id" || records[0][3] != "team" {
		t.Errorf("header = %v", records[0])
	}
	row := records[1]
	if row[3] != "Alpha" || row[4] != "1" {
		t.Errorf("row = %v", row)
	}
	if row[5] != "2026-08-29T20:00:00Z" {
		t.Errorf("answered_at = %q", row[5])
	}
}
