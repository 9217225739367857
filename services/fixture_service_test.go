package services

import (
	"context"
	"testing"

	"quizhall/models"
)

func TestLoadFixture(t *testing.T) {
	db := newTestDB(t)
	stale, _ := seedActiveGame(t, db)

	active := &ActiveGameHandle{}
	svc := NewFixtureService(db, active)
	game, err := svc.LoadFixture(context.Background(), DefaultFixture())
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	var staleStored models.Game
	db.First(&staleStored, stale.ID)
	if staleStored.Status != models.GameStatusFinished {
		t.Errorf("previous game status = %q, want finished", staleStored.Status)
	}
	if id, ok := active.Get(); !ok || id != game.ID {
		t.Errorf("active handle = (%d, %v), want (%d, true)", id, ok, game.ID)
	}

	var round models.Round
	if err := db.Where("game_id = ?", game.ID).First(&round).Error; err != nil {
		t.Fatalf("load round: %v", err)
	}
	var questions []models.Question
	if err := db.Where("round_id = ?", round.ID).Order("order_index ASC").Find(&questions).Error; err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != len(DefaultFixture().Questions) {
		t.Fatalf("question count = %d, want %d", len(questions), len(DefaultFixture().Questions))
	}
	for i, q := range questions {
		if q.OrderIndex != i+1 {
			t.Errorf("question %d order index = %d, want %d", q.ID, q.OrderIndex, i+1)
		}
	}

	// The demo case question carries its letter weights.
	last := questions[len(questions)-1]
	if !last.MultiSelect() {
		t.Fatal("demo case question lost its type")
	}
	weights, err := last.WeightByIndex()
	if err != nil {
		t.Fatalf("WeightByIndex: %v", err)
	}
	if weights[0] != 2 || weights[2] != 1.5 {
		t.Errorf("weights = %v", weights)
	}
}

func TestLoadFixtureValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewFixtureService(db, &ActiveGameHandle{})

	fixture := Fixture{
		GameName: "bad",
		Round:    1,
		Questions: []FixtureQuestion{
			{Text: "q", Options: []string{"a", "b"}, Type: "ranked"},
		},
	}
	if _, err := svc.LoadFixture(context.Background(), fixture); err == nil {
		t.Error("unknown question type accepted")
	}

	fixture.Questions[0].Type = models.QuestionTypeSingle
	fixture.Questions[0].CorrectIndex = 5
	if _, err := svc.LoadFixture(context.Background(), fixture); err == nil {
		t.Error("out-of-range correct index accepted")
	}

	var games int64
	db.Model(&models.Game{}).Count(&games)
	if games != 0 {
		t.Errorf("rejected fixtures left %d games behind", games)
	}
}

func TestAppendPartnerQuestion(t *testing.T) {
	db := newTestDB(t)
	_, questions := seedActiveGame(t, db,
		seedQuestion{text: "q1", options: []string{"a", "b"}},
		seedQuestion{text: "q2", options: []string{"a", "b"}},
	)

	active := &ActiveGameHandle{}
	svc := NewFixtureService(db, active)
	question, err := svc.AppendPartnerQuestion(context.Background(), "Вопрос от партнёра", []string{"Да", "Нет"}, 0)
	if err != nil {
		t.Fatalf("AppendPartnerQuestion: %v", err)
	}
	if question.OrderIndex != len(questions)+1 {
		t.Errorf("order index = %d, want %d", question.OrderIndex, len(questions)+1)
	}
	if question.Type != models.QuestionTypeSingle {
		t.Errorf("type = %q, want single", question.Type)
	}

	if _, err := svc.AppendPartnerQuestion(context.Background(), "bad", []string{"a", "b"}, 7); err == nil {
		t.Error("out-of-range correct index accepted")
	}
}

func TestAppendPartnerQuestionBootstrapsGame(t *testing.T) {
	db := newTestDB(t)
	active := &ActiveGameHandle{}
	svc := NewFixtureService(db, active)

	question, err := svc.AppendPartnerQuestion(context.Background(), "Вопрос", []string{"a", "b"}, 1)
	if err != nil {
		t.Fatalf("AppendPartnerQuestion: %v", err)
	}
	if question.OrderIndex != 1 {
		t.Errorf("order index = %d, want 1", question.OrderIndex)
	}

	var game models.Game
	if err := db.Where("status = ?", models.GameStatusActive).First(&game).Error; err != nil {
		t.Fatalf("no game was created: %v", err)
	}
	if id, ok := active.Get(); !ok || id != game.ID {
		t.Errorf("active handle = (%d, %v), want (%d, true)", id, ok, game.ID)
	}
}
