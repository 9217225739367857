package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizhall/models"
)

func TestSubmitSingleAnswer(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "Столица Франции?",
		options: []string{"Париж", "Лион", "Марсель"},
		correct: 0,
	})
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	svc := NewAnswerService(db)
	result, err := svc.Submit(context.Background(), ChoiceEvent{
		TelegramUserID: *captain.TelegramUserID,
		QuestionID:     questions[0].ID,
		OptionIndex:    intPtr(1),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Committed {
		t.Error("single-type submission should commit immediately")
	}

	var stored models.Answer
	if err := db.Where("question_id = ? AND team_id = ?", questions[0].ID, result.TeamID).First(&stored).Error; err != nil {
		t.Fatalf("load stored answer: %v", err)
	}
	if stored.OptionIndex != 1 {
		t.Errorf("stored option index = %d, want 1", stored.OptionIndex)
	}
	if stored.CaptainUserID != *captain.TelegramUserID {
		t.Errorf("stored captain user id = %d, want %d", stored.CaptainUserID, *captain.TelegramUserID)
	}
}

func TestSubmitDuplicateIsRejected(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "2+2?",
		options: []string{"3", "4"},
		correct: 1,
	})
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	svc := NewAnswerService(db)
	event := ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(1)}
	if _, err := svc.Submit(context.Background(), event); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	// A second tap on any option must not change the committed answer.
	event.OptionIndex = intPtr(0)
	if _, err := svc.Submit(context.Background(), event); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second Submit error = %v, want ErrAlreadyAnswered", err)
	}

	var count int64
	db.Model(&models.Answer{}).Count(&count)
	if count != 1 {
		t.Errorf("answer count = %d, want 1", count)
	}
}

func TestSubmitConcurrentDuplicates(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "q",
		options: []string{"a", "b"},
	})
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	// A burst of rapid taps from one captain: the unique index is the final
	// arbiter, so exactly one submission may commit.
	svc := NewAnswerService(db)
	const taps = 8
	errs := make(chan error, taps)
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), ChoiceEvent{
				TelegramUserID: *captain.TelegramUserID,
				QuestionID:     questions[0].ID,
				OptionIndex:    intPtr(index % 2),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	accepted, already := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrAlreadyAnswered):
			already++
		default:
			t.Errorf("unexpected submission error: %v", err)
		}
	}
	if accepted != 1 || already != taps-1 {
		t.Errorf("accepted=%d already=%d, want 1 and %d", accepted, already, taps-1)
	}

	var count int64
	db.Model(&models.Answer{}).Count(&count)
	if count != 1 {
		t.Errorf("answer count = %d, want 1", count)
	}
}

func TestSubmitSecondTeamStillAccepted(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "q",
		options: []string{"a", "b"},
	})
	_, alice := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	_, bob := seedBoundCaptain(t, db, "Beta", "bob", 200, 200)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	svc := NewAnswerService(db)
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *alice.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(0)}); err != nil {
		t.Fatalf("alice Submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *bob.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(1)}); err != nil {
		t.Fatalf("bob Submit: %v", err)
	}

	var count int64
	db.Model(&models.Answer{}).Count(&count)
	if count != 2 {
		t.Errorf("answer count = %d, want 2", count)
	}
}

func TestSubmitAfterDeadline(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "q",
		options: []string{"a", "b"},
	})
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)

	base := time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC)
	openQuestion(t, db, game, questions[0].ID, base.Add(AnswerWindow))

	svc := NewAnswerService(db)
	event := ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(0)}

	// One nanosecond before the deadline is still inside the window.
	svc.now = func() time.Time { return base.Add(AnswerWindow - time.Nanosecond) }
	if _, err := svc.Submit(context.Background(), event); err != nil {
		t.Fatalf("Submit inside window: %v", err)
	}
	db.Where("1 = 1").Delete(&models.Answer{})

	// Exactly at the deadline the window is closed.
	svc.now = func() time.Time { return base.Add(AnswerWindow) }
	if _, err := svc.Submit(context.Background(), event); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("Submit at deadline error = %v, want ErrWindowClosed", err)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db,
		seedQuestion{text: "q1", options: []string{"a", "b"}},
		seedQuestion{text: "q2", options: []string{"a", "b"}},
	)
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	svc := NewAnswerService(db)

	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: 999, QuestionID: questions[0].ID, OptionIndex: intPtr(0)}); !errors.Is(err, ErrNotBound) {
		t.Errorf("unknown user error = %v, want ErrNotBound", err)
	}

	// Event for a question that is not the current one.
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[1].ID, OptionIndex: intPtr(0)}); !errors.Is(err, ErrNoActiveQuestion) {
		t.Errorf("stale question error = %v, want ErrNoActiveQuestion", err)
	}

	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(5)}); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("out-of-range option error = %v, want ErrInvalidOption", err)
	}
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID}); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("missing option error = %v, want ErrInvalidOption", err)
	}
}

func TestSubmitNoActiveGame(t *testing.T) {
	db := newTestDB(t)
	seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)

	svc := NewAnswerService(db)
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: 100, QuestionID: 1, OptionIndex: intPtr(0)}); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("Submit error = %v, want ErrNoActiveGame", err)
	}
}

func TestMultiSelectToggleAndCommit(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "кейс",
		options: []string{"a", "b", "c"},
		qType:   models.QuestionTypeCase,
		weights: map[string]float64{"A": 2, "B": 0, "C": 1},
	})
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	svc := NewAnswerService(db)
	toggle := func(index int) *SubmitResult {
		t.Helper()
		result, err := svc.Submit(context.Background(), ChoiceEvent{
			TelegramUserID: *captain.TelegramUserID,
			QuestionID:     questions[0].ID,
			OptionIndex:    intPtr(index),
		})
		if err != nil {
			t.Fatalf("toggle %d: %v", index, err)
		}
		if result.Committed {
			t.Fatalf("toggle %d committed the answer", index)
		}
		return result
	}

	if got := toggle(0).Selections; len(got) != 1 || got[0] != 0 {
		t.Errorf("selections after first toggle = %v, want [0]", got)
	}
	if got := toggle(2).Selections; len(got) != 2 {
		t.Errorf("selections after second toggle = %v, want two entries", got)
	}
	// Toggling an already selected option removes it again.
	if got := toggle(0).Selections; len(got) != 1 || got[0] != 2 {
		t.Errorf("selections after re-toggle = %v, want [2]", got)
	}

	result, err := svc.Submit(context.Background(), ChoiceEvent{
		TelegramUserID: *captain.TelegramUserID,
		QuestionID:     questions[0].ID,
		Done:           true,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !result.Committed || len(result.Selections) != 1 || result.Selections[0] != 2 {
		t.Fatalf("commit result = %+v, want committed [2]", result)
	}

	var drafts int64
	db.Model(&models.DraftAnswer{}).Count(&drafts)
	if drafts != 0 {
		t.Errorf("draft count after commit = %d, want 0", drafts)
	}

	var stored models.Answer
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("load committed answer: %v", err)
	}
	if stored.OptionIndex != models.NoSingleOption {
		t.Errorf("committed option index = %d, want %d", stored.OptionIndex, models.NoSingleOption)
	}
	indices, err := stored.SelectedIndices()
	if err != nil || len(indices) != 1 || indices[0] != 2 {
		t.Errorf("committed indices = %v (%v), want [2]", indices, err)
	}

	// The commit is final: further toggles and commits bounce.
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(1)}); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("toggle after commit error = %v, want ErrAlreadyAnswered", err)
	}
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, Done: true}); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("commit after commit error = %v, want ErrAlreadyAnswered", err)
	}
}

func TestMultiSelectEmptyCommit(t *testing.T) {
	db := newTestDB(t)
	game, questions := seedActiveGame(t, db, seedQuestion{
		text:    "кейс",
		options: []string{"a", "b"},
		qType:   models.QuestionTypeMulti,
	})
	_, captain := seedBoundCaptain(t, db, "Alpha", "alice", 100, 100)
	openQuestion(t, db, game, questions[0].ID, time.Now().Add(time.Minute))

	svc := NewAnswerService(db)

	// Done with no draft at all.
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, Done: true}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("empty commit error = %v, want ErrEmptySelection", err)
	}

	// Done after toggling a selection on and off again.
	for _, index := range []int{0, 0} {
		if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, OptionIndex: intPtr(index)}); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	if _, err := svc.Submit(context.Background(), ChoiceEvent{TelegramUserID: *captain.TelegramUserID, QuestionID: questions[0].ID, Done: true}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("emptied commit error = %v, want ErrEmptySelection", err)
	}
}
