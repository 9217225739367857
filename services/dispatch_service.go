package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quizhall/models"

	"gorm.io/gorm"
)

// AnswerWindow is the fixed acceptance window for every dispatched question.
const AnswerWindow = 60 * time.Second

// QuestionPayload is what leaves the core toward the messaging gateway.
type QuestionPayload struct {
	ID          uint
	Text        string
	Options     []string
	MultiSelect bool
	Seconds     int
}

// CaptainNotifier fans a dispatched question out to every bound captain.
// Delivery is best-effort per recipient and never reports back.
type CaptainNotifier interface {
	NotifyQuestion(payload QuestionPayload)
}

// HallBroadcaster pushes display events to the hall.
type HallBroadcaster interface {
	Broadcast(event DisplayEvent)
}

// ActiveGameHandle pins the one game the orchestrator operates on, set on game
// creation and finish instead of being re-derived by query each time.
type ActiveGameHandle struct {
	mu sync.Mutex
	id uint
}

func (h *ActiveGameHandle) Set(id uint) {
	h.mu.Lock()
	h.id = id
	h.mu.Unlock()
}

func (h *ActiveGameHandle) Clear() {
	h.Set(0)
}

func (h *ActiveGameHandle) Get() (uint, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id, h.id != 0
}

// DispatchService sequences question flow: it mutates the store first and only
// then fans out to captains and the hall. The two fan-outs are independent and
// best-effort; neither can abort the other or the committed state change.
type DispatchService struct {
	db       *gorm.DB
	active   *ActiveGameHandle
	hall     HallBroadcaster
	captains CaptainNotifier
	now      func() time.Time
}

func NewDispatchService(db *gorm.DB, active *ActiveGameHandle, hall HallBroadcaster) *DispatchService {
	return &DispatchService{
		db:     db,
		active: active,
		hall:   hall,
		now:    time.Now,
	}
}

// SetCaptainNotifier wires the messaging gateway in after construction; the
// gateway itself depends on this service for host commands.
func (s *DispatchService) SetCaptainNotifier(notifier CaptainNotifier) {
	s.captains = notifier
}

// StartQuestion makes the question current for the active game, opens the
// 60-second window and fans the payload out to captains and the hall.
func (s *DispatchService) StartQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&question, questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return err
		}
		game, err := s.activeGame(tx)
		if err != nil {
			return err
		}
		return s.openWindow(tx, game, &question)
	})
	if err != nil {
		return nil, err
	}
	s.fanOutQuestion(&question)
	return &question, nil
}

// AdvanceToNext selects the question after the current one within the active
// round, ordered by order_index, wrapping to the first when there is no
// current question or the current one is last.
func (s *DispatchService) AdvanceToNext(ctx context.Context) (*models.Question, error) {
	var next models.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		game, err := s.activeGame(tx)
		if err != nil {
			return err
		}

		var round models.Round
		if err := tx.Where("game_id = ? AND status = ?", game.ID, models.RoundStatusActive).
			Order("number DESC").First(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoQuestionsInRound
			}
			return err
		}

		var questions []models.Question
		if err := tx.Where("round_id = ?", round.ID).Order("order_index ASC").Find(&questions).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return ErrNoQuestionsInRound
		}

		next = questions[0]
		if game.CurrentQuestionID != nil {
			currentOrder := -1
			for _, q := range questions {
				if q.ID == *game.CurrentQuestionID {
					currentOrder = q.OrderIndex
					break
				}
			}
			if currentOrder >= 0 {
				for _, q := range questions {
					if q.OrderIndex > currentOrder {
						next = q
						break
					}
				}
			}
		}
		return s.openWindow(tx, game, &next)
	})
	if err != nil {
		return nil, err
	}
	s.fanOutQuestion(&next)
	return &next, nil
}

// StopAccepting closes the window immediately by moving the deadline to now
// and tells the hall that acceptance has stopped.
func (s *DispatchService) StopAccepting(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		game, err := s.activeGame(tx)
		if err != nil {
			return err
		}
		if game.CurrentQuestionID == nil {
			return ErrNoActiveQuestion
		}
		return tx.Model(game).Update("current_question_deadline", s.now().UTC()).Error
	})
	if err != nil {
		return err
	}
	if s.hall != nil {
		s.hall.Broadcast(DisplayEvent{Type: DisplayEventResults, Text: "Приём ответов остановлен"})
	}
	return nil
}

// ShowSlide pushes a plain slide to the hall.
func (s *DispatchService) ShowSlide(text string) {
	if s.hall != nil {
		s.hall.Broadcast(DisplayEvent{Type: DisplayEventSlide, Text: text})
	}
}

// ShowResults pushes a results screen to the hall.
func (s *DispatchService) ShowResults(text string) {
	if s.hall != nil {
		s.hall.Broadcast(DisplayEvent{Type: DisplayEventResults, Text: text})
	}
}

func (s *DispatchService) activeGame(tx *gorm.DB) (*models.Game, error) {
	var game models.Game
	if id, ok := s.active.Get(); ok {
		if err := tx.First(&game, id).Error; err == nil && game.Status == models.GameStatusActive {
			return &game, nil
		}
		// The pinned game is gone or finished; fall back to the query and
		// re-pin below.
	}
	if err := tx.Where("status = ?", models.GameStatusActive).Order("id DESC").First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveGame
		}
		return nil, err
	}
	s.active.Set(game.ID)
	return &game, nil
}

func (s *DispatchService) openWindow(tx *gorm.DB, game *models.Game, question *models.Question) error {
	deadline := s.now().UTC().Add(AnswerWindow)
	return tx.Model(game).Updates(map[string]any{
		"current_question_id":       question.ID,
		"current_question_deadline": deadline,
	}).Error
}

func (s *DispatchService) fanOutQuestion(question *models.Question) {
	options, err := question.OptionList()
	if err != nil {
		log.Printf("cannot fan out question %d: %v", question.ID, err)
		return
	}
	seconds := int(AnswerWindow / time.Second)
	if s.captains != nil {
		s.captains.NotifyQuestion(QuestionPayload{
			ID:          question.ID,
			Text:        question.Text,
			Options:     options,
			MultiSelect: question.MultiSelect(),
			Seconds:     seconds,
		})
	}
	if s.hall != nil {
		s.hall.Broadcast(DisplayEvent{
			Type:    DisplayEventQuestion,
			Text:    question.Text,
			Options: options,
			Seconds: seconds,
		})
	}
}
