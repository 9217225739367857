package services

import (
	"context"
	"errors"
	"strings"

	"quizhall/models"

	"gorm.io/gorm"
)

// GameService owns game lifecycle and the host-side roster: games, rounds,
// teams, captains and the admin allow-list.
type GameService struct {
	db     *gorm.DB
	active *ActiveGameHandle
}

func NewGameService(db *gorm.DB, active *ActiveGameHandle) *GameService {
	return &GameService{db: db, active: active}
}

// CreateGame creates an active game with round 1 active and pins it as the
// active game. Any previously active game is finished in the same transaction,
// so exactly one game is ever active.
func (s *GameService) CreateGame(ctx context.Context, name string) (*models.Game, error) {
	game := models.Game{
		Name:         name,
		Status:       models.GameStatusActive,
		CurrentRound: 1,
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
		round := models.Round{GameID: game.ID, Number: 1, Status: models.RoundStatusActive}
		return tx.Create(&round).Error
	})
	if err != nil {
		return nil, err
	}
	s.active.Set(game.ID)
	return &game, nil
}

// FinishGame closes the active game and clears the active handle.
func (s *GameService) FinishGame(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.Where("status = ?", models.GameStatusActive).Order("id DESC").First(&game).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveGame
			}
			return err
		}
		return tx.Model(&game).Updates(map[string]any{
			"status":                    models.GameStatusFinished,
			"current_question_id":       nil,
			"current_question_deadline": nil,
		}).Error
	})
	if err != nil {
		return err
	}
	s.active.Clear()
	return nil
}

// RestoreActiveGame re-seeds the active handle from storage on process start.
func (s *GameService) RestoreActiveGame(ctx context.Context) {
	var game models.Game
	err := s.db.WithContext(ctx).
		Where("status = ?", models.GameStatusActive).
		Order("id DESC").First(&game).Error
	if err == nil {
		s.active.Set(game.ID)
	}
}

// AddTeam creates (or reuses) a team by name and assigns the captain username
// to it, rebinding an existing captain row if the host repeats the command.
func (s *GameService) AddTeam(ctx context.Context, teamName, captainUsername string) (*models.Team, error) {
	captainUsername = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(captainUsername), "@"))
	if teamName == "" || captainUsername == "" {
		return nil, errors.New("team name and captain username are required")
	}

	var team models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", teamName).First(&team).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			team = models.Team{Name: teamName}
			if err := tx.Create(&team).Error; err != nil {
				return err
			}
		}

		var captain models.Captain
		if err := tx.Where("lower(username) = ?", captainUsername).First(&captain).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			captain = models.Captain{Username: captainUsername, TeamID: &team.ID}
			return tx.Create(&captain).Error
		}
		return tx.Model(&captain).Update("team_id", team.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// RegisterCaptain binds a real chat identity to the captain row for the given
// username. Re-registration overwrites the previous binding.
func (s *GameService) RegisterCaptain(ctx context.Context, username string, telegramUserID, chatID int64) (*models.Captain, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var captain models.Captain
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lower(username) = ?", username).First(&captain).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotBound
			}
			return err
		}
		if err := tx.Model(&captain).Updates(map[string]any{
			"telegram_user_id": telegramUserID,
			"chat_id":          chatID,
		}).Error; err != nil {
			return err
		}
		captain.TelegramUserID = &telegramUserID
		captain.ChatID = &chatID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &captain, nil
}

// BoundCaptains lists every captain that can receive question fan-out.
func (s *GameService) BoundCaptains(ctx context.Context) ([]models.Captain, error) {
	var captains []models.Captain
	err := s.db.WithContext(ctx).
		Where("telegram_user_id IS NOT NULL AND chat_id IS NOT NULL").
		Find(&captains).Error
	return captains, err
}

// IsAdmin checks the allow-list by user id first, then by the static username
// list from the environment.
func (s *GameService) IsAdmin(ctx context.Context, telegramUserID int64, username string, envUsernames []string) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("telegram_user_id = ?", telegramUserID).
		Count(&count).Error; err == nil && count > 0 {
		return true
	}
	username = strings.ToLower(username)
	for _, allowed := range envUsernames {
		if username != "" && username == allowed {
			return true
		}
	}
	return false
}

// AddAdmin accepts either a @username or a numeric user id. When only a
// username is given, the id is filled from a registered captain if one
// matches, and otherwise stays empty until first contact.
func (s *GameService) AddAdmin(ctx context.Context, username string, telegramUserID int64) error {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if telegramUserID == 0 && username != "" {
			var captain models.Captain
			if err := tx.Where("lower(username) = ?", username).First(&captain).Error; err == nil && captain.TelegramUserID != nil {
				telegramUserID = *captain.TelegramUserID
			}
		}
		admin := models.Admin{}
		if telegramUserID != 0 {
			admin.TelegramUserID = &telegramUserID
		}
		if username != "" {
			admin.Username = &username
		}
		if admin.TelegramUserID == nil && admin.Username == nil {
			return errors.New("admin needs a username or a user id")
		}
		if err := tx.Create(&admin).Error; err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

// RemoveAdmin deletes allow-list entries matching the username or id.
func (s *GameService) RemoveAdmin(ctx context.Context, username string, telegramUserID int64) error {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	tx := s.db.WithContext(ctx)
	if telegramUserID != 0 {
		return tx.Where("telegram_user_id = ?", telegramUserID).Delete(&models.Admin{}).Error
	}
	if username != "" {
		return tx.Where("lower(username) = ?", username).Delete(&models.Admin{}).Error
	}
	return nil
}

func (s *GameService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := s.db.WithContext(ctx).Order("username ASC, telegram_user_id ASC").Find(&admins).Error
	return admins, err
}

// SeedAdmin makes sure the configured bootstrap admin exists.
func (s *GameService) SeedAdmin(ctx context.Context, telegramUserID int64) error {
	if telegramUserID == 0 {
		return nil
	}
	return s.AddAdmin(ctx, "", telegramUserID)
}
