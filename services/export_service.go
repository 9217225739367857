package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// ExportService produces the raw answer log for offline analysis.
type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db}
}

type ExportRow struct {
	GameID      uint      `json:"game_id"`
	Round       int       `json:"round"`
	QuestionID  uint      `json:"question_id"`
	Team        string    `json:"team"`
	OptionIndex int       `json:"option_index"`
	AnsweredAt  time.Time `json:"answered_at"`
}

// Rows returns every committed answer joined with its round and team, ordered
// by submission time.
func (s *ExportService) Rows(ctx context.Context) ([]ExportRow, error) {
	var rows []ExportRow
	err := s.db.WithContext(ctx).Table("answers").
		Select("answers.game_id, rounds.number AS round, answers.question_id, teams.name AS team, answers.option_index, answers.answered_at").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN rounds ON rounds.id = questions.round_id").
		Joins("JOIN teams ON teams.id = answers.team_id").
		Order("answers.answered_at ASC, answers.id ASC").
		Scan(&rows).Error
	return rows, err
}

// WriteCSV streams the export as CSV with a header row.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.Rows(ctx)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"game_id", "round", "question_id", "team", "option_index", "answered_at"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.GameID), 10),
			strconv.Itoa(row.Round),
			strconv.FormatUint(uint64(row.QuestionID), 10),
			row.Team,
			strconv.Itoa(row.OptionIndex),
			row.AnsweredAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
