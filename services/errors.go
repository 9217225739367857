package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Recoverable submission and orchestration failures. Each maps to one short
// user-facing message; none of them aborts the submitting flow.
var (
	ErrNotBound           = errors.New("captain is not bound to a team")
	ErrNoActiveGame       = errors.New("no active game")
	ErrNoActiveQuestion   = errors.New("no active question")
	ErrWindowClosed       = errors.New("answer window is closed")
	ErrAlreadyAnswered    = errors.New("team has already answered this question")
	ErrInvalidOption      = errors.New("invalid option index")
	ErrEmptySelection     = errors.New("empty selection")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrNoQuestionsInRound = errors.New("round has no questions")
)

// isUniqueViolation recognizes a storage uniqueness rejection so it can be
// turned into ErrAlreadyAnswered instead of surfacing as a fatal error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
