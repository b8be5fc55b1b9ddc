package app

import (
	"context"

	"vidya-quiz-service/internal/domain"
)

// KVStore abstracts how date-scoped state is persisted (in-memory, Redis, Postgres, SQLite).
type KVStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetBatch writes all entries or none.
	SetBatch(ctx context.Context, entries map[string][]byte) error
}

// QuizSource supplies the quiz for a date, or domain.ErrQuizNotFound.
type QuizSource interface {
	LoadQuiz(ctx context.Context, date string) (domain.Quiz, error)
}
