package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"vidya-quiz-service/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultLeaderboardTop is how many rows a leaderboard view shows by default.
const DefaultLeaderboardTop = 10

// QuizEngine scores daily quiz attempts and keeps the per-date leaderboards.
type QuizEngine struct {
	store   KVStore
	quizzes *QuizProvider
	hub     *leaderboardHub
	now     func() time.Time
	top     int
	logger  *zap.Logger

	// mu makes each read-modify-write of a leaderboard run to completion.
	mu      sync.Mutex
	entropy io.Reader
}

// EngineOption customizes a QuizEngine.
type EngineOption func(*QuizEngine)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *QuizEngine) { e.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *QuizEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLeaderboardTop sets how many rows broadcast snapshots carry.
func WithLeaderboardTop(n int) EngineOption {
	return func(e *QuizEngine) {
		if n > 0 {
			e.top = n
		}
	}
}

// NewQuizEngine wires the engine to its store and quiz provider.
func NewQuizEngine(store KVStore, quizzes *QuizProvider, opts ...EngineOption) *QuizEngine {
	e := &QuizEngine{
		store:   store,
		quizzes: quizzes,
		hub:     newLeaderboardHub(),
		now:     time.Now,
		top:     DefaultLeaderboardTop,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.entropy = ulid.Monotonic(rand.New(rand.NewSource(e.now().UnixNano())), 0)
	return e
}

// Quizzes exposes the provider the engine resolves quizzes with.
func (e *QuizEngine) Quizzes() *QuizProvider {
	return e.quizzes
}

// Now reads the engine clock.
func (e *QuizEngine) Now() time.Time {
	return e.now()
}

// Today returns the engine clock's UTC date.
func (e *QuizEngine) Today() string {
	return domain.DateOf(e.now())
}

// QuizForStudent returns the quiz a student may see for date. Only today's quiz
// is produced on demand; past quizzes are served when stored, future ones never.
func (e *QuizEngine) QuizForStudent(ctx context.Context, date string) (domain.Quiz, error) {
	today := e.Today()
	switch {
	case date == today:
		return e.quizzes.QuizForDate(ctx, date)
	case date > today:
		return domain.Quiz{}, domain.ErrDateNotOpen
	}
	quiz, ok, err := e.quizzes.Stored(ctx, date)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

// SubmitForDate scores selections against the quiz of date, which must be today.
// It returns domain.ErrDateNotOpen for any other date and domain.ErrQuizNotReady
// when the day has no quiz.
func (e *QuizEngine) SubmitForDate(ctx context.Context, date, submitterName, submitterID string, selections []domain.Selection) (domain.QuizResult, error) {
	if date != e.Today() {
		return domain.QuizResult{}, domain.ErrDateNotOpen
	}
	quiz, err := e.quizzes.QuizForDate(ctx, date)
	if err != nil {
		return domain.QuizResult{}, err
	}
	return e.SubmitAttempt(ctx, quiz, submitterName, submitterID, selections)
}

// SubmitAttempt scores one attempt, inserts it into the leaderboard of the quiz's date
// and returns the submitter's result. The leaderboard and the result are written in a
// single batch, so on error neither is stored.
func (e *QuizEngine) SubmitAttempt(ctx context.Context, quiz domain.Quiz, submitterName, submitterID string, selections []domain.Selection) (domain.QuizResult, error) {
	date := quiz.Date
	if _, err := domain.ParseDate(date); err != nil {
		return domain.QuizResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	resultKey := domain.ResultKey(date, submitterID)
	var previous domain.QuizResult
	submitted, err := loadJSON(ctx, e.store, resultKey, &previous)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if submitted {
		return domain.QuizResult{}, domain.ErrAlreadySubmitted
	}

	lb, err := e.loadLeaderboard(ctx, date)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if submitterID != "" && lb.Has(submitterID) {
		return domain.QuizResult{}, domain.ErrAlreadySubmitted
	}

	now := e.now()
	attempt := domain.QuizAttempt{
		ID:          ulid.MustNew(ulid.Timestamp(now), e.entropy).String(),
		StudentName: submitterName,
		UserID:      submitterID,
		Answers:     append([]domain.Selection(nil), selections...),
		Score:       quiz.Score(selections),
		Total:       len(quiz.Questions),
		SubmittedAt: now.UTC(),
	}
	lb.Insert(attempt)

	result := domain.QuizResult{
		UserID:         submitterID,
		Score:          attempt.Score,
		TotalQuestions: attempt.Total,
		Date:           date,
		Rank:           lb.RankOf(attempt),
	}

	lbData, err := json.Marshal(lb)
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("encode leaderboard: %w", err)
	}
	resultData, err := json.Marshal(result)
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("encode result: %w", err)
	}
	if err := e.store.SetBatch(ctx, map[string][]byte{
		domain.LeaderboardKey(date): lbData,
		resultKey:                   resultData,
	}); err != nil {
		e.logger.Error("persist attempt failed",
			zap.String("date", date),
			zap.String("user_id", submitterID),
			zap.Error(err))
		return domain.QuizResult{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	e.logger.Info("attempt submitted",
		zap.String("date", date),
		zap.String("user_id", submitterID),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
		zap.Int("rank", result.Rank))

	e.hub.broadcast(lb.View(e.top, now))
	return result, nil
}

// GetResultForDate returns the cached result of submitterID for date, if any.
func (e *QuizEngine) GetResultForDate(ctx context.Context, date, submitterID string) (domain.QuizResult, bool, error) {
	var result domain.QuizResult
	ok, err := loadJSON(ctx, e.store, domain.ResultKey(date, submitterID), &result)
	if err != nil || !ok {
		return domain.QuizResult{}, false, err
	}
	return result, true, nil
}

// Leaderboard returns the full stored leaderboard of date; empty when nobody submitted.
func (e *QuizEngine) Leaderboard(ctx context.Context, date string) (domain.Leaderboard, error) {
	return e.loadLeaderboard(ctx, date)
}

// LeaderboardView renders the top n rows of date's leaderboard; n <= 0 uses the engine default.
func (e *QuizEngine) LeaderboardView(ctx context.Context, date string, n int) (domain.LeaderboardView, error) {
	if n <= 0 {
		n = e.top
	}
	lb, err := e.loadLeaderboard(ctx, date)
	if err != nil {
		return domain.LeaderboardView{}, err
	}
	return lb.View(n, e.now()), nil
}

// Subscribe returns a channel of leaderboard snapshots for date, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *QuizEngine) Subscribe(ctx context.Context, date string) (<-chan domain.LeaderboardView, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	view, err := e.LeaderboardView(ctx, date, e.top)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := e.hub.subscribe(date, view)
	return ch, cancel, nil
}

func (e *QuizEngine) loadLeaderboard(ctx context.Context, date string) (domain.Leaderboard, error) {
	lb := domain.Leaderboard{Date: date}
	if _, err := loadJSON(ctx, e.store, domain.LeaderboardKey(date), &lb); err != nil {
		return domain.Leaderboard{}, err
	}
	lb.Date = date
	return lb, nil
}
