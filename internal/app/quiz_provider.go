package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"vidya-quiz-service/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QuizProvider resolves the quiz of the day: the stored copy if any, otherwise the first
// source that produces one. A produced quiz is stored and never replaced afterwards.
type QuizProvider struct {
	store     KVStore
	sources   []QuizSource
	createdBy string
	now       func() time.Time
	logger    *zap.Logger
	sf        singleflight.Group

	// writeMu serializes check-then-store so a day's quiz is written once.
	writeMu sync.Mutex
}

// ProviderOption customizes a QuizProvider.
type ProviderOption func(*QuizProvider)

// WithProviderClock is used by tests for deterministic dates.
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *QuizProvider) { p.now = now }
}

// WithProviderLogger attaches a logger.
func WithProviderLogger(logger *zap.Logger) ProviderOption {
	return func(p *QuizProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCreator sets the tag stamped on produced quizzes that carry none.
func WithCreator(createdBy string) ProviderOption {
	return func(p *QuizProvider) {
		if createdBy != "" {
			p.createdBy = createdBy
		}
	}
}

// NewQuizProvider builds a provider that consults sources in order on a miss.
func NewQuizProvider(store KVStore, sources []QuizSource, opts ...ProviderOption) *QuizProvider {
	p := &QuizProvider{
		store:     store,
		sources:   sources,
		createdBy: domain.DefaultCreator,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Today returns the current UTC date.
func (p *QuizProvider) Today() string {
	return domain.DateOf(p.now())
}

// Stored returns the persisted quiz for date without consulting sources.
func (p *QuizProvider) Stored(ctx context.Context, date string) (domain.Quiz, bool, error) {
	var quiz domain.Quiz
	ok, err := loadJSON(ctx, p.store, domain.QuizKey(date), &quiz)
	return quiz, ok, err
}

// QuizForDate returns the stored quiz, producing and storing one on a miss.
func (p *QuizProvider) QuizForDate(ctx context.Context, date string) (domain.Quiz, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.Quiz{}, err
	}
	if quiz, ok, err := p.Stored(ctx, date); err != nil || ok {
		return quiz, err
	}

	result, err, _ := p.sf.Do(date, func() (interface{}, error) {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()
		// Re-check in case another caller filled it.
		if quiz, ok, err := p.Stored(ctx, date); err != nil || ok {
			return quiz, err
		}
		quiz, err := p.produce(ctx, date)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := p.put(ctx, quiz); err != nil {
			return domain.Quiz{}, err
		}
		p.logger.Info("daily quiz stored",
			zap.String("date", date),
			zap.String("subject", quiz.Subject),
			zap.String("created_by", quiz.CreatedBy),
			zap.Int("questions", len(quiz.Questions)))
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (p *QuizProvider) produce(ctx context.Context, date string) (domain.Quiz, error) {
	for _, source := range p.sources {
		quiz, err := source.LoadQuiz(ctx, date)
		if errors.Is(err, domain.ErrQuizNotFound) {
			continue
		}
		if err != nil {
			// An unavailable source falls through to the next one.
			p.logger.Warn("quiz source failed", zap.String("date", date), zap.Error(err))
			continue
		}
		quiz.Date = date
		if quiz.CreatedBy == "" {
			quiz.CreatedBy = p.createdBy
		}
		if err := quiz.Validate(); err != nil {
			p.logger.Warn("quiz source returned invalid quiz", zap.String("date", date), zap.Error(err))
			continue
		}
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotReady
}

// PublishQuiz stores an authored quiz for its date. Quizzes are immutable once stored.
func (p *QuizProvider) PublishQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.CreatedBy == "" {
		quiz.CreatedBy = "admin"
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, ok, err := p.Stored(ctx, quiz.Date)
	if err != nil {
		return domain.Quiz{}, err
	}
	if ok {
		return domain.Quiz{}, domain.ErrQuizExists
	}
	if err := p.put(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	p.logger.Info("quiz published", zap.String("date", quiz.Date), zap.String("created_by", quiz.CreatedBy))
	return quiz, nil
}

func (p *QuizProvider) put(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	if err := p.store.Set(ctx, domain.QuizKey(quiz.Date), data); err != nil {
		return fmt.Errorf("%w: store quiz: %w", domain.ErrPersistence, err)
	}
	return nil
}
