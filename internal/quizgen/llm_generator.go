package quizgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vidya-quiz-service/internal/domain"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const defaultQuestions = 5

const promptTemplate = `You are VIDYA, an AI tutor that sets a short daily quiz for school students.
Create a multiple-choice quiz of exactly %d questions on the subject "%s" for %s.
Respond with ONLY a JSON object in the following format:
{
    "subject": "subject name",
    "questions": [
        {"q": "question text", "options": ["option A", "option B", "option C", "option D"], "answer": 0}
    ]
}

Rules:
1. Every question has exactly 4 options
2. "answer" is the zero-based index of the single correct option
3. Questions must be factual and unambiguous
4. Do not repeat questions`

// LLMGenerator produces the daily quiz with a language model.
// It implements app.QuizSource.
type LLMGenerator struct {
	model       llms.Model
	subject     string
	questions   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// Option customizes an LLMGenerator.
type Option func(*LLMGenerator)

// WithSubject sets the quiz subject; "General Knowledge" by default.
func WithSubject(subject string) Option {
	return func(g *LLMGenerator) {
		if subject != "" {
			g.subject = subject
		}
	}
}

// WithQuestions sets how many questions to request.
func WithQuestions(n int) Option {
	return func(g *LLMGenerator) {
		if n > 0 {
			g.questions = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *LLMGenerator) { g.temperature = t }
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(g *LLMGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *LLMGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewLLMGenerator(model llms.Model, opts ...Option) *LLMGenerator {
	g := &LLMGenerator{
		model:       model,
		subject:     "General Knowledge",
		questions:   defaultQuestions,
		temperature: 0.7,
		timeout:     60 * time.Second,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoadQuiz asks the model for a quiz and parses it.
func (g *LLMGenerator) LoadQuiz(ctx context.Context, date string) (domain.Quiz, error) {
	prompt := fmt.Sprintf(promptTemplate, g.questions, g.subject, date)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Info("generating daily quiz", zap.String("date", date), zap.String("subject", g.subject))
	raw, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}
	g.logger.Debug("raw quiz response", zap.String("response", raw))

	quiz, err := ParseQuiz(raw)
	if err != nil {
		g.logger.Error("failed to parse quiz response", zap.Error(err), zap.String("response", raw))
		return domain.Quiz{}, err
	}
	if quiz.Subject == "" {
		quiz.Subject = g.subject
	}
	quiz.Date = date
	quiz.CreatedBy = domain.DefaultCreator
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// ParseQuiz extracts the quiz JSON object from a free-form model response.
// Reasoning blocks (<think>...</think>) and code fences around the object are ignored.
func ParseQuiz(response string) (domain.Quiz, error) {
	cleaned := strings.TrimSpace(response)
	if start := strings.Index(cleaned, "<think>"); start != -1 {
		if end := strings.Index(cleaned, "</think>"); end > start {
			cleaned = strings.TrimSpace(cleaned[:start] + cleaned[end+len("</think>"):])
		}
	}

	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		return domain.Quiz{}, fmt.Errorf("%w: no JSON object in model response", domain.ErrInvalidQuiz)
	}

	var payload struct {
		Subject   string            `json:"subject"`
		Questions []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleaned[jsonStart:jsonEnd+1]), &payload); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: decode model response: %w", domain.ErrInvalidQuiz, err)
	}
	if len(payload.Questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: model returned no questions", domain.ErrInvalidQuiz)
	}
	return domain.Quiz{Subject: payload.Subject, Questions: payload.Questions}, nil
}
