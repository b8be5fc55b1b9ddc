package memory

import (
	"context"
	"hash/fnv"

	"vidya-quiz-service/internal/domain"
)

// StaticQuizSource is a simple source backed by an in-memory map of date to quiz
// (useful for tests/demos).
type StaticQuizSource struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizSource(quizzes map[string]domain.Quiz) *StaticQuizSource {
	return &StaticQuizSource{quizzes: quizzes}
}

func (s *StaticQuizSource) LoadQuiz(_ context.Context, date string) (domain.Quiz, error) {
	if quiz, ok := s.quizzes[date]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// BankQuizSource serves a quiz for any date by rotating through a fixed bank.
// The same date always maps to the same quiz.
type BankQuizSource struct {
	bank []domain.Quiz
}

func NewBankQuizSource(bank []domain.Quiz) *BankQuizSource {
	return &BankQuizSource{bank: bank}
}

func (s *BankQuizSource) LoadQuiz(_ context.Context, date string) (domain.Quiz, error) {
	if len(s.bank) == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(date))
	quiz := s.bank[int(h.Sum32()%uint32(len(s.bank)))]
	quiz.Date = date
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)
	return quiz, nil
}

// SampleBank provides a minimal set of offline quizzes; the AI generator or Postgres
// source replaces it in production.
func SampleBank() []domain.Quiz {
	return []domain.Quiz{
		{
			Subject:   "General Science",
			CreatedBy: "VIDYA_BANK",
			Questions: []domain.Question{
				{Prompt: "What is the chemical symbol for water?", Options: []string{"H2O", "CO2", "O2", "NaCl"}, Answer: 0},
				{Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, Answer: 1},
				{Prompt: "What is the SI unit of force?", Options: []string{"Joule", "Watt", "Newton", "Pascal"}, Answer: 2},
				{Prompt: "Which gas do plants absorb for photosynthesis?", Options: []string{"Oxygen", "Nitrogen", "Hydrogen", "Carbon dioxide"}, Answer: 3},
				{Prompt: "What is the speed of light in vacuum, roughly?", Options: []string{"3 x 10^8 m/s", "3 x 10^6 m/s", "3 x 10^5 m/s", "3 x 10^10 m/s"}, Answer: 0},
			},
		},
		{
			Subject:   "Mathematics",
			CreatedBy: "VIDYA_BANK",
			Questions: []domain.Question{
				{Prompt: "What is 12 x 12?", Options: []string{"124", "144", "132", "154"}, Answer: 1},
				{Prompt: "What is the derivative of x^2?", Options: []string{"x", "2", "2x", "x^3/3"}, Answer: 2},
				{Prompt: "How many degrees are in a triangle?", Options: []string{"180", "360", "90", "270"}, Answer: 0},
				{Prompt: "What is the value of pi to two decimals?", Options: []string{"3.41", "3.12", "3.16", "3.14"}, Answer: 3},
				{Prompt: "What is the square root of 81?", Options: []string{"8", "9", "7", "11"}, Answer: 1},
			},
		},
	}
}
