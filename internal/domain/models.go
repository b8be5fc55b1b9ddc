package domain

import (
	"fmt"
	"time"
)

// DefaultCreator tags quizzes produced by the AI generator.
const DefaultCreator = "VIDYA_AI"

// Question models an MCQ question; Answer is the zero-based index of the correct option.
type Question struct {
	Prompt  string   `json:"q"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Quiz is the single quiz published for a calendar date.
type Quiz struct {
	Date      string     `json:"date"`
	Subject   string     `json:"subject"`
	Questions []Question `json:"questions"`
	CreatedBy string     `json:"createdBy"`
}

// Score counts the positions where the selection equals the correct option.
// Unanswered, missing and out-of-range selections never match.
func (q Quiz) Score(selections []Selection) int {
	score := 0
	for i, question := range q.Questions {
		if i >= len(selections) {
			break
		}
		idx, ok := selections[i].Index()
		if !ok || idx < 0 || idx >= len(question.Options) {
			continue
		}
		if idx == question.Answer {
			score++
		}
	}
	return score
}

// Validate checks that every question has options and an in-range answer.
func (q Quiz) Validate() error {
	if _, err := ParseDate(q.Date); err != nil {
		return err
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}
	for i, question := range q.Questions {
		if question.Prompt == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrInvalidQuiz, i+1)
		}
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidQuiz, i+1)
		}
		if question.Answer < 0 || question.Answer >= len(question.Options) {
			return fmt.Errorf("%w: question %d answer %d out of range", ErrInvalidQuiz, i+1, question.Answer)
		}
	}
	return nil
}

// PublicQuestion is a question as shown to students, without the answer key.
type PublicQuestion struct {
	Prompt  string   `json:"q"`
	Options []string `json:"options"`
}

// PublicQuiz is the student-facing view of a Quiz.
type PublicQuiz struct {
	Date      string           `json:"date"`
	Subject   string           `json:"subject"`
	Questions []PublicQuestion `json:"questions"`
	CreatedBy string           `json:"createdBy"`
}

// Public strips the answer key.
func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, PublicQuestion{
			Prompt:  question.Prompt,
			Options: append([]string(nil), question.Options...),
		})
	}
	return PublicQuiz{
		Date:      q.Date,
		Subject:   q.Subject,
		Questions: questions,
		CreatedBy: q.CreatedBy,
	}
}

// QuizAttempt is one submitter's completed answers plus the computed score.
type QuizAttempt struct {
	ID          string      `json:"id"`
	StudentName string      `json:"studentName"`
	UserID      string      `json:"userId,omitempty"`
	Answers     []Selection `json:"answers"`
	Score       int         `json:"score"`
	Total       int         `json:"total"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// QuizResult is the per-submitter summary cached for same-day re-display.
type QuizResult struct {
	UserID         string `json:"userId"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Date           string `json:"date"`
	Rank           int    `json:"rank"`
}
