package domain

import "errors"

var (
	// ErrQuizNotFound is returned by a quiz source that has nothing for the date.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotReady means no quiz exists for the date and none could be produced.
	ErrQuizNotReady = errors.New("quiz not ready")
	// ErrQuizExists is returned when publishing over a stored quiz.
	ErrQuizExists = errors.New("quiz already published for date")
	// ErrInvalidQuiz indicates malformed quiz content.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrAlreadySubmitted is returned on a second submission for the same date.
	ErrAlreadySubmitted = errors.New("attempt already submitted for date")
	// ErrDateNotOpen is returned when students act on a date other than today.
	ErrDateNotOpen = errors.New("quiz date is not open")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence failure")
)
