package domain

import (
	"sort"
	"time"
)

// Leaderboard holds every attempt for one date, best first.
type Leaderboard struct {
	Date     string        `json:"date"`
	Attempts []QuizAttempt `json:"attempts"`
}

// ranksBefore reports whether a is strictly ahead of b: higher score, or the
// same score submitted earlier.
func ranksBefore(a, b QuizAttempt) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

// Insert appends the attempt and re-sorts the whole board.
// Exact ties keep their insertion order.
func (l *Leaderboard) Insert(attempt QuizAttempt) {
	l.Attempts = append(l.Attempts, attempt)
	sort.SliceStable(l.Attempts, func(i, j int) bool {
		return ranksBefore(l.Attempts[i], l.Attempts[j])
	})
}

// RankOf returns 1 + the number of attempts strictly ahead of attempt.
func (l Leaderboard) RankOf(attempt QuizAttempt) int {
	rank := 1
	for _, other := range l.Attempts {
		if ranksBefore(other, attempt) {
			rank++
		}
	}
	return rank
}

// Has reports whether userID already has an attempt on the board.
func (l Leaderboard) Has(userID string) bool {
	for _, attempt := range l.Attempts {
		if attempt.UserID == userID {
			return true
		}
	}
	return false
}

// Top returns at most n attempts; n <= 0 means all. The board is not modified.
func (l Leaderboard) Top(n int) []QuizAttempt {
	count := len(l.Attempts)
	if n > 0 && n < count {
		count = n
	}
	out := make([]QuizAttempt, count)
	copy(out, l.Attempts[:count])
	return out
}

// RankedEntry is a display row of a leaderboard.
type RankedEntry struct {
	Rank        int       `json:"rank"`
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// LeaderboardView is the snapshot sent to clients.
type LeaderboardView struct {
	Date      string        `json:"date"`
	Entries   []RankedEntry `json:"entries"`
	Count     int           `json:"count"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// View renders the top n attempts with 1-based positions.
func (l Leaderboard) View(n int, now time.Time) LeaderboardView {
	top := l.Top(n)
	entries := make([]RankedEntry, 0, len(top))
	for i, attempt := range top {
		entries = append(entries, RankedEntry{
			Rank:        i + 1,
			ID:          attempt.ID,
			StudentName: attempt.StudentName,
			Score:       attempt.Score,
			Total:       attempt.Total,
			SubmittedAt: attempt.SubmittedAt,
		})
	}
	return LeaderboardView{
		Date:      l.Date,
		Entries:   entries,
		Count:     len(l.Attempts),
		UpdatedAt: now,
	}
}
