package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"vidya-quiz-service/internal/app"
	"vidya-quiz-service/internal/domain"
	"vidya-quiz-service/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDate = "2026-10-19"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func scenarioQuiz() domain.Quiz {
	answers := []int{0, 1, 2, 3, 0}
	questions := make([]domain.Question, len(answers))
	for i, a := range answers {
		questions[i] = domain.Question{Prompt: "question", Options: []string{"a", "b", "c", "d"}, Answer: a}
	}
	return domain.Quiz{Date: testDate, Subject: "Physics", Questions: questions, CreatedBy: "admin"}
}

func newTestEngine(store app.KVStore, clock *testClock) *app.QuizEngine {
	provider := app.NewQuizProvider(store, []app.QuizSource{
		memory.NewStaticQuizSource(map[string]domain.Quiz{testDate: scenarioQuiz()}),
	}, app.WithProviderClock(clock.Now))
	return app.NewQuizEngine(store, provider, app.WithClock(clock.Now))
}

func TestSubmitAttemptFirstSubmissionRanksFirst(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	engine := newTestEngine(memory.NewKVStore(0), clock)

	result, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0, 1, 2, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.QuizResult{UserID: "u1", Score: 3, TotalQuestions: 5, Date: testDate, Rank: 1}, result)
}

func TestSubmitAttemptScenarioRanksBehindEarlierTie(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	engine := newTestEngine(memory.NewKVStore(0), clock)
	quiz := scenarioQuiz()

	_, err := engine.SubmitAttempt(ctx, quiz, "Aman", "u1", domain.Picks(0, 1, 2, 3, 0))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = engine.SubmitAttempt(ctx, quiz, "Sneha", "u2", domain.Picks(0, 1, 2, 3, 1))
	require.NoError(t, err)
	clock.Advance(time.Minute)

	result, err := engine.SubmitAttempt(ctx, quiz, "Rahul", "u3", domain.Picks(0, 1, 0, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Score)
	assert.Equal(t, 3, result.Rank)

	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, lb.Attempts, 3)
	assert.Equal(t, []string{"Aman", "Sneha", "Rahul"}, []string{
		lb.Attempts[0].StudentName, lb.Attempts[1].StudentName, lb.Attempts[2].StudentName,
	})
}

func TestSubmitAttemptEarlierTieRanksAhead(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := memory.NewKVStore(0)

	// Seed a later score-4 entry directly, then submit an earlier one.
	seed := domain.Leaderboard{Date: testDate}
	seed.Insert(domain.QuizAttempt{ID: "late", StudentName: "Late", Score: 4, Total: 5, SubmittedAt: clock.Now().Add(time.Hour)})
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, domain.LeaderboardKey(testDate), data))

	engine := newTestEngine(store, clock)
	result, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Priya", "u4", domain.Picks(0, 1, 0, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rank)
}

func TestSubmitAttemptKeepsSelectionsAsSubmitted(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())
	selections := []domain.Selection{domain.Pick(0), domain.Unanswered(), domain.Pick(7)}

	result, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", selections)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)

	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, lb.Attempts, 1)
	assert.Equal(t, selections, lb.Attempts[0].Answers)
	assert.NotEmpty(t, lb.Attempts[0].ID)
	assert.Equal(t, "u1", lb.Attempts[0].UserID)
}

func TestSubmitAttemptZeroQuestionQuiz(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())

	result, err := engine.SubmitAttempt(ctx, domain.Quiz{Date: testDate}, "Aman", "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0, result.TotalQuestions)
	assert.Equal(t, 1, result.Rank)
}

func TestSubmitAttemptRejectsSecondSubmission(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())

	_, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0))
	require.NoError(t, err)
	_, err = engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0, 1, 2, 3, 0))
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)

	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, lb.Attempts, 1)
}

func TestSubmitAttemptExactTieKeepsBothEntries(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())

	_, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "A", "u1", domain.Picks(0, 1))
	require.NoError(t, err)
	_, err = engine.SubmitAttempt(ctx, scenarioQuiz(), "B", "u2", domain.Picks(0, 1))
	require.NoError(t, err)

	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, lb.Attempts, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, []string{lb.Attempts[0].StudentName, lb.Attempts[1].StudentName})
	for _, a := range lb.Attempts {
		assert.Equal(t, 2, a.Score)
	}
}

func TestLeaderboardOrderingInvariantAcrossManySubmissions(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	engine := newTestEngine(memory.NewKVStore(0), clock)
	picks := [][]int{{0}, {0, 1, 2, 3, 0}, {1, 1}, {0, 1, 2}, {0, 1, 2, 3}, {3, 3, 3, 3, 3}, {0, 1, 2}, {0, 0, 0, 0, 0}}

	for i, p := range picks {
		clock.Advance(time.Second)
		result, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "s", string(rune('a'+i)), domain.Picks(p...))
		require.NoError(t, err)

		lb, err := engine.Leaderboard(ctx, testDate)
		require.NoError(t, err)
		for j := 1; j < len(lb.Attempts); j++ {
			prev, cur := lb.Attempts[j-1], lb.Attempts[j]
			if prev.Score == cur.Score {
				assert.False(t, cur.SubmittedAt.Before(prev.SubmittedAt))
			} else {
				assert.Greater(t, prev.Score, cur.Score)
			}
		}
		ahead := 0
		for _, a := range lb.Attempts {
			if a.Score > result.Score || (a.Score == result.Score && a.SubmittedAt.Before(clock.Now())) {
				ahead++
			}
		}
		assert.Equal(t, ahead+1, result.Rank)
	}
}

func TestGetResultForDate(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())

	_, ok, err := engine.GetResultForDate(ctx, testDate, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	submitted, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0, 1, 2))
	require.NoError(t, err)

	first, ok, err := engine.GetResultForDate(ctx, testDate, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	second, _, err := engine.GetResultForDate(ctx, testDate, "u1")
	require.NoError(t, err)
	assert.Equal(t, submitted, first)
	assert.Equal(t, first, second)
}

func TestResultIsNotUpdatedByLaterSubmissions(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	engine := newTestEngine(memory.NewKVStore(0), clock)

	_, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = engine.SubmitAttempt(ctx, scenarioQuiz(), "Sneha", "u2", domain.Picks(0, 1, 2, 3, 0))
	require.NoError(t, err)

	result, ok, err := engine.GetResultForDate(ctx, testDate, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, result.Rank)
}

func TestSubmitForDateWithoutQuiz(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore(0)
	clock := newTestClock()
	provider := app.NewQuizProvider(store, nil, app.WithProviderClock(clock.Now))
	engine := app.NewQuizEngine(store, provider, app.WithClock(clock.Now))

	_, err := engine.SubmitForDate(ctx, testDate, "Aman", "u1", domain.Picks(0))
	assert.ErrorIs(t, err, domain.ErrQuizNotReady)
	assert.Equal(t, 0, store.Len())
}

func TestSubmitForDateUsesProvidedQuiz(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())

	result, err := engine.SubmitForDate(ctx, engine.Today(), "Aman", "u1", domain.Picks(0, 1, 2, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Score)
}

func TestSubmitForDateOnlyAcceptsToday(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore(0)
	engine := newTestEngine(store, newTestClock())

	for _, date := range []string{"2026-10-18", "2026-12-25"} {
		_, err := engine.SubmitForDate(ctx, date, "Aman", "u1", domain.Picks(0))
		assert.ErrorIs(t, err, domain.ErrDateNotOpen, date)
	}
	assert.Equal(t, 0, store.Len())
}

func TestQuizForStudent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore(0)
	clock := newTestClock()
	provider := app.NewQuizProvider(store, []app.QuizSource{
		memory.NewBankQuizSource(memory.SampleBank()),
	}, app.WithProviderClock(clock.Now))
	engine := app.NewQuizEngine(store, provider, app.WithClock(clock.Now))

	quiz, err := engine.QuizForStudent(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, testDate, quiz.Date)

	_, err = engine.QuizForStudent(ctx, "2026-10-20")
	assert.ErrorIs(t, err, domain.ErrDateNotOpen)
	_, err = engine.QuizForStudent(ctx, "2026-10-18")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)

	// Neither lookup produced a quiz for another day.
	_, ok, err := provider.Stored(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = provider.Stored(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(24 * time.Hour)
	past, err := engine.QuizForStudent(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, quiz, past)
}

func TestSubmitAttemptRejectsUserAlreadyOnBoard(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := memory.NewKVStore(0)

	// Board entry without a cached result, as after the result key is lost.
	seed := domain.Leaderboard{Date: testDate}
	seed.Insert(domain.QuizAttempt{ID: "a1", StudentName: "Aman", UserID: "u1", Score: 5, Total: 5, SubmittedAt: clock.Now()})
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, domain.LeaderboardKey(testDate), data))

	engine := newTestEngine(store, clock)
	_, err = engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0))
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)

	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, lb.Attempts, 1)
}

// failingStore rejects batch writes and counts them.
type failingStore struct {
	*memory.KVStore
	batches int
}

func (s *failingStore) SetBatch(context.Context, map[string][]byte) error {
	s.batches++
	return errors.New("quota exceeded")
}

func TestSubmitAttemptPersistenceFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{KVStore: memory.NewKVStore(0)}
	engine := newTestEngine(store, newTestClock())

	_, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 1, store.batches)

	_, ok, err := engine.GetResultForDate(ctx, testDate, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	assert.Empty(t, lb.Attempts)
}

func TestSubmitAttemptInvalidDate(t *testing.T) {
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())
	quiz := scenarioQuiz()
	quiz.Date = ""
	_, err := engine.SubmitAttempt(context.Background(), quiz, "Aman", "u1", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(memory.NewKVStore(0), newTestClock())

	ch, cancel, err := engine.Subscribe(ctx, testDate)
	require.NoError(t, err)
	defer cancel()

	initial := <-ch
	assert.Equal(t, testDate, initial.Date)
	assert.Empty(t, initial.Entries)

	_, err = engine.SubmitAttempt(ctx, scenarioQuiz(), "Aman", "u1", domain.Picks(0, 1))
	require.NoError(t, err)

	select {
	case update := <-ch:
		require.Len(t, update.Entries, 1)
		assert.Equal(t, 2, update.Entries[0].Score)
		assert.Equal(t, 1, update.Entries[0].Rank)
	case <-time.After(time.Second):
		t.Fatal("expected leaderboard update")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlockSubmissions(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	engine := newTestEngine(memory.NewKVStore(0), clock)

	ch, cancel, err := engine.Subscribe(ctx, testDate)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 20; i++ {
		clock.Advance(time.Second)
		_, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "s", string(rune('a'+i)), domain.Picks(0))
		require.NoError(t, err)
	}

	var last domain.LeaderboardView
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, 20, last.Count)
	assert.Len(t, last.Entries, app.DefaultLeaderboardTop)
}

func TestLeaderboardViewTruncates(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	engine := newTestEngine(memory.NewKVStore(0), clock)
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		_, err := engine.SubmitAttempt(ctx, scenarioQuiz(), "s", string(rune('a'+i)), domain.Picks(0))
		require.NoError(t, err)
	}

	view, err := engine.LeaderboardView(ctx, testDate, 2)
	require.NoError(t, err)
	assert.Len(t, view.Entries, 2)
	assert.Equal(t, 4, view.Count)

	lb, err := engine.Leaderboard(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, lb.Attempts, 4)
}
