package app

import (
	"sync"

	"vidya-quiz-service/internal/domain"
)

// leaderboardHub fans out leaderboard snapshots to subscribers, keyed by date.
type leaderboardHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.LeaderboardView]struct{}
}

func newLeaderboardHub() *leaderboardHub {
	return &leaderboardHub{
		subscribers: make(map[string]map[chan domain.LeaderboardView]struct{}),
	}
}

// subscribe registers a channel primed with the initial snapshot.
// The returned cancel is idempotent and closes the channel.
func (h *leaderboardHub) subscribe(date string, initial domain.LeaderboardView) (<-chan domain.LeaderboardView, func()) {
	ch := make(chan domain.LeaderboardView, 8)
	ch <- initial

	h.mu.Lock()
	subs, ok := h.subscribers[date]
	if !ok {
		subs = make(map[chan domain.LeaderboardView]struct{})
		h.subscribers[date] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[date]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, date)
		}
	}
	return ch, cancel
}

func (h *leaderboardHub) broadcast(view domain.LeaderboardView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[view.Date] {
		select {
		case ch <- view:
		default:
			// Slow reader: replace the oldest snapshot rather than block the submitter.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (h *leaderboardHub) subscriberCount(date string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[date])
}
