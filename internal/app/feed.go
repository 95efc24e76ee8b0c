package app

import (
	"sync"

	"sanad-exam-service/internal/domain"
)

// ReviewEvent is one committed modification, as broadcast to reviewer
// dashboards.
type ReviewEvent struct {
	GroupID    string              `json:"groupId"`
	AttemptID  string              `json:"attemptId"`
	ModifiedBy string              `json:"modifiedBy"`
	ModifiedAt string              `json:"modifiedAt"`
	Sequence   int                 `json:"sequence"`
	Percentage float64             `json:"percentage"`
	IsPassed   bool                `json:"isPassed"`
	State      domain.AttemptState `json:"state"`
}

// ReviewFeed is an in-process broadcast hub for modification events.
type ReviewFeed struct {
	mu          sync.Mutex
	subscribers map[chan ReviewEvent]struct{}
}

func NewReviewFeed() *ReviewFeed {
	return &ReviewFeed{subscribers: make(map[chan ReviewEvent]struct{})}
}

// Subscribe registers a listener. The caller must invoke the returned
// cancel function to avoid leaks.
func (f *ReviewFeed) Subscribe() (<-chan ReviewEvent, func()) {
	ch := make(chan ReviewEvent, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber. A slow subscriber loses
// its oldest pending event rather than blocking the publisher.
func (f *ReviewFeed) Publish(ev ReviewEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
