package notify

import (
	"context"
	"sync"
)

// Recorder keeps every event in memory. Tests use it to assert emissions.
type Recorder struct {
	mu        sync.Mutex
	Confirmed []BookingEvent
	Cancelled []BookingEvent
	Completed []SplitEvent
}

func (r *Recorder) BookingConfirmed(_ context.Context, event BookingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirmed = append(r.Confirmed, event)
}

func (r *Recorder) BookingCancelled(_ context.Context, event BookingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cancelled = append(r.Cancelled, event)
}

func (r *Recorder) SplitPaymentCompleted(_ context.Context, event SplitEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Completed = append(r.Completed, event)
}

// Counts returns the number of confirmed, cancelled and split-completed events.
func (r *Recorder) Counts() (confirmed, cancelled, completed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Confirmed), len(r.Cancelled), len(r.Completed)
}
