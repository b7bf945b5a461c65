package channel

import "time"

// PendingWait is a parked query. It is resolved at most once; done is
// guarded by the owning channel's mutex.
type PendingWait struct {
	registeredAt time.Time
	resolve      func([]Message)
	done         bool
}

func (w *PendingWait) RegisteredAt() time.Time {
	return w.registeredAt
}

// claim marks the wait completed and reports whether the caller now owns
// its resolution.
func (w *PendingWait) claim() bool {
	if w.done {
		return false
	}
	w.done = true
	return true
}

type delivery struct {
	wait     *PendingWait
	messages []Message
}
