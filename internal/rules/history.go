package rules

// DefaultHistoryCap bounds the retained alert log.
const DefaultHistoryCap = 50

// History is a bounded, insertion-ordered log of fired alerts, newest
// first. Owned and mutated only by the ingestion loop.
type History struct {
	events []AlertEvent
	cap    int
}

// NewHistory constructs a history retaining at most capacity events.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity}
}

// Push prepends an event, discarding the oldest entries past the cap.
func (h *History) Push(event AlertEvent) {
	h.events = append([]AlertEvent{event}, h.events...)
	if len(h.events) > h.cap {
		h.events = h.events[:h.cap]
	}
}

// Recent returns the n most recently pushed events, newest first.
func (h *History) Recent(n int) []AlertEvent {
	if n > len(h.events) {
		n = len(h.events)
	}
	return h.events[:n]
}

// Len reports the number of retained events.
func (h *History) Len() int {
	return len(h.events)
}
