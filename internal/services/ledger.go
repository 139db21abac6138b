package services

import "giveaway/internal/models"

// EntryLedger tracks who has entered the current lottery and with how many tickets.
// A participant's weight is fixed the first time they are seen and always lies in
// [1, models.MaxMultiplierWeight].
type EntryLedger struct {
	weights map[string]int
	total   int
}

// NewEntryLedger creates a ledger seeded with previously recorded entries.
func NewEntryLedger(seed map[string]int) *EntryLedger {
	l := &EntryLedger{weights: make(map[string]int, len(seed))}
	for id, w := range seed {
		w = models.ClampWeight(w)
		l.weights[id] = w
		l.total += w
	}
	return l
}

// Add records a participant. It reports false if the participant was already present,
// in which case the stored weight is left untouched.
func (l *EntryLedger) Add(participantID string, weight int) bool {
	if _, ok := l.weights[participantID]; ok {
		return false
	}
	weight = models.ClampWeight(weight)
	l.weights[participantID] = weight
	l.total += weight
	return true
}

// Len is the number of unique participants.
func (l *EntryLedger) Len() int {
	return len(l.weights)
}

// Total is the number of weighted entries.
func (l *EntryLedger) Total() int {
	return l.total
}

// Weights returns a copy of the participant -> weight map.
func (l *EntryLedger) Weights() map[string]int {
	out := make(map[string]int, len(l.weights))
	for id, w := range l.weights {
		out[id] = w
	}
	return out
}

// Reset drops every entry.
func (l *EntryLedger) Reset() {
	l.weights = make(map[string]int)
	l.total = 0
}
