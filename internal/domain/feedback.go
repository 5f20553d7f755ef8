package domain

import "time"

// TicketFeedback is created once per ticket the first time it enters a
// resolved or closed status, with rating and feedback filled in later by the
// ticket's original creator.
type TicketFeedback struct {
	ID        string
	TicketID  string
	CreatedBy string
	Rating    *int
	Feedback  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Submitted reports whether the creator has already filled in the record.
func (f *TicketFeedback) Submitted() bool {
	return f != nil && (f.Rating != nil || f.Feedback != nil)
}
