package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidStatus reports whether s is one of the allowed status values.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the allowed priority values.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// RequestsFeedback reports whether entering s triggers feedback creation.
func RequestsFeedback(s TicketStatus) bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	ExternalKey string
	Subject     string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Channel     string
	CreatedBy   string
	AssignedTo  *string
	TeamID      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketPatch carries the fields of a partial update. Nil means "leave as is".
type TicketPatch struct {
	Subject     *string
	Description *string
	Status      *TicketStatus
	Priority    *TicketPriority
	Channel     *string
	AssignedTo  *string
	TeamID      *string
}

// Empty reports whether the patch would change nothing.
func (p TicketPatch) Empty() bool {
	return p.Subject == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Channel == nil && p.AssignedTo == nil && p.TeamID == nil
}
