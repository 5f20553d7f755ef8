package domain

import "time"

// Message captures one communication in a ticket thread.
type Message struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// MessageTemplate is a canned reply employees and the agent can reference.
type MessageTemplate struct {
	ID        string
	Name      string
	Subject   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
