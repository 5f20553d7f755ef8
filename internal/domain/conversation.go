package domain

import "time"

// Conversation groups ordered turns between one operator and the agent.
type Conversation struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one message within a conversation. Turns are append-only.
type Turn struct {
	ID             string
	ConversationID string
	Content        string
	IsAI           bool
	EntityIDs      EntityIDSet
	CreatedAt      time.Time
}

// EntityIDSet lists mentioned entity ids grouped by kind.
type EntityIDSet map[EntityKind][]string

// Add records an id under a kind, skipping duplicates.
func (s EntityIDSet) Add(kind EntityKind, id string) {
	for _, existing := range s[kind] {
		if existing == id {
			return
		}
	}
	s[kind] = append(s[kind], id)
}

// Empty reports whether no ids are present for any kind.
func (s EntityIDSet) Empty() bool {
	for _, ids := range s {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}
