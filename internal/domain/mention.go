package domain

// EntityKind discriminates the closed set of mentionable entity kinds.
// Customer and employee are distinct tool-facing kinds that resolve against
// the same persons table; only the display tag differs.
type EntityKind string

const (
	KindTicket   EntityKind = "ticket"
	KindMessage  EntityKind = "message"
	KindCustomer EntityKind = "customer"
	KindEmployee EntityKind = "employee"
	KindTemplate EntityKind = "template"
	KindTeam     EntityKind = "team"
)

// EntityKinds lists every mentionable kind.
var EntityKinds = []EntityKind{
	KindTicket, KindMessage, KindCustomer, KindEmployee, KindTemplate, KindTeam,
}

// ValidEntityKind reports whether k names a known kind.
func ValidEntityKind(k EntityKind) bool {
	for _, known := range EntityKinds {
		if known == k {
			return true
		}
	}
	return false
}

// EntityRef points at one domain entity by kind and id. Immutable once
// created; used both as agent context key and as display anchor.
type EntityRef struct {
	Kind EntityKind
	ID   string
}
