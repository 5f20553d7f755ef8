package mention

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/domain"
)

// tagPattern matches the canonical inline reference markup, e.g. @[ticket:42].
var tagPattern = regexp.MustCompile(`@\[(ticket|message|customer|employee|template|team):([A-Za-z0-9_-]+)\]`)

// Tag renders the canonical markup for an entity reference.
func Tag(ref domain.EntityRef) string {
	return fmt.Sprintf("@[%s:%s]", ref.Kind, ref.ID)
}

// ExtractIDs collects every tagged reference in text, deduplicated per kind.
func ExtractIDs(text string) domain.EntityIDSet {
	set := domain.EntityIDSet{}
	for _, match := range tagPattern.FindAllStringSubmatch(text, -1) {
		set.Add(domain.EntityKind(match[1]), match[2])
	}
	return set
}

// displayNouns maps a kind to the label used in model-facing expansions.
var displayNouns = map[domain.EntityKind]string{
	domain.KindTicket:   "Ticket",
	domain.KindMessage:  "Message",
	domain.KindCustomer: "Customer",
	domain.KindEmployee: "Employee",
	domain.KindTemplate: "Template",
	domain.KindTeam:     "Team",
}

// Expand replaces every tag in text with a materialized record block for the
// completion capability. A tag whose id did not resolve degrades to plain
// text so the model is never handed a dangling reference; the drop is logged.
// The stored user-facing text keeps the tags and is never expanded in place.
func Expand(text string, resolved Set, logger *zap.Logger) string {
	return tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		match := tagPattern.FindStringSubmatch(tag)
		kind, id := domain.EntityKind(match[1]), match[2]
		if entity, ok := resolved.Get(kind, id); ok {
			return fmt.Sprintf("%s: %s", displayNouns[kind], entity.Record)
		}
		if logger != nil {
			logger.Warn("unresolved mention dropped from expansion",
				zap.String("kind", string(kind)),
				zap.String("id", id))
		}
		return id
	})
}

// kindKeywords are the trailing keywords recognized during compaction.
var kindKeywords = map[string]domain.EntityKind{
	"ticket":   domain.KindTicket,
	"message":  domain.KindMessage,
	"customer": domain.KindCustomer,
	"employee": domain.KindEmployee,
	"template": domain.KindTemplate,
	"team":     domain.KindTeam,
}

// CompactTrailing rewrites a partial reference at the end of text into the
// canonical tag. A partial reference is "@<label words> <kind keyword>", e.g.
// "please close @Printer down ticket"; the span from the last "@" through the
// trailing keyword collapses to @[ticket:<id>]. Returns false when the text
// does not end in a recognized kind keyword or carries no "@" anchor.
func CompactTrailing(text, id string) (string, bool) {
	trimmed := strings.TrimRight(text, " ")
	lastSpace := strings.LastIndex(trimmed, " ")
	if lastSpace < 0 {
		return text, false
	}
	kind, ok := kindKeywords[strings.ToLower(trimmed[lastSpace+1:])]
	if !ok {
		return text, false
	}
	at := strings.LastIndex(trimmed[:lastSpace], "@")
	if at < 0 {
		return text, false
	}
	tag := Tag(domain.EntityRef{Kind: kind, ID: id})
	return trimmed[:at] + tag, true
}
