package dashboard

import (
	"strings"
	"unicode"

	"classline/internal/config"
	"classline/internal/domain"
)

// Classifier turns free-text labels and event types into categories,
// priorities and normalized feed text. All matching is ordered,
// lowercase substring, first match wins; the rule order is part of the
// contract.
type Classifier struct {
	categories         []config.MatchRule
	deadlineCategories []config.MatchRule
	priorities         []config.MatchRule
	verbs              []config.MatchRule
	systemPhrases      []string
}

// actionVerbs are the leading verbs a feed entry may already carry; a
// text starting with one of these is kept as-is apart from
// capitalization.
var actionVerbs = []string{"added", "created", "deleted", "edited", "completed", "reopened", "graded"}

func NewClassifier(cfg *config.Config) *Classifier {
	return &Classifier{
		categories:         cfg.Classification.Categories,
		deadlineCategories: cfg.Classification.DeadlineCategories,
		priorities:         cfg.Classification.Priorities,
		verbs:              cfg.Classification.Verbs,
		systemPhrases:      cfg.Classification.SystemPhrases,
	}
}

func firstMatch(rules []config.MatchRule, text, fallback string) string {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		if strings.Contains(lowered, strings.ToLower(r.Contains)) {
			return r.Value
		}
	}
	return fallback
}

// EventCategory maps a calendar event type onto a feed category.
func (c *Classifier) EventCategory(eventType string) string {
	return firstMatch(c.categories, eventType, "other")
}

// DeadlineCategory derives a deadline bucket from its label.
func (c *Classifier) DeadlineCategory(label string) string {
	return firstMatch(c.deadlineCategories, label, "other")
}

// Priority derives a deadline priority from its label.
func (c *Classifier) Priority(label string) string {
	return firstMatch(c.priorities, label, "medium")
}

// IsDeadline reports whether an event feeds the progress calculator
// rather than the generic feed.
func (c *Classifier) IsDeadline(ev domain.CalendarEvent) bool {
	if ev.Type == "deadline" {
		return true
	}
	return strings.Contains(strings.ToLower(ev.Label), "deadline")
}

// IsSystemPhrase reports whether a log entry is dashboard-internal
// housekeeping that must never reach the user-facing feed.
func (c *Classifier) IsSystemPhrase(text string) bool {
	lowered := strings.ToLower(text)
	for _, p := range c.systemPhrases {
		if strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// NormalizeText ensures a feed entry reads as a completed action: if
// the text does not already start with a recognized verb, one is
// inferred from the keyword rules and prefixed, then the first letter
// is capitalized.
func (c *Classifier) NormalizeText(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return trimmed
	}
	first := strings.ToLower(strings.Fields(trimmed)[0])
	for _, v := range actionVerbs {
		if first == v {
			return capitalize(trimmed)
		}
	}
	verb := firstMatch(c.verbs, trimmed, "Created")
	return capitalize(verb + " " + trimmed)
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
