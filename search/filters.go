package search

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/memvault/core"
)

// Filters narrow and steer ranking. Only the date bounds exclude notes;
// everything else nudges scores.
type Filters struct {
	DateFrom  *time.Time `json:"dateFrom,omitempty"`
	DateTo    *time.Time `json:"dateTo,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Priority  []string   `json:"priority,omitempty"`
	DueOnly   bool       `json:"dueOnly,omitempty"`
	TextQuery string     `json:"textQuery,omitempty"`
}

var (
	// The alternation is intentionally unanchored on the inner terms, so
	// "duedate" and "overdue" both count.
	dueRule          = regexp.MustCompile(`(?i)\bdue|overdue|deadline\b`)
	highPriorityRule = regexp.MustCompile(`(?i)\bhigh[- ]?priority\b`)
	tagRule          = regexp.MustCompile(`(?i)tag:"([^"]+)"|tag:(\S+)`)
	taggedRule       = regexp.MustCompile(`(?i)\btagged\s+"([^"]+)"|\btagged\s+([a-zA-Z0-9_-]+)`)
	quotedRule       = regexp.MustCompile(`"([^"]+)"`)
	containsRule     = regexp.MustCompile(`(?i)\bcontains?\s+([a-zA-Z0-9_-]+)`)
	includesRule     = regexp.MustCompile(`(?i)\bincludes?\s+([a-zA-Z0-9_-]+)`)
)

// ParseFilters infers filters from question and merges them into a copy of
// base. Inferred values are unioned with the caller's, never replacing them.
// Date bounds only ever come from base.
func ParseFilters(question string, base *Filters) Filters {
	var f Filters
	if base != nil {
		f = base.clone()
	}

	if dueRule.MatchString(question) {
		f.DueOnly = true
	}
	if highPriorityRule.MatchString(question) {
		f.Priority = appendUnique(f.Priority, core.PriorityHigh.Label())
	}

	for _, m := range tagRule.FindAllStringSubmatch(question, -1) {
		f.Tags = appendUnique(f.Tags, firstGroup(m))
	}
	for _, m := range taggedRule.FindAllStringSubmatch(question, -1) {
		f.Tags = appendUnique(f.Tags, firstGroup(m))
	}

	var terms []string
	for _, m := range quotedRule.FindAllStringSubmatch(question, -1) {
		terms = append(terms, m[1])
	}
	if m := containsRule.FindStringSubmatch(question); m != nil {
		terms = append(terms, m[1])
	}
	if m := includesRule.FindStringSubmatch(question); m != nil {
		terms = append(terms, m[1])
	}

	inferred := joinTerms(terms)
	switch {
	case inferred == "":
	case f.TextQuery == "":
		f.TextQuery = inferred
	default:
		f.TextQuery = strings.TrimSpace(f.TextQuery) + " " + inferred
	}
	return f
}

// ApplyDateFilter keeps notes created within [DateFrom, DateTo]. Notes
// without a creation time always pass.
func ApplyDateFilter(notes []*core.Note, f Filters) []*core.Note {
	if f.DateFrom == nil && f.DateTo == nil {
		return notes
	}
	kept := make([]*core.Note, 0, len(notes))
	for _, n := range notes {
		if !n.CreatedAt.IsZero() {
			if f.DateFrom != nil && n.CreatedAt.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && n.CreatedAt.After(*f.DateTo) {
				continue
			}
		}
		kept = append(kept, n)
	}
	return kept
}

func (f Filters) clone() Filters {
	c := f
	c.Tags = slices.Clone(f.Tags)
	c.Priority = slices.Clone(f.Priority)
	if f.DateFrom != nil {
		from := *f.DateFrom
		c.DateFrom = &from
	}
	if f.DateTo != nil {
		to := *f.DateTo
		c.DateTo = &to
	}
	return c
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func appendUnique(list []string, value string) []string {
	if value == "" || slices.Contains(list, value) {
		return list
	}
	return append(list, value)
}

func joinTerms(terms []string) string {
	kept := terms[:0]
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}
