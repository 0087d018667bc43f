package search

import (
	"math"
	"strings"
	"time"

	"github.com/poiesic/memvault/core"
)

// Tokenize lowercases text, replaces everything but ASCII letters, digits and
// whitespace with spaces, and splits on whitespace.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\f', r == '\v':
			return r
		}
		return ' '
	}, lowered)
	return strings.Fields(cleaned)
}

// Jaccard returns |A ∩ B| / |A ∪ B| over the token sets, or 0 when both are
// empty.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// CosineSimilarity returns 0 for vectors of different length or zero
// magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Canonicalize renders the text block that is embedded and tokenized for a
// note. Metadata lines are included so ranking reacts to tags, due dates and
// priority as well as prose.
func Canonicalize(n *core.Note) string {
	lines := []string{n.Title, n.Body}
	if len(n.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(n.Tags, ", "))
	}
	if n.HasDueDate() {
		lines = append(lines, "Due: "+n.DueDate.UTC().Format(time.RFC3339))
	}
	if n.Priority != core.PriorityUnset {
		lines = append(lines, "Priority: "+n.Priority.Label())
	}
	if !n.CreatedAt.IsZero() {
		lines = append(lines, "Created: "+n.CreatedAt.UTC().Format(time.RFC3339))
	}

	kept := lines[:0]
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
