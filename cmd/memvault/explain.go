package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/memvault/search"
)

// explainMonitor prints each ranking stage for `ask --explain`.
type explainMonitor struct {
	w io.Writer
}

func newExplainMonitor(w io.Writer) *explainMonitor {
	return &explainMonitor{w: w}
}

func (m *explainMonitor) Start(question string) {
	fmt.Fprintf(m.w, "question: %q\n", question)
}

func (m *explainMonitor) AfterFilterExtraction(f search.Filters) {
	fmt.Fprintf(m.w, "filters: due=%t tags=[%s] priority=[%s] text=%q\n",
		f.DueOnly, strings.Join(f.Tags, ", "), strings.Join(f.Priority, ", "), f.TextQuery)
}

func (m *explainMonitor) AfterDateFilter(kept, dropped int) {
	fmt.Fprintf(m.w, "date filter: kept %d, dropped %d\n", kept, dropped)
}

func (m *explainMonitor) Scored(c *search.ScoredCandidate) {
	b := c.Boosts
	fmt.Fprintf(m.w, "  %-8s %.3f = base %.3f + tag %.2f + due %.2f + priority %.2f + lexical %.3f + focus %.2f  %s\n",
		c.Note.Id, c.Score, b.Base, b.Tag, b.Due, b.Priority, b.Lexical, b.Focus, c.Note.Title)
}

func (m *explainMonitor) Finish(r *search.Result) {
	fmt.Fprintf(m.w, "ranked %d, working set %d\n\n", len(r.Ranked), len(r.WorkingSet))
}
