package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/poiesic/memvault/ai"
	"github.com/poiesic/memvault/core"
)

// Boosts breaks a candidate's score into its parts.
type Boosts struct {
	Base     float64 `json:"base"`
	Tag      float64 `json:"tag"`
	Due      float64 `json:"due"`
	Priority float64 `json:"priority"`
	Lexical  float64 `json:"lexical"`
	Focus    float64 `json:"focus"`
}

// Total is the candidate score.
func (b Boosts) Total() float64 {
	return b.Base + b.Tag + b.Due + b.Priority + b.Lexical + b.Focus
}

// ScoredCandidate is a note with its canonical block and score breakdown.
type ScoredCandidate struct {
	Note   *core.Note
	Block  string
	Score  float64
	Boosts Boosts
}

// Result holds the ranked candidates. WorkingSet is a prefix of Ranked.
type Result struct {
	Filters    Filters
	Ranked     []*ScoredCandidate
	WorkingSet []*ScoredCandidate
}

// Ranker scores notes against a question using embeddings plus policy boosts.
type Ranker struct {
	embedder ai.Embedder
	policy   Policy
	logger   *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "ranker")
		return nil
	}
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(r *Ranker) error {
		if err := p.Validate(); err != nil {
			return err
		}
		r.policy = p
		return nil
	}
}

// NewRanker creates a new ranker.
func NewRanker(embedder ai.Embedder, opts ...Option) (*Ranker, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Ranker{
		embedder: embedder,
		policy:   DefaultPolicy(),
		logger:   slog.Default().With("component", "ranker"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Policy returns the policy in effect.
func (r *Ranker) Policy() Policy {
	return r.policy
}

// Search runs the full pipeline: filter extraction, the date filter, then
// ranking. notes should be ordered newest first so that ties favor recent
// notes. A nil monitor is allowed.
func (r *Ranker) Search(ctx context.Context, question string, base *Filters, notes []*core.Note, monitor Monitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(question)

	filters := ParseFilters(question, base)
	monitor.AfterFilterExtraction(filters)

	candidates := ApplyDateFilter(notes, filters)
	monitor.AfterDateFilter(len(candidates), len(notes)-len(candidates))

	result, err := r.rank(ctx, question, filters, candidates, monitor)
	if err != nil {
		return nil, err
	}
	monitor.Finish(result)
	return result, nil
}

// Rank scores notes that already passed filtering.
func (r *Ranker) Rank(ctx context.Context, question string, filters Filters, notes []*core.Note) (*Result, error) {
	return r.rank(ctx, question, filters, notes, &noopMonitor{})
}

func (r *Ranker) rank(ctx context.Context, question string, filters Filters, notes []*core.Note, monitor Monitor) (*Result, error) {
	candidates := make([]*core.Note, 0, len(notes))
	for _, n := range notes {
		if n.Redacted {
			continue
		}
		candidates = append(candidates, n)
	}
	if len(candidates) == 0 {
		return r.policy.cut(filters, nil), nil
	}

	blocks := make([]string, len(candidates))
	for i, n := range candidates {
		blocks[i] = Canonicalize(n)
	}

	docVecs, err := r.embedder.EmbedDocuments(ctx, blocks)
	if err != nil {
		r.logger.Error("error embedding candidates", "count", len(blocks), "err", err)
		return nil, err
	}
	queryVec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		r.logger.Error("error embedding question", "err", err)
		return nil, err
	}

	scored, err := r.policy.Score(question, filters, candidates, docVecs, queryVec)
	if err != nil {
		return nil, err
	}
	for _, c := range scored {
		monitor.Scored(c)
	}

	r.logger.Debug("ranked candidates", "candidates", len(scored))
	return r.policy.cut(filters, scored), nil
}

// Score computes every candidate's boosts and returns them sorted by score,
// highest first. The sort is stable, so equal scores keep input order.
// docVecs must be parallel to notes.
func (p Policy) Score(question string, filters Filters, notes []*core.Note, docVecs [][]float32, queryVec []float32) ([]*ScoredCandidate, error) {
	if len(docVecs) != len(notes) {
		return nil, fmt.Errorf("%w: %d vectors for %d notes", ErrVectorCountMismatch, len(docVecs), len(notes))
	}

	questionTokens := Tokenize(question)
	requestedTags := lowerSet(filters.Tags)
	priorities := lowerSet(filters.Priority)
	focus := p.focusTokens(filters.TextQuery)

	scored := make([]*ScoredCandidate, len(notes))
	for i, n := range notes {
		block := Canonicalize(n)
		tokens := Tokenize(block)
		noteTokens := toSet(tokens)

		b := Boosts{Base: CosineSimilarity(docVecs[i], queryVec)}

		if len(requestedTags) > 0 {
			overlap := 0
			for tag := range lowerSet(n.Tags) {
				if _, ok := requestedTags[tag]; ok {
					overlap++
				}
			}
			b.Tag = math.Min(p.TagBoostMax, float64(overlap)*p.TagBoostPerMatch)
		}
		if filters.DueOnly && n.SetDueDate {
			b.Due = p.DueBoost
		}
		if _, ok := priorities[n.Priority.Label()]; ok {
			b.Priority = p.PriorityBoost
		}
		b.Lexical = math.Min(p.LexicalBoostMax, Jaccard(questionTokens, tokens))
		if len(focus) > 0 {
			overlap := 0
			for _, tok := range focus {
				if _, ok := noteTokens[tok]; ok {
					overlap++
				}
			}
			b.Focus = math.Min(p.FocusBoostMax, float64(overlap)*p.FocusBoostPerMatch)
		}

		scored[i] = &ScoredCandidate{
			Note:   n,
			Block:  block,
			Score:  b.Total(),
			Boosts: b,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}

// focusTokens returns the distinct text-query tokens long enough to count.
func (p Policy) focusTokens(textQuery string) []string {
	var focus []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(textQuery) {
		if len(tok) < p.FocusMinTokenLen {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		focus = append(focus, tok)
	}
	return focus
}

func (p Policy) cut(filters Filters, scored []*ScoredCandidate) *Result {
	ranked := scored[:min(len(scored), p.RankedLimit)]
	working := ranked[:min(len(ranked), p.WorkingSetLimit)]
	if ranked == nil {
		ranked = []*ScoredCandidate{}
		working = []*ScoredCandidate{}
	}
	return &Result{
		Filters:    filters,
		Ranked:     ranked,
		WorkingSet: working,
	}
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}
