package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/memvault/ai"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/search"
)

// NoteSource lists an owner's decrypted notes, newest first.
type NoteSource interface {
	List(ctx context.Context, owner core.OwnerID) ([]*core.Note, error)
}

// Citation points at a ranked note backing an answer.
type Citation struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Answer is the result of a question.
type Answer struct {
	AnswerText string         `json:"answerText"`
	Citations  []Citation     `json:"citations"`
	FollowUps  []string       `json:"followUps"`
	Withheld   int            `json:"withheld"`
	Filters    search.Filters `json:"filters"`
}

// Synthesizer answers questions over an owner's notes: it ranks them, hands
// the best excerpts to the generator once and returns the reply with
// citations.
type Synthesizer struct {
	notes     NoteSource
	ranker    *search.Ranker
	generator ai.Generator
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "answer")
		return nil
	}
}

// NewSynthesizer creates a new synthesizer.
func NewSynthesizer(notes NoteSource, ranker *search.Ranker, generator ai.Generator, opts ...Option) (*Synthesizer, error) {
	if notes == nil {
		return nil, ErrNoteSourceRequired
	}
	if ranker == nil {
		return nil, ErrRankerRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Synthesizer{
		notes:     notes,
		ranker:    ranker,
		generator: generator,
		logger:    slog.Default().With("component", "answer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Ask answers question from owner's notes. base carries caller-supplied
// filters and may be nil.
func (s *Synthesizer) Ask(ctx context.Context, owner core.OwnerID, question string, base *search.Filters) (*Answer, error) {
	return s.AskMonitored(ctx, owner, question, base, nil)
}

// AskMonitored is Ask with a monitor observing the ranking stages.
func (s *Synthesizer) AskMonitored(ctx context.Context, owner core.OwnerID, question string, base *search.Filters, monitor search.Monitor) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrInvalidQuestion
	}
	if err := core.ValidateOwner(owner); err != nil {
		return nil, err
	}

	all, err := s.notes.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	visible := make([]*core.Note, 0, len(all))
	for _, n := range all {
		if !n.Redacted {
			visible = append(visible, n)
		}
	}
	withheld := len(all) - len(visible)
	if withheld > 0 {
		s.logger.Warn("notes withheld from answer", "owner", owner, "count", withheld)
	}

	result, err := s.ranker.Search(ctx, question, base, visible, monitor)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(question, result.WorkingSet)
	reply, err := s.generator.Complete(ctx, []ai.Message{{Role: ai.RoleHuman, Content: prompt}})
	if err != nil {
		s.logger.Error("error generating answer", "err", err)
		return nil, err
	}

	limit := min(len(result.Ranked), s.ranker.Policy().WorkingSetLimit)
	citations := make([]Citation, limit)
	for i, c := range result.Ranked[:limit] {
		citations[i] = Citation{
			ID:    c.Note.Id.String(),
			Title: c.Note.Title,
			Score: c.Score,
		}
	}

	return &Answer{
		AnswerText: strings.TrimSpace(reply),
		Citations:  citations,
		FollowUps:  []string{},
		Withheld:   withheld,
		Filters:    result.Filters,
	}, nil
}
