package search

import "fmt"

// Policy holds the tunable ranking constants. The zero value is not useful;
// start from DefaultPolicy.
type Policy struct {
	TagBoostPerMatch   float64
	TagBoostMax        float64
	DueBoost           float64
	PriorityBoost      float64
	LexicalBoostMax    float64
	FocusBoostPerMatch float64
	FocusBoostMax      float64

	// FocusMinTokenLen drops short text-query tokens from focus matching.
	FocusMinTokenLen int

	// RankedLimit bounds the ranked list (and citations); WorkingSetLimit
	// bounds the excerpts handed to generation.
	RankedLimit     int
	WorkingSetLimit int
}

// DefaultPolicy returns the production ranking constants.
func DefaultPolicy() Policy {
	return Policy{
		TagBoostPerMatch:   0.04,
		TagBoostMax:        0.08,
		DueBoost:           0.06,
		PriorityBoost:      0.05,
		LexicalBoostMax:    0.20,
		FocusBoostPerMatch: 0.15,
		FocusBoostMax:      0.30,
		FocusMinTokenLen:   3,
		RankedLimit:        12,
		WorkingSetLimit:    8,
	}
}

// Validate rejects negative boosts and a working set wider than the ranked list.
func (p Policy) Validate() error {
	for name, v := range map[string]float64{
		"TagBoostPerMatch":   p.TagBoostPerMatch,
		"TagBoostMax":        p.TagBoostMax,
		"DueBoost":           p.DueBoost,
		"PriorityBoost":      p.PriorityBoost,
		"LexicalBoostMax":    p.LexicalBoostMax,
		"FocusBoostPerMatch": p.FocusBoostPerMatch,
		"FocusBoostMax":      p.FocusBoostMax,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidPolicy, name)
		}
	}
	if p.RankedLimit <= 0 || p.WorkingSetLimit <= 0 {
		return fmt.Errorf("%w: limits must be positive", ErrInvalidPolicy)
	}
	if p.WorkingSetLimit > p.RankedLimit {
		return fmt.Errorf("%w: WorkingSetLimit exceeds RankedLimit", ErrInvalidPolicy)
	}
	return nil
}
