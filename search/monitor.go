package search

// Monitor provides hooks to observe a search.
// Implement this interface to trace intermediate steps, for example to explain
// a ranking on the command line.
type Monitor interface {
	Start(question string)
	AfterFilterExtraction(filters Filters)
	AfterDateFilter(kept, dropped int)
	Scored(candidate *ScoredCandidate)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) AfterFilterExtraction(_ Filters) {}
func (n *noopMonitor) AfterDateFilter(_, _ int)        {}
func (n *noopMonitor) Scored(_ *ScoredCandidate)       {}
func (n *noopMonitor) Finish(_ *Result)                {}
