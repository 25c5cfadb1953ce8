package review

import "github.com/dshills/funnel/internal/model"

// DefaultMaxAttempts bounds analyze calls per file, the first included.
const DefaultMaxAttempts = 3

// Phase is a state of the per-file review machine.
type Phase int

const (
	PhaseAnalyzing Phase = iota
	PhaseRetrieving
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseRetrieving:
		return "retrieving"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// State is the review state of one file. Targets and GlobalContext are fixed
// at creation; Retrieved only grows.
type State struct {
	File          string
	Targets       []model.Chunk
	GlobalContext string

	Phase          Phase
	Retrieved      []string
	UnknownSymbols []string
	LoopCount      int
	Attempts       int
	FinalReport    string
	Failed         bool

	// Draft is the latest report text from an incomplete analyze step. It
	// becomes the report if the run ends without a conclusive one.
	Draft string

	found   map[string]bool
	missing map[string]bool
}

// NewState creates the entry state for file.
func NewState(file string, targets []model.Chunk, globalContext string) *State {
	return &State{
		File:          file,
		Targets:       targets,
		GlobalContext: globalContext,
		Phase:         PhaseAnalyzing,
		found:         make(map[string]bool),
		missing:       make(map[string]bool),
	}
}

// next picks the phase that follows an analyze step. Every incomplete step
// increments LoopCount, so the machine reaches PhaseDone within maxAttempts
// analyze calls.
func (s *State) next(maxAttempts int) Phase {
	switch {
	case s.FinalReport != "":
		return PhaseDone
	case s.LoopCount >= maxAttempts:
		return PhaseDone
	default:
		return PhaseRetrieving
	}
}

// Unresolved lists symbols already searched without success, in sorted order.
func (s *State) Unresolved() []string {
	return sortedKeys(s.missing)
}
