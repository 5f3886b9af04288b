// Package coach implements the AI coach's background behavior: the debounced
// suggestion pipeline and the idle/thinking/suggesting state it drives.
package coach

import "resume-canvas/internal/domain"

// StateOf derives the coach state. A request in flight always shows as
// thinking; otherwise a displayed suggestion shows as suggesting.
func StateOf(loading, suggesting bool) domain.CoachState {
	switch {
	case loading:
		return domain.CoachThinking
	case suggesting:
		return domain.CoachSuggesting
	default:
		return domain.CoachIdle
	}
}

// Status is a point-in-time view of the coach. Rev increases with every
// change so subscribers can drop out-of-order notifications.
type Status struct {
	Rev        uint64             `json:"rev"`
	State      domain.CoachState  `json:"state"`
	PanelOpen  bool               `json:"panelOpen"`
	InFlight   int                `json:"inFlight"`
	Suggestion *domain.Suggestion `json:"suggestion,omitempty"`
}
