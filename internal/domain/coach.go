package domain

import "time"

// CoachState is the visual state of the coach button. It is always derived,
// never stored.
type CoachState string

const (
	CoachIdle       CoachState = "idle"
	CoachThinking   CoachState = "thinking"
	CoachSuggesting CoachState = "suggesting"
)

// Suggestion is the transient bubble shown next to the coach.
type Suggestion struct {
	Text   string    `json:"text"`
	Expiry time.Time `json:"expiry"`
}

// View is the main area the client shows.
type View string

const (
	ViewCanvas View = "canvas"
	ViewResume View = "resume"
)

// Anchor is where the coach bubble docks next to the active item.
type Anchor struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Banner is a transient error notice.
type Banner struct {
	Message string    `json:"message"`
	Expiry  time.Time `json:"expiry"`
}
