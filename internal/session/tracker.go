package session

import (
	"time"

	"github.com/vburojevic/adjust/internal/domain"
)

// Default intervals of the session state machine
const (
	DefaultSessionInterval    = 30 * time.Minute
	DefaultSubsessionInterval = time.Second
)

// Transition is what a foreground start did to the activity state
type Transition int

const (
	None Transition = iota
	FirstSession
	NewSession
	Subsession
	TimeTravel
)

func (t Transition) String() string {
	switch t {
	case FirstSession:
		return "first_session"
	case NewSession:
		return "session"
	case Subsession:
		return "subsession"
	case TimeTravel:
		return "time_travel"
	}
	return "none"
}

// StartsSession reports whether a session package must be sent
func (t Transition) StartsSession() bool {
	return t == FirstSession || t == NewSession
}

// Tracker decides session boundaries from the time elapsed since the last
// activity. It holds no state of its own; the caller owns the ActivityState
// and must not share it between goroutines.
type Tracker struct {
	sessionInterval    time.Duration
	subsessionInterval time.Duration
}

// NewTracker creates a tracker; zero intervals fall back to the defaults
func NewTracker(sessionInterval, subsessionInterval time.Duration) *Tracker {
	if sessionInterval <= 0 {
		sessionInterval = DefaultSessionInterval
	}
	if subsessionInterval <= 0 {
		subsessionInterval = DefaultSubsessionInterval
	}
	return &Tracker{
		sessionInterval:    sessionInterval,
		subsessionInterval: subsessionInterval,
	}
}

// SessionInterval returns the gap that starts a new session
func (t *Tracker) SessionInterval() time.Duration {
	return t.sessionInterval
}

// SubsessionInterval returns the gap that starts a new subsession
func (t *Tracker) SubsessionInterval() time.Duration {
	return t.subsessionInterval
}

// Classify returns the transition a start at now would make, and the elapsed
// time it is based on. A nil state is a first session.
func (t *Tracker) Classify(state *domain.ActivityState, now time.Time) (Transition, time.Duration) {
	if state == nil {
		return FirstSession, 0
	}

	elapsed := now.Sub(state.LastActivity)
	switch {
	case elapsed < 0:
		return TimeTravel, elapsed
	case elapsed > t.sessionInterval:
		return NewSession, elapsed
	case elapsed > t.subsessionInterval:
		return Subsession, elapsed
	}
	return None, elapsed
}

// Start applies a foreground start to state.
//
// For NewSession the counters are advanced but the session attributes are
// left in place, so the session package can still report the session that
// just ended; the caller builds the package and then calls
// ResetSessionAttributes. FirstSession leaves state untouched because there
// is nothing to advance yet.
func (t *Tracker) Start(state *domain.ActivityState, now time.Time) Transition {
	transition, elapsed := t.Classify(state, now)

	switch transition {
	case TimeTravel:
		// clamp forward without counting anything
		state.LastActivity = now
	case NewSession:
		state.SessionCount++
		state.CreatedAt = now
		state.LastInterval = &elapsed
	case Subsession:
		state.SubsessionCount++
		state.SessionLength += elapsed
		state.LastActivity = now
	}
	return transition
}

// Update folds background time into state. It reports whether the state
// changed enough to be worth persisting.
func (t *Tracker) Update(state *domain.ActivityState, now time.Time) bool {
	if state == nil {
		return false
	}

	elapsed := now.Sub(state.LastActivity)
	if elapsed < 0 {
		state.LastActivity = now
		return true
	}

	// a late callback from a session that already ended
	if elapsed > t.sessionInterval {
		return false
	}

	state.SessionLength += elapsed
	state.TimeSpent += elapsed
	state.LastActivity = now
	return elapsed > t.subsessionInterval
}
