package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/adjust/internal/domain"
)

var t0 = time.Unix(1700000000, 0)

func activeState() *domain.ActivityState {
	s := domain.NewActivityState(t0, "uuid-1")
	s.SessionLength = 5 * time.Minute
	s.TimeSpent = 20 * time.Minute
	s.SubsessionCount = 3
	s.EventCount = 4
	return s
}

func TestTrackerFirstSession(t *testing.T) {
	tr := NewTracker(0, 0)

	transition := tr.Start(nil, t0)
	if transition != FirstSession {
		t.Fatalf("expected first session, got %s", transition)
	}
	if !transition.StartsSession() {
		t.Fatalf("first session must send a session package")
	}
}

func TestTrackerNewSession(t *testing.T) {
	tr := NewTracker(0, 0)
	s := activeState()
	now := t0.Add(31 * time.Minute)

	transition := tr.Start(s, now)

	require.Equal(t, NewSession, transition)
	assert.Equal(t, 2, s.SessionCount)
	assert.Equal(t, now, s.CreatedAt)
	require.NotNil(t, s.LastInterval)
	assert.Equal(t, 31*time.Minute, *s.LastInterval)

	// attributes of the ended session survive until the caller resets them
	assert.Equal(t, 3, s.SubsessionCount)
	assert.Equal(t, 5*time.Minute, s.SessionLength)

	s.ResetSessionAttributes(now)
	assert.Equal(t, 1, s.SubsessionCount)
	assert.Equal(t, time.Duration(0), s.SessionLength)
	assert.Equal(t, now, s.LastActivity)
	assert.Equal(t, 4, s.EventCount)
}

func TestTrackerSubsession(t *testing.T) {
	tr := NewTracker(0, 0)
	s := activeState()
	now := t0.Add(10 * time.Second)

	require.Equal(t, Subsession, tr.Start(s, now))
	assert.Equal(t, 1, s.SessionCount)
	assert.Equal(t, 4, s.SubsessionCount)
	assert.Equal(t, 5*time.Minute+10*time.Second, s.SessionLength)
	assert.Equal(t, 20*time.Minute, s.TimeSpent, "time spent grows only in background updates")
	assert.Equal(t, now, s.LastActivity)
}

func TestTrackerNoChangeWithinSubsessionInterval(t *testing.T) {
	tr := NewTracker(0, 0)
	s := activeState()
	before := *s

	require.Equal(t, None, tr.Start(s, t0.Add(500*time.Millisecond)))
	assert.Equal(t, before, *s)
}

func TestTrackerBoundariesAreExclusive(t *testing.T) {
	tr := NewTracker(0, 0)

	transition, _ := tr.Classify(activeState(), t0.Add(DefaultSessionInterval))
	assert.Equal(t, Subsession, transition)

	transition, _ = tr.Classify(activeState(), t0.Add(DefaultSubsessionInterval))
	assert.Equal(t, None, transition)
}

func TestTrackerTimeTravelIsIdempotent(t *testing.T) {
	tr := NewTracker(0, 0)
	s := activeState()
	now := t0.Add(-time.Hour)

	require.Equal(t, TimeTravel, tr.Start(s, now))
	assert.Equal(t, now, s.LastActivity)
	assert.Equal(t, 1, s.SessionCount)
	assert.Equal(t, 3, s.SubsessionCount)

	after := *s
	require.Equal(t, None, tr.Start(s, now))
	assert.Equal(t, after, *s)
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(0, 0)

	t.Run("missing state", func(t *testing.T) {
		assert.False(t, tr.Update(nil, t0))
	})

	t.Run("accumulates and reports persist", func(t *testing.T) {
		s := activeState()
		now := t0.Add(2 * time.Minute)
		assert.True(t, tr.Update(s, now))
		assert.Equal(t, 7*time.Minute, s.SessionLength)
		assert.Equal(t, 22*time.Minute, s.TimeSpent)
		assert.Equal(t, now, s.LastActivity)
	})

	t.Run("short gap accumulates without persist", func(t *testing.T) {
		s := activeState()
		assert.False(t, tr.Update(s, t0.Add(300*time.Millisecond)))
		assert.Equal(t, 5*time.Minute+300*time.Millisecond, s.SessionLength)
	})

	t.Run("stale update is discarded", func(t *testing.T) {
		s := activeState()
		before := *s
		assert.False(t, tr.Update(s, t0.Add(45*time.Minute)))
		assert.Equal(t, before, *s)
	})

	t.Run("time travel clamps", func(t *testing.T) {
		s := activeState()
		now := t0.Add(-time.Minute)
		assert.True(t, tr.Update(s, now))
		assert.Equal(t, now, s.LastActivity)
		assert.Equal(t, 5*time.Minute, s.SessionLength)
	})
}

func TestTrackerCustomIntervals(t *testing.T) {
	tr := NewTracker(time.Minute, 100*time.Millisecond)
	assert.Equal(t, time.Minute, tr.SessionInterval())
	assert.Equal(t, 100*time.Millisecond, tr.SubsessionInterval())

	transition, elapsed := tr.Classify(activeState(), t0.Add(90*time.Second))
	assert.Equal(t, NewSession, transition)
	assert.Equal(t, 90*time.Second, elapsed)
	assert.Equal(t, "session", transition.String())
}
